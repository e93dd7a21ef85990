// Package dataaccess runs declared queries with result caching.
//
// A Definition names the query, the connection it runs against, its declared
// parameters and its cache policy. New binds a Definition to a QueryPerformer
// and the shared Dependencies. QueryDataSource then:
//
//  1. resolves parameters, ignoring overrides of restricted parameters
//  2. resolves the connection
//  3. builds the cache key and returns a copy of a cached result when present
//  4. otherwise runs the performer, reports slow executions and caches a copy
//
// The performer's CloseDataSource runs exactly once per call once parameters
// resolved, whatever the outcome. Calls on one SimpleDataAccess are
// serialized; distinct instances run concurrently.
//
// Cache failures never fail a call. They are logged and the query runs as on
// a miss. Every other failure is returned as a *QueryError naming the Stage
// it came from.
package dataaccess
