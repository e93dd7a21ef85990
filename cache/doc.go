// Package cache provides cache keys and the result store used by data accesses.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - Store: holds result tables under a Key with a per entry TTL
//   - KeyBuilder: builds stable keys from resolved request state
//
// # Basic Usage
//
//	store, err := cache.NewStore(ctx, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	key, err := cache.NewDefaultKeyBuilder().Build(cache.KeyInput{
//		Connection:   conn.Fingerprint(),
//		Query:        "SELECT * FROM orders WHERE region = ?region",
//		Params:       resolved,
//		DataAccessID: "orders",
//	})
//
//	switch lookup := cache.Fetch(ctx, store, key); lookup.Status {
//	case cache.Hit:
//		return lookup.Value, nil
//	case cache.Failed:
//		logger.Warn("cache lookup failed", zap.Error(lookup.Err))
//	}
//
// # Key Serialization Strategy
//
// The default key builder uses reflection to serialize parameter values and
// extra key material:
//
//   - Basic types: direct string representation, strings quoted
//   - time.Time: UTC RFC3339 with nanoseconds
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//
// Functions, channels and unsafe pointers only have a process local identity.
// Build rejects them with an UnstableValueError instead of encoding an address,
// so keys stay valid for the disk and redis tiers across restarts.
//
// # Tiers
//
// NewStore always creates an in-memory tier. Setting Config.Disk adds a sqlite
// tier and Config.Redis adds a redis tier. Lookups walk the tiers in that
// order and copy hits back into faster tiers.
//
// # Error Handling
//
// Store errors carry the go-errors external category with the text codes
// CACHE_GET, CACHE_PUT and CACHE_FLUSH. Callers are expected to log them and
// carry on as if the entry were absent.
package cache
