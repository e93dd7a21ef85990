package cacheinfra

import (
	"context"
	"time"

	"github.com/goliatone/go-query-cache/table"
)

// Entry is a cached table with its absolute expiry.
type Entry struct {
	Value     *table.Table
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Tier is one storage level of the result store. Keys are canonical cache
// key strings. Get must return a table the caller may mutate freely.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Flush(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// TierStats reports the number of live entries in a tier. Entries is -1 when
// the tier could not be inspected. BackfillErrors counts failed copies of hits
// from slower tiers into this one.
type TierStats struct {
	Name           string
	Entries        int
	BackfillErrors int64
}
