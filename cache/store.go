package cache

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/internal/cacheinfra"
	"github.com/goliatone/go-query-cache/table"
)

// TierStats reports the number of live entries held by one storage tier.
type TierStats = cacheinfra.TierStats

// Store holds result tables under cache keys with a per entry TTL.
// Get returns a table the caller owns; Put never retains the caller's table.
type Store interface {
	Get(ctx context.Context, key Key) (*table.Table, bool, error)
	Put(ctx context.Context, key Key, value *table.Table, ttl time.Duration) error
	Flush(ctx context.Context) error
	Stats(ctx context.Context) []TierStats
}

// LookupStatus tags the outcome of a cache lookup.
type LookupStatus int

const (
	Miss LookupStatus = iota
	Hit
	Failed
)

func (s LookupStatus) String() string {
	switch s {
	case Hit:
		return "hit"
	case Failed:
		return "error"
	default:
		return "miss"
	}
}

// Lookup is the folded result of a Store.Get call.
type Lookup struct {
	Status LookupStatus
	Value  *table.Table
	Err    error
}

// Fetch performs a lookup and never returns an error: storage failures come
// back as a Failed lookup so callers can treat them as a miss.
func Fetch(ctx context.Context, store Store, key Key) Lookup {
	value, ok, err := store.Get(ctx, key)
	switch {
	case err != nil:
		return Lookup{Status: Failed, Err: err}
	case !ok || value == nil:
		return Lookup{Status: Miss}
	default:
		return Lookup{Status: Hit, Value: value}
	}
}

// tierStore adapts the tiered storage to Store.
type tierStore struct {
	tiers *cacheinfra.Tiered
	now   func() time.Time
}

func newTierStore(tiers *cacheinfra.Tiered) *tierStore {
	return &tierStore{tiers: tiers, now: time.Now}
}

func (s *tierStore) Get(ctx context.Context, key Key) (*table.Table, bool, error) {
	entry, ok, err := s.tiers.Get(ctx, key.String())
	if err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryExternal, "cache lookup failed").
			WithTextCode("CACHE_GET")
	}
	if !ok {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Put stores value until now+ttl. A non positive ttl stores nothing.
func (s *tierStore) Put(ctx context.Context, key Key, value *table.Table, ttl time.Duration) error {
	if value == nil {
		return goerrors.New("cannot cache a nil table", goerrors.CategoryValidation).
			WithTextCode("CACHE_PUT")
	}
	if ttl <= 0 {
		return nil
	}

	entry := cacheinfra.Entry{Value: value, ExpiresAt: s.now().Add(ttl)}
	if err := s.tiers.Set(ctx, key.String(), entry); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cache store failed").
			WithTextCode("CACHE_PUT")
	}
	return nil
}

func (s *tierStore) Flush(ctx context.Context) error {
	if err := s.tiers.Flush(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "cache flush failed").
			WithTextCode("CACHE_FLUSH")
	}
	return nil
}

func (s *tierStore) Stats(ctx context.Context) []TierStats {
	return s.tiers.Stats(ctx)
}

// Close releases every tier.
func (s *tierStore) Close() error {
	return s.tiers.Close()
}
