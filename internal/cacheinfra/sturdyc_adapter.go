package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// sturdycTier is the in-memory tier. sturdyc applies a single TTL to the whole
// client, so every entry carries its own expiry which is checked on read.
type sturdycTier struct {
	client *sturdyc.Client[Entry]
	now    func() time.Time
}

// NewSturdycTier creates the memory tier.
// It validates the configuration and initializes a sturdyc client with the provided settings.
//
// The constructor translates Config parameters to sturdyc initialization:
// - Capacity, NumShards, TTL, EvictionPercentage are passed to sturdyc.New()
// - Other options are applied via ToSturdycOptions()
func NewSturdycTier(cfg Config) (*sturdycTier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[Entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycTier{client: client, now: time.Now}, nil
}

func (s *sturdycTier) Name() string { return "memory" }

// Get returns a copy of the stored table so callers never share it with the tier.
func (s *sturdycTier) Get(_ context.Context, key string) (Entry, bool, error) {
	entry, ok := s.client.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(s.now()) {
		s.client.Delete(key)
		return Entry{}, false, nil
	}
	return Entry{Value: entry.Value.Copy(), ExpiresAt: entry.ExpiresAt}, true, nil
}

// Set stores a private copy of the table. Entries that are already expired are skipped.
func (s *sturdycTier) Set(_ context.Context, key string, entry Entry) error {
	if entry.Expired(s.now()) {
		return nil
	}
	s.client.Set(key, Entry{Value: entry.Value.Copy(), ExpiresAt: entry.ExpiresAt})
	return nil
}

// Flush drops expired entries ahead of sturdyc's own eviction.
func (s *sturdycTier) Flush(_ context.Context) error {
	now := s.now()
	for _, key := range s.client.ScanKeys() {
		if entry, ok := s.client.Get(key); ok && entry.Expired(now) {
			s.client.Delete(key)
		}
	}
	return nil
}

func (s *sturdycTier) Len(_ context.Context) (int, error) {
	return s.client.Size(), nil
}

func (s *sturdycTier) Close() error { return nil }

var _ Tier = (*sturdycTier)(nil)
