package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Tiered checks tiers in order. A hit in a later tier is copied back into the
// earlier ones so the next lookup is served from the fastest tier.
type Tiered struct {
	tiers     []Tier
	backfills []atomic.Int64
}

// NewTiered combines tiers, fastest first.
func NewTiered(tiers ...Tier) *Tiered {
	return &Tiered{tiers: tiers, backfills: make([]atomic.Int64, len(tiers))}
}

// NewTieredStore builds the memory tier and, when configured, the disk and
// redis tiers from cfg.
func NewTieredStore(ctx context.Context, cfg Config) (*Tiered, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	memory, err := NewSturdycTier(cfg)
	if err != nil {
		return nil, err
	}
	tiers := []Tier{memory}

	if cfg.Disk != nil {
		disk, err := OpenDiskTier(ctx, cfg.Disk.Path)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, disk)
	}

	if cfg.Redis != nil {
		tiers = append(tiers, OpenRedisTier(*cfg.Redis))
	}

	return NewTiered(tiers...), nil
}

// Tiers returns the configured tiers, fastest first.
func (t *Tiered) Tiers() []Tier {
	return t.tiers
}

// Get returns the first live entry. Tier errors do not stop the walk; the
// first one is reported only when no tier had the key. Failed back-fills do
// not fail the hit and are counted in Stats.
func (t *Tiered) Get(ctx context.Context, key string) (Entry, bool, error) {
	var firstErr error
	for i, tier := range t.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s tier: %w", tier.Name(), err)
			}
			continue
		}
		if !ok {
			continue
		}
		for j, earlier := range t.tiers[:i] {
			if err := earlier.Set(ctx, key, entry); err != nil {
				t.backfills[j].Add(1)
			}
		}
		return entry, true, nil
	}
	return Entry{}, false, firstErr
}

// Set writes to every tier and returns the first failure.
func (t *Tiered) Set(ctx context.Context, key string, entry Entry) error {
	var firstErr error
	for _, tier := range t.tiers {
		if err := tier.Set(ctx, key, entry); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s tier: %w", tier.Name(), err)
		}
	}
	return firstErr
}

// Flush purges expired entries from every tier.
func (t *Tiered) Flush(ctx context.Context) error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s tier: %w", tier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Stats reports live entry counts per tier.
func (t *Tiered) Stats(ctx context.Context) []TierStats {
	stats := make([]TierStats, 0, len(t.tiers))
	for i, tier := range t.tiers {
		n, err := tier.Len(ctx)
		if err != nil {
			n = -1
		}
		stats = append(stats, TierStats{
			Name:           tier.Name(),
			Entries:        n,
			BackfillErrors: t.backfills[i].Load(),
		})
	}
	return stats
}

// Close closes every tier.
func (t *Tiered) Close() error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
