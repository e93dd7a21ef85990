package cache

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
	Disk               *DiskConfig
	Redis              *RedisConfig
}

// DiskConfig enables the sqlite tier.
type DiskConfig struct {
	Path string
}

// RedisConfig enables the redis tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// StoreCloser is a Store that owns resources such as database handles.
type StoreCloser interface {
	Store
	io.Closer
}

// NewStore constructs the default tiered store using the provided configuration.
func NewStore(ctx context.Context, cfg Config) (StoreCloser, error) {
	tiers, err := cacheinfra.NewTieredStore(ctx, cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return newTierStore(tiers), nil
}

func (c Config) toInternal() cacheinfra.Config {
	var disk *cacheinfra.DiskConfig
	if c.Disk != nil {
		disk = &cacheinfra.DiskConfig{Path: c.Disk.Path}
	}

	var redis *cacheinfra.RedisConfig
	if c.Redis != nil {
		redis = &cacheinfra.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		}
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Disk:               disk,
		Redis:              redis,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var disk *DiskConfig
	if cfg.Disk != nil {
		disk = &DiskConfig{Path: cfg.Disk.Path}
	}

	var redis *RedisConfig
	if cfg.Redis != nil {
		redis = &RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	}

	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		Disk:               disk,
		Redis:              redis,
	}
}
