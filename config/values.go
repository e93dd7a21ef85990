package config

import (
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/cache"
)

const (
	// QueryTimeThresholdKey holds the slow query threshold in whole seconds.
	QueryTimeThresholdKey = "querycache.query_time_threshold"

	// DefaultQueryTimeThreshold is used when the threshold is unset or malformed.
	DefaultQueryTimeThreshold int64 = 3600
)

// QueryTimeThreshold reads the slow query threshold. An unset or empty value
// yields the default silently; a value that is not a non negative integer
// yields the default and a warning.
func QueryTimeThreshold(src Source, logger *zap.Logger) int64 {
	if logger == nil {
		logger = zap.NewNop()
	}
	if src == nil {
		return DefaultQueryTimeThreshold
	}

	raw, ok := src.Lookup(QueryTimeThresholdKey)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return DefaultQueryTimeThreshold
	}

	threshold, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || threshold < 0 {
		logger.Warn("invalid query time threshold, using default",
			zap.String("key", QueryTimeThresholdKey),
			zap.String("value", raw),
			zap.Int64("default", DefaultQueryTimeThreshold),
		)
		return DefaultQueryTimeThreshold
	}
	return threshold
}

// Cache configuration keys. Durations use time.ParseDuration syntax.
const (
	CacheCapacityKey           = "querycache.cache.capacity"
	CacheNumShardsKey          = "querycache.cache.num_shards"
	CacheTTLKey                = "querycache.cache.ttl"
	CacheEvictionPercentageKey = "querycache.cache.eviction_percentage"
	CacheEvictionIntervalKey   = "querycache.cache.eviction_interval"
	CacheDiskPathKey           = "querycache.cache.disk.path"
	CacheRedisAddrKey          = "querycache.cache.redis.addr"
	CacheRedisPasswordKey      = "querycache.cache.redis.password"
	CacheRedisDBKey            = "querycache.cache.redis.db"
	CacheRedisPrefixKey        = "querycache.cache.redis.prefix"
)

// CacheConfig overlays configured values on cache.DefaultConfig. Unlike the
// threshold, malformed cache settings are an error.
func CacheConfig(src Source) (cache.Config, error) {
	cfg := cache.DefaultConfig()
	if src == nil {
		return cfg, nil
	}

	ints := []struct {
		key string
		dst *int
	}{
		{CacheCapacityKey, &cfg.Capacity},
		{CacheNumShardsKey, &cfg.NumShards},
		{CacheEvictionPercentageKey, &cfg.EvictionPercentage},
	}
	for _, f := range ints {
		if err := readInt(src, f.key, f.dst); err != nil {
			return cache.Config{}, err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{CacheTTLKey, &cfg.TTL},
		{CacheEvictionIntervalKey, &cfg.EvictionInterval},
	}
	for _, f := range durations {
		if err := readDuration(src, f.key, f.dst); err != nil {
			return cache.Config{}, err
		}
	}

	if path, ok := lookup(src, CacheDiskPathKey); ok {
		cfg.Disk = &cache.DiskConfig{Path: path}
	}

	if addr, ok := lookup(src, CacheRedisAddrKey); ok {
		redis := &cache.RedisConfig{Addr: addr}
		redis.Password, _ = lookup(src, CacheRedisPasswordKey)
		redis.Prefix, _ = lookup(src, CacheRedisPrefixKey)
		if err := readInt(src, CacheRedisDBKey, &redis.DB); err != nil {
			return cache.Config{}, err
		}
		cfg.Redis = redis
	}

	if err := cfg.Validate(); err != nil {
		return cache.Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid cache configuration").
			WithTextCode("CONFIG_INVALID")
	}
	return cfg, nil
}

func lookup(src Source, key string) (string, bool) {
	v, ok := src.Lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func readInt(src Source, key string, dst *int) error {
	raw, ok := lookup(src, key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return malformed(key, raw, err)
	}
	*dst = v
	return nil
}

func readDuration(src Source, key string, dst *time.Duration) error {
	raw, ok := lookup(src, key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return malformed(key, raw, err)
	}
	*dst = v
	return nil
}

func malformed(key, raw string, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "malformed value "+strconv.Quote(raw)+" for "+key).
		WithTextCode("CONFIG_MALFORMED")
}
