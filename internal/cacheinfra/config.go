package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the tiered result store.
// The memory tier is always present; disk and redis tiers are optional.
type Config struct {
	// Capacity defines the maximum number of entries the memory tier can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of memory tier shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the upper bound for how long the memory tier keeps an entry.
	// Per entry TTLs longer than this are cut short in memory but still
	// honored by the disk and redis tiers. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the memory tier reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the memory tier checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration

	// Disk enables the sqlite tier when non-nil.
	Disk *DiskConfig

	// Redis enables the redis tier when non-nil.
	Redis *RedisConfig
}

// DiskConfig configures the sqlite tier.
type DiskConfig struct {
	// Path of the sqlite database file. ":memory:" keeps it in process.
	Path string
}

// RedisConfig configures the redis tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces keys. Default: "querycache"
	Prefix string
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	if c.Disk != nil && c.Disk.Path == "" {
		return &ConfigError{Field: "Disk.Path", Message: "is required"}
	}

	if c.Redis != nil && c.Redis.Addr == "" {
		return &ConfigError{Field: "Redis.Addr", Message: "is required"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
