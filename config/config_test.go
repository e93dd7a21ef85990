package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEnvName(t *testing.T) {
	if got := EnvName(QueryTimeThresholdKey); got != "QUERYCACHE_QUERY_TIME_THRESHOLD" {
		t.Errorf("unexpected env name %q", got)
	}
	if got := EnvName("querycache.cache.disk-path"); got != "QUERYCACHE_CACHE_DISK_PATH" {
		t.Errorf("unexpected env name %q", got)
	}
}

func TestEnvSource(t *testing.T) {
	src := EnvSource{LookupEnv: func(name string) (string, bool) {
		if name == "QUERYCACHE_QUERY_TIME_THRESHOLD" {
			return "12", true
		}
		return "", false
	}}

	if v, ok := src.Lookup(QueryTimeThresholdKey); !ok || v != "12" {
		t.Errorf("expected 12, got %q (%v)", v, ok)
	}
	if _, ok := src.Lookup("querycache.other"); ok {
		t.Error("expected miss")
	}

	t.Setenv("QUERYCACHE_REAL_ENV", "yes")
	if v, ok := (EnvSource{}).Lookup("querycache.real_env"); !ok || v != "yes" {
		t.Errorf("expected process env lookup, got %q (%v)", v, ok)
	}
}

func TestChain(t *testing.T) {
	chain := Chain{
		nil,
		MapSource{"a": "first"},
		MapSource{"a": "second", "b": "only-second"},
	}

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"a", "first", true},
		{"b", "only-second", true},
		{"c", "", false},
	}
	for _, tt := range tests {
		got, ok := chain.Lookup(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseYAML(t *testing.T) {
	src, err := ParseYAML([]byte(`
querycache:
  query_time_threshold: 30
  cache:
    ttl: 10m
    disk:
      path: /tmp/cache.db
  tags: [a, b]
  empty:
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := map[string]string{
		"querycache.query_time_threshold": "30",
		"querycache.cache.ttl":            "10m",
		"querycache.cache.disk.path":      "/tmp/cache.db",
		"querycache.tags":                 "a,b",
		"querycache.empty":                "",
	}
	for key, value := range want {
		got, ok := src.Lookup(key)
		if !ok || got != value {
			t.Errorf("Lookup(%q) = %q, %v; want %q", key, got, ok, value)
		}
	}
	if len(src.Keys()) != len(want) {
		t.Errorf("unexpected keys %v", src.Keys())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querycache.yaml")
	if err := os.WriteFile(path, []byte("querycache:\n  query_time_threshold: 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if src.Path() != path {
		t.Errorf("expected path %q, got %q", path, src.Path())
	}
	if got := QueryTimeThreshold(src, nil); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ParseYAML([]byte("a: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestQueryTimeThreshold(t *testing.T) {
	tests := []struct {
		name     string
		src      Source
		want     int64
		warnings int
	}{
		{"nil source", nil, DefaultQueryTimeThreshold, 0},
		{"unset", MapSource{}, DefaultQueryTimeThreshold, 0},
		{"empty", MapSource{QueryTimeThresholdKey: ""}, DefaultQueryTimeThreshold, 0},
		{"blank", MapSource{QueryTimeThresholdKey: "   "}, DefaultQueryTimeThreshold, 0},
		{"valid", MapSource{QueryTimeThresholdKey: "120"}, 120, 0},
		{"valid with spaces", MapSource{QueryTimeThresholdKey: " 7 "}, 7, 0},
		{"zero", MapSource{QueryTimeThresholdKey: "0"}, 0, 0},
		{"malformed", MapSource{QueryTimeThresholdKey: "ten"}, DefaultQueryTimeThreshold, 1},
		{"fractional", MapSource{QueryTimeThresholdKey: "1.5"}, DefaultQueryTimeThreshold, 1},
		{"negative", MapSource{QueryTimeThresholdKey: "-1"}, DefaultQueryTimeThreshold, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			got := QueryTimeThreshold(tt.src, zap.New(core))

			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			if logs.Len() != tt.warnings {
				t.Fatalf("expected %d log records, got %d", tt.warnings, logs.Len())
			}
			if tt.warnings > 0 && logs.All()[0].Level != zapcore.WarnLevel {
				t.Errorf("expected warn level, got %s", logs.All()[0].Level)
			}
		})
	}
}

func TestCacheConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := CacheConfig(MapSource{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Capacity != 10000 || cfg.Disk != nil || cfg.Redis != nil {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := CacheConfig(MapSource{
			CacheCapacityKey:      "50",
			CacheTTLKey:           "90s",
			CacheDiskPathKey:      ":memory:",
			CacheRedisAddrKey:     "localhost:6379",
			CacheRedisDBKey:       "2",
			CacheRedisPrefixKey:   "qc",
			CacheRedisPasswordKey: "secret",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Capacity != 50 || cfg.TTL != 90*time.Second {
			t.Errorf("unexpected memory settings %+v", cfg)
		}
		if cfg.Disk == nil || cfg.Disk.Path != ":memory:" {
			t.Errorf("unexpected disk settings %+v", cfg.Disk)
		}
		if cfg.Redis == nil || cfg.Redis.DB != 2 || cfg.Redis.Prefix != "qc" || cfg.Redis.Password != "secret" {
			t.Errorf("unexpected redis settings %+v", cfg.Redis)
		}
	})

	tests := []struct {
		name string
		src  MapSource
		code string
	}{
		{"malformed int", MapSource{CacheCapacityKey: "many"}, "CONFIG_MALFORMED"},
		{"malformed duration", MapSource{CacheTTLKey: "soon"}, "CONFIG_MALFORMED"},
		{"invalid value", MapSource{CacheCapacityKey: "0"}, "CONFIG_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CacheConfig(tt.src)
			var gerr *goerrors.Error
			if !errors.As(err, &gerr) {
				t.Fatalf("expected go-errors error, got %T: %v", err, err)
			}
			if gerr.Category != goerrors.CategoryValidation || gerr.TextCode != tt.code {
				t.Errorf("unexpected classification %s/%s", gerr.Category, gerr.TextCode)
			}
		})
	}
}
