package cacheinfra

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-query-cache/table"
)

// DefaultRedisPrefix namespaces redis keys when RedisConfig.Prefix is empty.
const DefaultRedisPrefix = "querycache"

type redisEntry struct {
	Key       string `msgpack:"k"`
	Table     []byte `msgpack:"t"`
	ExpiresAt int64  `msgpack:"e"`
}

// redisTier stores entries under prefix:<xxhash(key)>. The full key travels
// with the payload so hash collisions read as misses.
type redisTier struct {
	client *redis.Client
	prefix string
	own    bool
	now    func() time.Time
}

// NewRedisTier uses an existing client. The caller owns the client lifecycle.
func NewRedisTier(client *redis.Client, prefix string) *redisTier {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisTier{client: client, prefix: prefix, now: time.Now}
}

// OpenRedisTier creates a client from cfg and owns it.
func OpenRedisTier(cfg RedisConfig) *redisTier {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	tier := NewRedisTier(client, cfg.Prefix)
	tier.own = true
	return tier
}

func (r *redisTier) Name() string { return "redis" }

func (r *redisTier) redisKey(key string) string {
	return r.prefix + ":" + strconv.FormatUint(xxhash.Sum64String(key), 16)
}

func (r *redisTier) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var stored redisEntry
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return Entry{}, false, err
	}
	if stored.Key != key {
		return Entry{}, false, nil
	}

	expiresAt := time.Unix(0, stored.ExpiresAt)
	if !r.now().Before(expiresAt) {
		return Entry{}, false, nil
	}

	value, err := table.Unmarshal(stored.Table)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Value: value, ExpiresAt: expiresAt}, true, nil
}

func (r *redisTier) Set(ctx context.Context, key string, entry Entry) error {
	ttl := entry.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	tableData, err := table.Marshal(entry.Value)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(redisEntry{Key: key, Table: tableData, ExpiresAt: entry.ExpiresAt.UnixNano()})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.redisKey(key), data, ttl).Err()
}

// Flush is a no-op, redis expires keys itself.
func (r *redisTier) Flush(_ context.Context) error { return nil }

// Len counts keys under the prefix.
func (r *redisTier) Len(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count, iter.Err()
}

func (r *redisTier) Close() error {
	if !r.own {
		return nil
	}
	return r.client.Close()
}

var _ Tier = (*redisTier)(nil)
