package cacheinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-query-cache/table"
)

type diskEntry struct {
	bun.BaseModel `bun:"table:querycache_entries"`

	CacheKey  string `bun:"cache_key,pk"`
	Value     []byte `bun:"value,notnull"`
	ExpiresAt int64  `bun:"expires_at,notnull"`
}

// diskTier persists msgpack encoded tables in sqlite.
type diskTier struct {
	db  *bun.DB
	own bool
	now func() time.Time
}

// OpenDiskTier opens (or creates) a sqlite database at path and uses it as a tier.
func OpenDiskTier(ctx context.Context, path string) (*diskTier, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cacheinfra: open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqldb.SetMaxOpenConns(1)
	}

	tier, err := NewDiskTier(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	tier.own = true
	return tier, nil
}

// NewDiskTier uses an existing sqlite bun database. The caller keeps ownership of db.
func NewDiskTier(ctx context.Context, db *bun.DB) (*diskTier, error) {
	if _, err := db.NewCreateTable().
		Model((*diskEntry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("cacheinfra: create cache table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*diskEntry)(nil)).
		Index("idx_querycache_entries_expires_at").
		Column("expires_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("cacheinfra: create expiry index: %w", err)
	}

	return &diskTier{db: db, now: time.Now}, nil
}

func (d *diskTier) Name() string { return "disk" }

func (d *diskTier) Get(ctx context.Context, key string) (Entry, bool, error) {
	var row diskEntry
	err := d.db.NewSelect().
		Model(&row).
		Where("cache_key = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	expiresAt := time.Unix(0, row.ExpiresAt)
	if !d.now().Before(expiresAt) {
		_, _ = d.db.NewDelete().Model((*diskEntry)(nil)).Where("cache_key = ?", key).Exec(ctx)
		return Entry{}, false, nil
	}

	value, err := table.Unmarshal(row.Value)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Value: value, ExpiresAt: expiresAt}, true, nil
}

func (d *diskTier) Set(ctx context.Context, key string, entry Entry) error {
	if entry.Expired(d.now()) {
		return nil
	}
	data, err := table.Marshal(entry.Value)
	if err != nil {
		return err
	}

	row := &diskEntry{CacheKey: key, Value: data, ExpiresAt: entry.ExpiresAt.UnixNano()}
	_, err = d.db.NewInsert().
		Model(row).
		On("CONFLICT (cache_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	return err
}

// Flush purges expired rows.
func (d *diskTier) Flush(ctx context.Context) error {
	_, err := d.db.NewDelete().
		Model((*diskEntry)(nil)).
		Where("expires_at <= ?", d.now().UnixNano()).
		Exec(ctx)
	return err
}

func (d *diskTier) Len(ctx context.Context) (int, error) {
	return d.db.NewSelect().
		Model((*diskEntry)(nil)).
		Where("expires_at > ?", d.now().UnixNano()).
		Count(ctx)
}

func (d *diskTier) Close() error {
	if !d.own {
		return nil
	}
	return d.db.Close()
}

var _ Tier = (*diskTier)(nil)
