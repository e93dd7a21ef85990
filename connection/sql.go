package connection

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQL is a lazily opened bun database connection.
type SQL struct {
	id     string
	driver string
	dsn    string

	once sync.Once
	db   *bun.DB
	err  error
}

// NewSQL creates a SQL connection. The database is opened on first use.
func NewSQL(id, driver, dsn string) (*SQL, error) {
	if _, err := dialectFor(driver); err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("connection %q: dsn is required", id)
	}
	return &SQL{id: id, driver: driver, dsn: dsn}, nil
}

// NewSQLFromDB wraps an already open bun database.
func NewSQLFromDB(id, driver, dsn string, db *bun.DB) *SQL {
	c := &SQL{id: id, driver: driver, dsn: dsn, db: db}
	c.once.Do(func() {})
	return c
}

func (c *SQL) ID() string     { return c.id }
func (c *SQL) Type() Type     { return TypeSQL }
func (c *SQL) Driver() string { return c.driver }

// Fingerprint hashes driver and DSN so credentials never reach cache keys.
func (c *SQL) Fingerprint() string {
	return "sql:" + c.driver + ":" + strconv.FormatUint(xxhash.Sum64String(c.dsn), 16)
}

// DB opens the database on first call and returns it.
func (c *SQL) DB() (*bun.DB, error) {
	c.once.Do(func() {
		dialect, err := dialectFor(c.driver)
		if err != nil {
			c.err = err
			return
		}
		sqldb, err := sql.Open(c.driver, c.dsn)
		if err != nil {
			c.err = fmt.Errorf("connection %q: open failed: %w", c.id, err)
			return
		}
		if c.driver == DriverSQLite && c.dsn == ":memory:" {
			sqldb.SetMaxOpenConns(1)
		}
		c.db = bun.NewDB(sqldb, dialect)
	})
	return c.db, c.err
}

// Close closes the underlying database if it was opened.
func (c *SQL) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func dialectFor(driver string) (schema.Dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqlitedialect.New(), nil
	case DriverPostgres:
		return pgdialect.New(), nil
	default:
		return nil, fmt.Errorf("connection: unsupported driver %q", driver)
	}
}
