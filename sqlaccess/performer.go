// Package sqlaccess runs data access queries against SQL connections.
//
// Queries reference parameters by name with a ?name placeholder. Array
// parameters expand to a comma separated list, so they are written inside
// parentheses:
//
//	SELECT id, total FROM orders WHERE region = ?region AND id IN (?ids)
//
// Values are bound by bun's formatter with the dialect of the connection.
package sqlaccess

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/parameter"
	"github.com/goliatone/go-query-cache/table"
)

// DBProvider is a connection backed by a bun database.
type DBProvider interface {
	connection.Connection
	DB() (*bun.DB, error)
}

// Performer is a dataaccess.QueryPerformer for SQL connections. The result
// set of the latest query stays open until CloseDataSource.
type Performer struct {
	mu     sync.Mutex
	rows   *sql.Rows
	logger *zap.Logger
}

// Option configures a Performer.
type Option func(*Performer)

// WithLogger sets the logger used for query debug records.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Performer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPerformer creates a Performer.
func NewPerformer(opts ...Option) *Performer {
	p := &Performer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PerformRawQuery binds params by name and reads the whole result set.
func (p *Performer) PerformRawQuery(ctx context.Context, conn connection.Connection, query string, params parameter.Resolved) (*table.Table, error) {
	provider, ok := conn.(DBProvider)
	if !ok {
		return nil, fmt.Errorf("sqlaccess: connection %q of type %q is not a SQL connection", conn.ID(), conn.Type())
	}

	db, err := provider.DB()
	if err != nil {
		return nil, err
	}
	for _, v := range params.Values() {
		db = db.WithNamedArg(v.Name, bindValue(v.Value))
	}

	p.logger.Debug("running sql query",
		zap.String("connection", conn.ID()),
		zap.Strings("parameters", params.Strings()),
	)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlaccess: query failed: %w", err)
	}

	p.mu.Lock()
	p.rows = rows
	p.mu.Unlock()

	return table.FromRows(rows)
}

// CloseDataSource closes the result set of the latest query, if any.
func (p *Performer) CloseDataSource() error {
	p.mu.Lock()
	rows := p.rows
	p.rows = nil
	p.mu.Unlock()

	if rows == nil {
		return nil
	}
	return rows.Close()
}

// bindValue wraps slices so they expand to a value list.
func bindValue(v any) any {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return bun.In(v)
	}
	return v
}

// NewDataAccess binds def to a fresh Performer.
func NewDataAccess(def dataaccess.Definition, deps dataaccess.Dependencies, opts ...Option) (*dataaccess.SimpleDataAccess, error) {
	if def.ConnectionType == "" {
		def.ConnectionType = connection.TypeSQL
	}
	if def.ConnectionType != connection.TypeSQL {
		return nil, fmt.Errorf("sqlaccess: data access %q declares connection type %q", def.ID, def.ConnectionType)
	}
	if deps.Logger != nil {
		opts = append([]Option{WithLogger(deps.Logger)}, opts...)
	}
	return dataaccess.New(def, NewPerformer(opts...), deps)
}

var (
	_ dataaccess.QueryPerformer = (*Performer)(nil)
	_ DBProvider                = (*connection.SQL)(nil)
)
