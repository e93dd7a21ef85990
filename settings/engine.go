package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/sqlaccess"
	"github.com/goliatone/go-query-cache/table"
)

// DataAccess is a runnable data access.
type DataAccess interface {
	ID() string
	QueryDataSource(ctx context.Context, opts dataaccess.RequestOptions) (*table.Table, error)
	Interface() []dataaccess.PropertyDescriptor
}

// UnknownDataAccessError is returned when a request names an id the engine
// does not hold.
type UnknownDataAccessError struct {
	ID string
}

func (e *UnknownDataAccessError) Error() string {
	return fmt.Sprintf("data access %q is not defined", e.ID)
}

// Engine routes requests to data accesses by RequestOptions.DataAccessID.
type Engine struct {
	id       string
	accesses *xsync.MapOf[string, DataAccess]
	catalog  *connection.Catalog
	logger   *zap.Logger
}

// NewEngine creates an empty engine. An empty id is replaced by a random one.
func NewEngine(id string, catalog *connection.Catalog, logger *zap.Logger) *Engine {
	if id == "" {
		id = uuid.NewString()
	}
	if catalog == nil {
		catalog = connection.NewCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		id:       id,
		accesses: xsync.NewMapOf[string, DataAccess](),
		catalog:  catalog,
		logger:   logger,
	}
}

// Build creates the connections and data accesses declared in f. The
// Connections and SettingsID fields of deps are set by the engine.
func Build(f *File, deps dataaccess.Dependencies) (*Engine, error) {
	if f == nil {
		return nil, fmt.Errorf("settings: file is required")
	}

	engine := NewEngine(f.ID, nil, deps.Logger)

	for _, spec := range f.Connections {
		conn, err := connection.NewSQL(spec.ID, spec.Driver, spec.DSN)
		if err != nil {
			engine.Close()
			return nil, err
		}
		if err := engine.catalog.Register(conn); err != nil {
			engine.Close()
			return nil, err
		}
	}

	deps.Connections = engine.catalog
	deps.SettingsID = engine.id

	for _, spec := range f.DataAccesses {
		def, err := spec.Definition()
		if err != nil {
			engine.Close()
			return nil, err
		}
		da, err := sqlaccess.NewDataAccess(def, deps)
		if err != nil {
			engine.Close()
			return nil, err
		}
		if err := engine.Register(da); err != nil {
			engine.Close()
			return nil, err
		}
	}

	engine.logger.Info("settings loaded",
		zap.String("settings_id", engine.id),
		zap.String("path", f.Path()),
		zap.Int("connections", len(f.Connections)),
		zap.Int("data_accesses", len(f.DataAccesses)),
	)
	return engine, nil
}

// ID is the settings id shared by every cache key the engine's data
// accesses build.
func (e *Engine) ID() string { return e.id }

// Connections returns the engine's connection catalog.
func (e *Engine) Connections() *connection.Catalog { return e.catalog }

// Register adds a data access. Ids must be unique.
func (e *Engine) Register(da DataAccess) error {
	if da == nil || da.ID() == "" {
		return fmt.Errorf("settings: data access id is required")
	}
	if _, loaded := e.accesses.LoadOrStore(da.ID(), da); loaded {
		return fmt.Errorf("settings: data access %q already registered", da.ID())
	}
	return nil
}

// Get returns the data access registered under id.
func (e *Engine) Get(id string) (DataAccess, error) {
	da, ok := e.accesses.Load(id)
	if !ok {
		return nil, &UnknownDataAccessError{ID: id}
	}
	return da, nil
}

// IDs returns the registered data access ids sorted.
func (e *Engine) IDs() []string {
	ids := make([]string, 0, e.accesses.Size())
	e.accesses.Range(func(id string, _ DataAccess) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

// Query runs the data access named by opts.DataAccessID. Every failure is a
// *dataaccess.QueryError; an unknown id carries an *UnknownDataAccessError.
func (e *Engine) Query(ctx context.Context, opts dataaccess.RequestOptions) (*table.Table, error) {
	da, err := e.Get(opts.DataAccessID)
	if err != nil {
		return nil, &dataaccess.QueryError{
			DataAccessID: opts.DataAccessID,
			Stage:        dataaccess.StageRoute,
			Err:          err,
		}
	}
	return da.QueryDataSource(ctx, opts)
}

// Close releases the engine's connections.
func (e *Engine) Close() error {
	return e.catalog.Close()
}
