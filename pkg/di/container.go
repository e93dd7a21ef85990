package di

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/settings"
)

// Container provides dependency injection for data access components.
// It owns the singleton cache store, key builder, slow query logger and
// metrics shared by every data access it creates.
type Container struct {
	store      cache.StoreCloser
	keyBuilder cache.KeyBuilder
	config     cache.Config
	logger     *zap.Logger
	registerer prometheus.Registerer
	metrics    *dataaccess.Metrics
	slowLog    *dataaccess.SlowQueryLogger
	threshold  int64
	catalog    *connection.Catalog
	engines    []*settings.Engine
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegisterer registers pipeline metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registerer = reg
	}
}

// WithQueryTimeThreshold sets the slow query threshold in seconds.
func WithQueryTimeThreshold(seconds int64) Option {
	return func(c *Container) {
		c.threshold = seconds
	}
}

// WithKeyBuilder replaces the default key builder.
func WithKeyBuilder(kb cache.KeyBuilder) Option {
	return func(c *Container) {
		if kb != nil {
			c.keyBuilder = kb
		}
	}
}

// NewContainer creates a new DI container with the provided cache configuration.
func NewContainer(ctx context.Context, cfg cache.Config, opts ...Option) (*Container, error) {
	c := &Container{
		config:     cfg,
		logger:     zap.NewNop(),
		keyBuilder: cache.NewDefaultKeyBuilder(),
		threshold:  config.DefaultQueryTimeThreshold,
		catalog:    connection.NewCatalog(),
	}
	for _, opt := range opts {
		opt(c)
	}

	store, err := cache.NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.metrics = dataaccess.NewMetrics(c.registerer)
	c.slowLog = dataaccess.NewSlowQueryLogger(c.logger, c.threshold)

	c.logger.Debug("container ready",
		zap.Int("cache_capacity", cfg.Capacity),
		zap.Duration("cache_ttl", cfg.TTL),
		zap.Bool("disk_tier", cfg.Disk != nil),
		zap.Bool("redis_tier", cfg.Redis != nil),
		zap.Int64("query_time_threshold", c.threshold),
	)
	return c, nil
}

// NewContainerFromSource reads the cache configuration and the slow query
// threshold from src. Options given after the source win.
func NewContainerFromSource(ctx context.Context, src config.Source, opts ...Option) (*Container, error) {
	cfg, err := config.CacheConfig(src)
	if err != nil {
		return nil, err
	}

	// the logger must be known before the threshold is read
	probe := &Container{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(probe)
	}
	threshold := config.QueryTimeThreshold(src, probe.logger)

	return NewContainer(ctx, cfg, append([]Option{WithQueryTimeThreshold(threshold)}, opts...)...)
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, cache.DefaultConfig(), opts...)
}

// Store returns the singleton cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// KeyBuilder returns the singleton key builder.
func (c *Container) KeyBuilder() cache.KeyBuilder {
	return c.keyBuilder
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics returns the pipeline metrics.
func (c *Container) Metrics() *dataaccess.Metrics {
	return c.metrics
}

// SlowQueryLogger returns the shared slow query logger.
func (c *Container) SlowQueryLogger() *dataaccess.SlowQueryLogger {
	return c.slowLog
}

// Connections returns the catalog used by data accesses created with
// NewDataAccess.
func (c *Container) Connections() *connection.Catalog {
	return c.catalog
}

// Dependencies returns the shared collaborators for a data access.
func (c *Container) Dependencies() dataaccess.Dependencies {
	return dataaccess.Dependencies{
		Store:       c.store,
		Connections: c.catalog,
		KeyBuilder:  c.keyBuilder,
		SlowLog:     c.slowLog,
		Logger:      c.logger,
		Metrics:     c.metrics,
	}
}

// NewDataAccess wires def and performer to the container's shared
// collaborators.
func (c *Container) NewDataAccess(def dataaccess.Definition, performer dataaccess.QueryPerformer) (*dataaccess.SimpleDataAccess, error) {
	return dataaccess.New(def, performer, c.Dependencies())
}

// LoadSettings builds an engine for the settings file at path. The engine
// is closed with the container.
func (c *Container) LoadSettings(path string) (*settings.Engine, error) {
	f, err := settings.Load(path)
	if err != nil {
		return nil, err
	}
	engine, err := settings.Build(f, c.Dependencies())
	if err != nil {
		return nil, err
	}
	c.engines = append(c.engines, engine)
	return engine, nil
}

// Close releases engines, connections and the cache store.
func (c *Container) Close() error {
	var errs []error
	for _, engine := range c.engines {
		errs = append(errs, engine.Close())
	}
	errs = append(errs, c.catalog.Close(), c.store.Close())
	return errors.Join(errs...)
}
