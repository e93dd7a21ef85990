package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/parameter"
	"github.com/goliatone/go-query-cache/table"
)

var tracer = otel.Tracer("github.com/goliatone/go-query-cache/dataaccess")

// Dependencies are the collaborators shared by data accesses. Zero values
// get defaults; a nil Store disables caching.
type Dependencies struct {
	Store       cache.Store
	Connections connection.Resolver
	KeyBuilder  cache.KeyBuilder
	Copier      table.Copier
	SlowLog     *SlowQueryLogger
	Logger      *zap.Logger
	Metrics     *Metrics
	SettingsID  string
}

// SimpleDataAccess runs one Definition through a QueryPerformer with result
// caching. Calls on the same instance are serialized.
type SimpleDataAccess struct {
	mu sync.Mutex

	def       Definition
	performer QueryPerformer

	store       cache.Store
	connections connection.Resolver
	keys        cache.KeyBuilder
	copier      table.Copier
	slowLog     *SlowQueryLogger
	logger      *zap.Logger
	metrics     *Metrics
	settingsID  string
}

// New creates a data access for def.
func New(def Definition, performer QueryPerformer, deps Dependencies) (*SimpleDataAccess, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if performer == nil {
		return nil, fmt.Errorf("data access %q: query performer is required", def.ID)
	}
	if def.UsesConnection() && deps.Connections == nil {
		return nil, fmt.Errorf("data access %q: connection resolver is required", def.ID)
	}

	d := &SimpleDataAccess{
		def:         def,
		performer:   performer,
		store:       deps.Store,
		connections: deps.Connections,
		keys:        deps.KeyBuilder,
		copier:      deps.Copier,
		slowLog:     deps.SlowLog,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		settingsID:  deps.SettingsID,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.keys == nil {
		d.keys = cache.NewDefaultKeyBuilder()
	}
	if d.copier == nil {
		d.copier = table.DeepCopier{}
	}
	if d.slowLog == nil {
		d.slowLog = NewSlowQueryLogger(d.logger, config.DefaultQueryTimeThreshold)
	}
	return d, nil
}

// ID returns the data access id.
func (d *SimpleDataAccess) ID() string { return d.def.ID }

// Query returns the query text.
func (d *SimpleDataAccess) Query() string { return d.def.Query }

// ConnectionID returns the id of the connection the query runs against.
func (d *SimpleDataAccess) ConnectionID() string { return d.def.ConnectionID }

// Definition returns the definition the data access was built from.
func (d *SimpleDataAccess) Definition() Definition { return d.def }

// QueryDataSource returns the result for opts, from the cache when possible.
// Every failure is returned as a *QueryError. The returned table belongs to
// the caller.
func (d *SimpleDataAccess) QueryDataSource(ctx context.Context, opts RequestOptions) (*table.Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, span := tracer.Start(ctx, "QueryDataSource", trace.WithAttributes(
		attribute.String("querycache.data_access", d.def.ID),
		attribute.Bool("querycache.cache_bypass", opts.CacheBypass),
	))
	defer span.End()

	logger := d.logger.With(
		zap.String("data_access", d.def.ID),
		zap.String("execution_id", uuid.NewString()),
	)

	result, err := d.query(ctx, span, logger, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("query failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (d *SimpleDataAccess) query(ctx context.Context, span trace.Span, logger *zap.Logger, opts RequestOptions) (*table.Table, error) {
	var params parameter.Resolved
	if err := recovered(func() (err error) {
		params, err = parameter.Resolve(d.def.Parameters, opts.Parameters)
		return err
	}); err != nil {
		return nil, d.fail(StageParameters, err)
	}

	defer d.closeDataSource(logger)

	var conn connection.Connection
	if err := recovered(func() (err error) {
		conn, err = d.resolveConnection(ctx)
		return err
	}); err != nil {
		return nil, d.fail(StageConnection, err)
	}

	var key cache.Key
	if err := recovered(func() (err error) {
		key, err = d.buildKey(conn, params)
		return err
	}); err != nil {
		return nil, d.fail(StageKey, err)
	}

	caching := d.def.Cache && d.store != nil
	if caching && !opts.CacheBypass {
		lookup := d.fetch(ctx, key)
		d.metrics.lookup(lookup.Status.String())
		span.SetAttributes(attribute.String("querycache.cache_lookup", lookup.Status.String()))

		switch lookup.Status {
		case cache.Hit:
			logger.Debug("cache hit", zap.String("key", key.Digest()))
			return lookup.Value, nil
		case cache.Failed:
			logger.Warn("cache lookup failed, running query", zap.Error(lookup.Err))
		}
	}

	start := d.slowLog.now()
	result, err := d.execute(ctx, conn, params)
	d.metrics.execution(d.def.ID, d.slowLog.now().Sub(start), err)
	if err != nil {
		return nil, err
	}
	d.slowLog.Report(start, d.def.ID, d.def.Query, params)

	returned, err := d.copyResult(result)
	if err != nil {
		return nil, d.fail(StageCopy, err)
	}

	if caching {
		cached, err := d.copyResult(result)
		if err != nil {
			return nil, d.fail(StageCopy, err)
		}
		d.put(ctx, logger, key, cached)
	}

	return returned, nil
}

func (d *SimpleDataAccess) copyResult(result *table.Table) (*table.Table, error) {
	var cp *table.Table
	err := recovered(func() (err error) {
		cp, err = d.copier.Copy(result)
		return err
	})
	if err == nil && cp == nil {
		err = errors.New("copier returned no table")
	}
	return cp, err
}

// fetch folds a panicking store into a failed lookup.
func (d *SimpleDataAccess) fetch(ctx context.Context, key cache.Key) cache.Lookup {
	var lookup cache.Lookup
	if err := recovered(func() error {
		lookup = cache.Fetch(ctx, d.store, key)
		return nil
	}); err != nil {
		return cache.Lookup{Status: cache.Failed, Err: err}
	}
	return lookup
}

func (d *SimpleDataAccess) resolveConnection(ctx context.Context) (connection.Connection, error) {
	if !d.def.UsesConnection() {
		return connection.None{}, nil
	}
	conn, err := d.connections.Resolve(ctx, d.def.ConnectionID)
	if err != nil {
		return nil, &ConnectionResolutionError{ConnectionID: d.def.ConnectionID, Err: err}
	}
	return conn, nil
}

func (d *SimpleDataAccess) buildKey(conn connection.Connection, params parameter.Resolved) (cache.Key, error) {
	identity := cache.NoConnection
	if d.def.UsesConnection() {
		identity = conn.Fingerprint()
	}

	var extra any
	if keyer, ok := d.performer.(ExtraKeyer); ok {
		extra = keyer.ExtraCacheKey()
	}

	return d.keys.Build(cache.KeyInput{
		Connection:   identity,
		Query:        d.def.Query,
		Params:       params,
		Extra:        extra,
		SettingsID:   d.settingsID,
		DataAccessID: d.def.ID,
	})
}

// execute runs the performer and the optional post processing step.
func (d *SimpleDataAccess) execute(ctx context.Context, conn connection.Connection, params parameter.Resolved) (*table.Table, error) {
	result, err := guard(func() (*table.Table, error) {
		return d.performer.PerformRawQuery(ctx, conn, d.def.Query, params)
	})
	if err != nil {
		return nil, d.fail(StageExecute, err)
	}
	if result == nil {
		return nil, d.fail(StageExecute, errors.New("query performer returned no table"))
	}

	processor, ok := d.performer.(PostProcessor)
	if !ok {
		return result, nil
	}

	processed, err := guard(func() (*table.Table, error) {
		return processor.PostProcess(ctx, result)
	})
	if err != nil {
		return nil, d.fail(StagePostProcess, err)
	}
	if processed == nil {
		return nil, d.fail(StagePostProcess, errors.New("post processor returned no table"))
	}
	return processed, nil
}

func (d *SimpleDataAccess) put(ctx context.Context, logger *zap.Logger, key cache.Key, value *table.Table) {
	if err := recovered(func() error {
		return d.store.Put(ctx, key, value, d.def.TTL())
	}); err != nil {
		d.metrics.storeError()
		logger.Warn("cache store failed", zap.String("key", key.Digest()), zap.Error(err))
		return
	}
	if err := recovered(func() error {
		return d.store.Flush(ctx)
	}); err != nil {
		d.metrics.storeError()
		logger.Warn("cache flush failed", zap.Error(err))
	}

	if ce := logger.Check(zapcore.DebugLevel, "cache stored"); ce != nil {
		ce.Write(
			zap.String("key", key.Digest()),
			zap.Int("ttl_seconds", d.def.CacheDuration),
			zap.Any("tiers", d.stats(ctx)),
		)
	}
}

func (d *SimpleDataAccess) stats(ctx context.Context) (stats []cache.TierStats) {
	_ = recovered(func() error {
		stats = d.store.Stats(ctx)
		return nil
	})
	return stats
}

func (d *SimpleDataAccess) closeDataSource(logger *zap.Logger) {
	if err := recovered(d.performer.CloseDataSource); err != nil {
		logger.Warn("closing data source failed", zap.Error(err))
	}
}

func (d *SimpleDataAccess) fail(stage Stage, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{DataAccessID: d.def.ID, Stage: stage, Err: err}
}

func guard(fn func() (*table.Table, error)) (result *table.Table, err error) {
	err = recovered(func() (err error) {
		result, err = fn()
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recovered runs fn and turns a panic into a *PanicError.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
