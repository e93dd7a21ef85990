package dataaccess

import (
	"context"

	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/parameter"
	"github.com/goliatone/go-query-cache/table"
)

// QueryPerformer runs the raw query of a data access. It may keep resources
// open after PerformRawQuery returns; CloseDataSource releases them.
type QueryPerformer interface {
	PerformRawQuery(ctx context.Context, conn connection.Connection, query string, params parameter.Resolved) (*table.Table, error)
	CloseDataSource() error
}

// PostProcessor is implemented by performers that reshape results before
// they are cached.
type PostProcessor interface {
	PostProcess(ctx context.Context, result *table.Table) (*table.Table, error)
}

// ExtraKeyer is implemented by performers whose results depend on more than
// the query text and parameters.
type ExtraKeyer interface {
	ExtraCacheKey() any
}

// PerformerFunc adapts a function with nothing to close to QueryPerformer.
type PerformerFunc func(ctx context.Context, conn connection.Connection, query string, params parameter.Resolved) (*table.Table, error)

func (f PerformerFunc) PerformRawQuery(ctx context.Context, conn connection.Connection, query string, params parameter.Resolved) (*table.Table, error) {
	return f(ctx, conn, query, params)
}

func (f PerformerFunc) CloseDataSource() error { return nil }
