package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/parameter"
	"github.com/goliatone/go-query-cache/table"
)

// CountingPerformer is a query performer test double that records every
// call. It returns Result itself, not a copy, so tests can check that
// callers never share it.
type CountingPerformer struct {
	mu sync.Mutex

	Result   *table.Table
	Err      error
	Panic    any
	CloseErr error

	// OnPerform runs inside PerformRawQuery before it returns.
	OnPerform func(ctx context.Context)

	calls      int
	closes     int
	lastQuery  string
	lastParams parameter.Resolved
	lastConn   connection.Connection
}

// NewCountingPerformer returns a performer that yields result.
func NewCountingPerformer(result *table.Table) *CountingPerformer {
	return &CountingPerformer{Result: result}
}

func (p *CountingPerformer) PerformRawQuery(ctx context.Context, conn connection.Connection, query string, params parameter.Resolved) (*table.Table, error) {
	p.mu.Lock()
	p.calls++
	p.lastQuery = query
	p.lastParams = params
	p.lastConn = conn
	hook := p.OnPerform
	p.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if p.Panic != nil {
		panic(p.Panic)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Result, nil
}

func (p *CountingPerformer) CloseDataSource() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return p.CloseErr
}

// Calls returns how many times PerformRawQuery ran.
func (p *CountingPerformer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Closes returns how many times CloseDataSource ran.
func (p *CountingPerformer) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// LastQuery returns the query text of the latest call.
func (p *CountingPerformer) LastQuery() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastQuery
}

// LastParams returns the parameters of the latest call.
func (p *CountingPerformer) LastParams() parameter.Resolved {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastParams
}

// LastConnection returns the connection of the latest call.
func (p *CountingPerformer) LastConnection() connection.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastConn
}

// SampleTable builds a table with an integer id and a string label column
// holding rows rows.
func SampleTable(rows int) *table.Table {
	t := table.New(
		table.Column{Name: "id", Type: table.TypeInteger},
		table.Column{Name: "label", Type: table.TypeString},
	)
	for i := 0; i < rows; i++ {
		_ = t.AddRow(int64(i+1), fmt.Sprintf("row-%d", i+1))
	}
	return t
}
