// Package connection resolves the data sources data accesses run against.
package connection

import (
	"context"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Type identifies a connection implementation.
type Type string

const (
	// TypeNone marks data accesses that do not need a connection.
	TypeNone Type = "none"
	TypeSQL  Type = "sql"
)

// Connection is a resolved data source.
type Connection interface {
	ID() string
	Type() Type
	// Fingerprint identifies the connection target. It must be stable across
	// processes so it can take part in cache keys.
	Fingerprint() string
}

// None is the placeholder used when a definition declares no connection.
type None struct{}

func (None) ID() string          { return "" }
func (None) Type() Type          { return TypeNone }
func (None) Fingerprint() string { return "none" }

// Resolver looks up connections by id.
type Resolver interface {
	Resolve(ctx context.Context, id string) (Connection, error)
}

// UnknownConnectionError is returned when an id is not registered.
type UnknownConnectionError struct {
	ID string
}

// Error implements the error interface.
func (e *UnknownConnectionError) Error() string {
	return fmt.Sprintf("connection %q is not registered", e.ID)
}

// Catalog is a concurrency safe Resolver backed by registered connections.
type Catalog struct {
	conns *xsync.MapOf[string, Connection]
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{conns: xsync.NewMapOf[string, Connection]()}
}

// Register adds a connection. Registering an id twice is an error.
func (c *Catalog) Register(conn Connection) error {
	if conn == nil || conn.ID() == "" {
		return fmt.Errorf("connection: id is required")
	}
	if _, loaded := c.conns.LoadOrStore(conn.ID(), conn); loaded {
		return fmt.Errorf("connection: %q already registered", conn.ID())
	}
	return nil
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(_ context.Context, id string) (Connection, error) {
	conn, ok := c.conns.Load(id)
	if !ok {
		return nil, &UnknownConnectionError{ID: id}
	}
	return conn, nil
}

// IDs returns the registered ids sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, c.conns.Size())
	c.conns.Range(func(id string, _ Connection) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

// Close closes every connection that holds resources and returns the first error.
func (c *Catalog) Close() error {
	var firstErr error
	c.conns.Range(func(_ string, conn Connection) bool {
		if closer, ok := conn.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return true
	})
	return firstErr
}

var _ Resolver = (*Catalog)(nil)
