package dataaccess

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/parameter"
)

// Definition is the static description of a data access. It is read only
// while queries run.
// ConnectionType set to connection.TypeNone runs without a connection.
// CacheDuration is the result TTL in seconds.
type Definition struct {
	ID             string
	Name           string
	ConnectionID   string
	ConnectionType connection.Type
	Query          string
	Cache          bool
	CacheDuration  int
	Parameters     parameter.Set
}

// UsesConnection reports whether a connection must be resolved before running.
func (d Definition) UsesConnection() bool {
	return d.ConnectionType != connection.TypeNone
}

// TTL returns CacheDuration as a duration.
func (d Definition) TTL() time.Duration {
	return time.Duration(d.CacheDuration) * time.Second
}

// Validate checks the definition is runnable.
func (d Definition) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Query, validation.Required),
		validation.Field(&d.CacheDuration,
			validation.Min(0),
			validation.When(d.Cache, validation.Required.Error("must be positive when caching is enabled")),
		),
		validation.Field(&d.ConnectionID, validation.When(d.UsesConnection(), validation.Required)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid data access definition").
			WithTextCode("DEFINITION_INVALID")
	}
	return nil
}

// RequestOptions carries the per call input. It is not modified.
type RequestOptions struct {
	DataAccessID string
	Parameters   map[string]any
	CacheBypass  bool
}
