package dataaccess

import "fmt"

// Stage names the pipeline step a QueryError came from.
type Stage string

const (
	StageRoute       Stage = "route request"
	StageParameters  Stage = "resolve parameters"
	StageConnection  Stage = "resolve connection"
	StageKey         Stage = "build cache key"
	StageExecute     Stage = "execute"
	StagePostProcess Stage = "post-process"
	StageCopy        Stage = "copy result"
)

// QueryError is the only error QueryDataSource returns. The cause is
// reachable through errors.Is and errors.As.
type QueryError struct {
	DataAccessID string
	Stage        Stage
	Err          error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("data access %q: %s: %v", e.DataAccessID, e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ConnectionResolutionError reports a declared connection that could not be resolved.
type ConnectionResolutionError struct {
	ConnectionID string
	Err          error
}

// Error implements the error interface.
func (e *ConnectionResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve connection %q: %v", e.ConnectionID, e.Err)
}

func (e *ConnectionResolutionError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a collaborator of the pipeline,
// such as the query performer, the copier or the cache store.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}
