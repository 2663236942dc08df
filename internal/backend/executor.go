// Package backend runs rendered analytics SQL against the active store.
// Exactly one Executor serves a process; it is chosen once at startup.
package backend

import (
	"context"
	"fmt"

	"pulse/internal/dialect"
	"pulse/internal/query"
)

// Row is one result record keyed by column name.
type Row = map[string]any

// Executor renders template text in its dialect and runs it.
type Executor interface {
	Dialect() dialect.Dialect
	Query(ctx context.Context, text string, params query.Params) ([]Row, error)
}

// QueryError is a failure reported by the store or its driver: connectivity,
// SQL errors, type mismatches and cancellation. The driver error stays
// reachable through Unwrap.
type QueryError struct {
	Backend dialect.Name
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Backend, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
