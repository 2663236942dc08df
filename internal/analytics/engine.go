// Package analytics answers analytics questions over stored events. Each
// builder compiles the request filters, assembles SQL for the active dialect,
// runs it and shapes the rows into typed results.
package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pulse/internal/backend"
	"pulse/internal/dialect"
	"pulse/internal/events"
	"pulse/internal/filters"
	"pulse/internal/pkg/async"
	"pulse/internal/query"
)

// Engine runs analytics builders against one executor.
type Engine struct {
	exec     backend.Executor
	compiler *filters.Compiler
	pool     *async.Pool
	logger   *slog.Logger
}

// NewEngine returns an engine. lookup resolves segments and cohorts and may
// be nil. parallelism bounds how many independent sub-queries of one builder
// run at once; 1 runs them in sequence.
func NewEngine(exec backend.Executor, lookup filters.SegmentLookup, parallelism int, logger *slog.Logger) *Engine {
	return &Engine{
		exec:     exec,
		compiler: filters.NewCompiler(exec.Dialect(), lookup),
		pool:     async.NewPool(parallelism),
		logger:   logger,
	}
}

// Dialect is the dialect statements are built for.
func (e *Engine) Dialect() dialect.Dialect {
	return e.exec.Dialect()
}

// scope copies qf and pins it to websiteID.
func scope(websiteID uuid.UUID, qf *filters.QueryFilters) *filters.QueryFilters {
	out := &filters.QueryFilters{}
	if qf != nil {
		*out = *qf
	}
	out.WebsiteID = websiteID
	return out
}

// withEventType returns qf with eventType set unless the caller chose one.
func withEventType(qf *filters.QueryFilters, eventType events.EventType) *filters.QueryFilters {
	if qf.EventType != 0 {
		return qf
	}
	out := *qf
	out.EventType = eventType
	return &out
}

func (e *Engine) compile(ctx context.Context, qf *filters.QueryFilters, opts filters.Options) (*filters.Compiled, error) {
	return e.compiler.Compile(ctx, qf, opts)
}

// run executes one statement. what names the result for error messages.
func (e *Engine) run(ctx context.Context, what, text string, params query.Params) ([]backend.Row, error) {
	rows, err := e.exec.Query(ctx, text, params)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", what, err)
	}
	return rows, nil
}

// parallel runs independent statements sharing params through the pool and
// returns their rows by name.
func (e *Engine) parallel(ctx context.Context, texts map[string]string, params query.Params) (map[string][]backend.Row, error) {
	statements := make(map[string]query.Statement, len(texts))
	for name, text := range texts {
		statements[name] = query.Statement{Text: text, Params: params}
	}
	return e.parallelStatements(ctx, statements)
}

// parallelStatements runs independent statements through the pool. Any
// failure fails the whole call and no partial result is returned.
func (e *Engine) parallelStatements(ctx context.Context, statements map[string]query.Statement) (map[string][]backend.Row, error) {
	tasks := make([]async.Task, 0, len(statements))
	for name, stmt := range statements {
		stmt := stmt
		tasks = append(tasks, async.Task{
			Name: name,
			Execute: func(ctx context.Context) (any, error) {
				return e.exec.Query(ctx, stmt.Text, stmt.Params)
			},
		})
	}

	results, err := e.pool.Execute(ctx, tasks)
	if err != nil {
		// the pool prefixes the failing task's name
		return nil, fmt.Errorf("error fetching %w", err)
	}

	out := make(map[string][]backend.Row, len(results))
	for name, data := range results {
		out[name] = data.([]backend.Row)
	}
	return out, nil
}
