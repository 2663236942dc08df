package testsupport

import (
	"context"
	"strings"
	"sync"

	"pulse/internal/backend"
	"pulse/internal/dialect"
	"pulse/internal/query"
)

// Call is one statement a FakeExecutor received.
type Call struct {
	Text      string
	Params    query.Params
	Statement dialect.Statement
}

type cannedResponse struct {
	match string
	rows  []backend.Row
	err   error
}

// FakeExecutor is a backend.Executor that renders every statement in its
// dialect, records it and answers with canned rows. Responses are matched by
// substring in registration order; unmatched statements return no rows.
type FakeExecutor struct {
	dialect   dialect.Dialect
	mu        sync.Mutex
	calls     []Call
	responses []cannedResponse
}

func NewFakeExecutor(d dialect.Dialect) *FakeExecutor {
	return &FakeExecutor{dialect: d}
}

// On answers statements whose template text contains match with rows.
func (f *FakeExecutor) On(match string, rows ...backend.Row) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, cannedResponse{match: match, rows: rows})
	return f
}

// OnError fails statements whose template text contains match with err.
func (f *FakeExecutor) OnError(match string, err error) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, cannedResponse{match: match, err: err})
	return f
}

func (f *FakeExecutor) Dialect() dialect.Dialect {
	return f.dialect
}

func (f *FakeExecutor) Query(ctx context.Context, text string, params query.Params) ([]backend.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backend.QueryError{Backend: f.dialect.Name(), Err: err}
	}

	stmt, err := f.dialect.Render(text, params)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Text: text, Params: params.Clone(), Statement: stmt})

	for _, r := range f.responses {
		if strings.Contains(text, r.match) {
			if r.err != nil {
				return nil, &backend.QueryError{Backend: f.dialect.Name(), Err: r.err}
			}
			return cloneRows(r.rows), nil
		}
	}
	return []backend.Row{}, nil
}

// Calls returns the statements received so far.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// LastCall returns the most recent statement. It panics when there is none.
func (f *FakeExecutor) LastCall() Call {
	calls := f.Calls()
	return calls[len(calls)-1]
}

func cloneRows(rows []backend.Row) []backend.Row {
	out := make([]backend.Row, len(rows))
	for i, r := range rows {
		c := make(backend.Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
