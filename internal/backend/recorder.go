package backend

import (
	"context"
	"sync"

	"pulse/internal/dialect"
	"pulse/internal/query"
)

// Recorded is a statement a Recorder captured, before and after rendering.
type Recorded struct {
	Text      string
	Params    query.Params
	Statement dialect.Statement
}

// Recorder renders statements in its dialect without running them. Every
// query answers with no rows, so builders run to completion on empty data.
type Recorder struct {
	dialect dialect.Dialect

	mu       sync.Mutex
	recorded []Recorded
}

func NewRecorder(d dialect.Dialect) *Recorder {
	return &Recorder{dialect: d}
}

func (r *Recorder) Dialect() dialect.Dialect {
	return r.dialect
}

func (r *Recorder) Query(ctx context.Context, text string, params query.Params) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &QueryError{Backend: r.dialect.Name(), Err: err}
	}
	stmt, err := r.dialect.Render(text, params)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, Recorded{Text: text, Params: params.Clone(), Statement: stmt})
	return nil, nil
}

// Recorded returns the captured statements in arrival order.
func (r *Recorder) Recorded() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.recorded...)
}
