// Package async runs independent named tasks with bounded parallelism.
package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

// Pool runs at most workerCount tasks at once.
type Pool struct {
	workerCount int
}

// NewPool returns a pool. A workerCount below 1 runs tasks one at a time.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs every task and returns their results keyed by name. The first
// failure cancels the context handed to the remaining tasks and is returned
// alone; no partial results are reported.
func (p *Pool) Execute(ctx context.Context, tasks []Task) (map[string]any, error) {
	results := make([]any, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount)

	for i := range tasks {
		i := i
		task := tasks[i]
		g.Go(func() error {
			data, err := task.Execute(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			results[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(tasks))
	for i, task := range tasks {
		out[task.Name] = results[i]
	}
	return out, nil
}
