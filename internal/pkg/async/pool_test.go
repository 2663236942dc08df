package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecute(t *testing.T) {
	t.Run("collects results by name", func(t *testing.T) {
		pool := NewPool(2)
		results, err := pool.Execute(context.Background(), []Task{
			{Name: "a", Execute: func(context.Context) (any, error) { return 1, nil }},
			{Name: "b", Execute: func(context.Context) (any, error) { return "two", nil }},
			{Name: "c", Execute: func(context.Context) (any, error) { return nil, nil }},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1, "b": "two", "c": nil}, results)
	})

	t.Run("respects the worker limit", func(t *testing.T) {
		pool := NewPool(2)
		var running, peak int32

		tasks := make([]Task, 6)
		for i := range tasks {
			tasks[i] = Task{Name: string(rune('a' + i)), Execute: func(context.Context) (any, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			}}
		}

		_, err := pool.Execute(context.Background(), tasks)
		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("first error fails the whole run", func(t *testing.T) {
		boom := errors.New("boom")
		pool := NewPool(1)
		results, err := pool.Execute(context.Background(), []Task{
			{Name: "ok", Execute: func(context.Context) (any, error) { return 1, nil }},
			{Name: "bad", Execute: func(context.Context) (any, error) { return nil, boom }},
			{Name: "after", Execute: func(ctx context.Context) (any, error) { return nil, ctx.Err() }},
		})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "bad")
		assert.Nil(t, results)
	})

	t.Run("zero workers runs sequentially", func(t *testing.T) {
		assert.Equal(t, 1, NewPool(0).workerCount)
	})
}
