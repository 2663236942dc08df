package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pulse/internal/dialect"
	"pulse/internal/query"
)

// Metrics are the prometheus collectors query execution reports to.
type Metrics struct {
	Duration *prometheus.HistogramVec
	Rows     *prometheus.HistogramVec
	Errors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulse",
			Name:      "query_duration_seconds",
			Help:      "Time spent executing analytics queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "status"}),
		Rows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulse",
			Name:      "query_rows",
			Help:      "Rows returned by analytics queries",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"backend"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Name:      "query_errors_total",
			Help:      "Analytics queries that failed, by kind",
		}, []string{"backend", "kind"}),
	}

	for _, c := range []prometheus.Collector{m.Duration, m.Rows, m.Errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Instrumented wraps an Executor with logging and metrics.
type Instrumented struct {
	next    Executor
	logger  *slog.Logger
	metrics *Metrics
}

func NewInstrumented(next Executor, logger *slog.Logger, metrics *Metrics) *Instrumented {
	return &Instrumented{next: next, logger: logger, metrics: metrics}
}

func (i *Instrumented) Dialect() dialect.Dialect {
	return i.next.Dialect()
}

func (i *Instrumented) Query(ctx context.Context, text string, params query.Params) ([]Row, error) {
	name := string(i.next.Dialect().Name())
	start := time.Now()

	rows, err := i.next.Query(ctx, text, params)
	elapsed := time.Since(start)

	if err != nil {
		kind := errorKind(err)
		if i.metrics != nil {
			i.metrics.Duration.WithLabelValues(name, "error").Observe(elapsed.Seconds())
			i.metrics.Errors.WithLabelValues(name, kind).Inc()
		}
		i.logger.Error("Analytics query failed",
			slog.String("backend", name),
			slog.String("kind", kind),
			slog.Duration("duration", elapsed),
			slog.Any("error", err))
		return nil, err
	}

	if i.metrics != nil {
		i.metrics.Duration.WithLabelValues(name, "ok").Observe(elapsed.Seconds())
		i.metrics.Rows.WithLabelValues(name).Observe(float64(len(rows)))
	}
	i.logger.Debug("Analytics query executed",
		slog.String("backend", name),
		slog.Duration("duration", elapsed),
		slog.Int("rows", len(rows)))
	return rows, nil
}

// Close releases the wrapped executor's connections when it holds any.
func (i *Instrumented) Close() error {
	if c, ok := i.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func errorKind(err error) string {
	var missing *query.MissingParamError
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &missing):
		return "render"
	default:
		return "backend"
	}
}
