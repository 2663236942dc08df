package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"pulse/internal/config"
	"pulse/internal/database"
)

// New picks the executor for this process from cfg: ClickHouse when a
// columnar URL is configured, PostgreSQL when only a relational URL is, and
// config.ErrNoBackend otherwise. The result is instrumented and registered
// with reg. db is an already open relational pool to run on; when nil and
// the relational backend is selected, a pool is opened from cfg. Either way
// the returned executor's Close closes the relational pool.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger, reg prometheus.Registerer) (*Instrumented, error) {
	kind, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	var exec Executor
	switch kind {
	case config.ColumnarBackend:
		exec, err = OpenColumnar(ctx, cfg, logger)
	case config.RelationalBackend:
		if db == nil {
			if db, err = database.Open(cfg, logger); err != nil {
				return nil, err
			}
		}
		exec = NewRelational(db)
	default:
		err = fmt.Errorf("unsupported backend %q", kind)
	}
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register query metrics: %w", err)
	}

	logger.Info("Analytics backend selected", slog.String("backend", kind))
	return NewInstrumented(exec, logger, metrics), nil
}
