package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"pulse/internal/analytics"
	"pulse/internal/backend"
	"pulse/internal/config"
	"pulse/internal/database"
	"pulse/internal/filters"
	api "pulse/internal/http"
	"pulse/internal/logging"
	"pulse/internal/segments"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	kind, err := cfg.Backend()
	if err != nil {
		return err
	}

	// Saved segments live in the relational database whichever backend
	// serves the analytics reads. The relational backend shares that pool.
	var db *gorm.DB
	var lookup filters.SegmentLookup
	if cfg.DatabaseURL != "" {
		if db, err = database.Open(cfg, logger); err != nil {
			return fmt.Errorf("failed to open segment store: %w", err)
		}
		lookup = segments.NewStore(db)
	}

	exec, err := backend.New(ctx, cfg, db, logger, reg)
	if err != nil {
		if db != nil {
			closeDB(db, logger)
		}
		return fmt.Errorf("failed to open analytics backend: %w", err)
	}
	// The executor closes the pool it runs on.
	defer exec.Close()
	if db != nil && kind != config.RelationalBackend {
		defer closeDB(db, logger)
	}

	engine := analytics.NewEngine(exec, lookup, cfg.QueryParallelism, logger)
	app := api.NewApp(api.Deps{
		Config:   cfg,
		Engine:   engine,
		Executor: exec,
		Gatherer: reg,
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", slog.String("port", cfg.AppPort))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal", slog.String("signal", sig.String()))
	}

	logger.Info("Initiating graceful shutdown...")
	if err := app.ShutdownWithTimeout(defaultShutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	logger.Info("Server shutdown complete")
	return nil
}

func closeDB(db *gorm.DB, logger *slog.Logger) {
	if err := database.Close(db); err != nil {
		logger.Error("Failed to close segment store", slog.Any("error", err))
	}
}
