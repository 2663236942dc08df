// Package http exposes the analytics builders as a JSON API.
package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/internal/analytics"
	"pulse/internal/backend"
	"pulse/internal/config"
	"pulse/internal/http/middleware"
)

// Deps is everything the API needs to serve requests.
type Deps struct {
	Config   *config.Config
	Engine   *analytics.Engine
	Executor backend.Executor
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewApp builds the fiber application with every route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pulse",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(d.Logger),
	})
	app.Use(recover.New())

	app.Get("/health", HealthIndexAction(d.Executor, d.Logger))
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	h := NewAnalyticsHandler(d.Engine, nil, d.Logger)
	api := app.Group("/api/websites/:websiteId",
		middleware.APIKeyAuth(d.Config.APIKey, d.Logger),
		middleware.RequestTimeout(d.Config.QueryTimeout()),
		middleware.WebsiteParam(d.Logger),
	)
	api.Get("/metrics", h.Metrics)
	api.Get("/metrics/expanded", h.ExpandedMetrics)
	api.Get("/channels", h.Channels)
	api.Get("/stats", h.Stats)
	api.Get("/pageviews", h.Pageviews)
	api.Get("/journey", h.Journey)
	api.Post("/funnel", h.Funnel)
	api.Post("/attribution", h.Attribution)
	api.Get("/revenue", h.Revenue)

	return app
}
