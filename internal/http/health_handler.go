package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"pulse/internal/backend"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DBStatus  string    `json:"db_status"`
	Backend   string    `json:"backend"`
}

const healthTimeout = 2 * time.Second

// HealthIndexAction reports whether the analytics store answers a trivial
// query. The endpoint always answers 200; a failing store is "degraded".
func HealthIndexAction(exec backend.Executor, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if _, err := exec.Query(ctx, "SELECT 1", nil); err != nil {
			dbStatus = "error"
			logger.Error("Database ping failed", slog.Any("error", err))
		}

		health := HealthStatus{
			Status:    "ok",
			Timestamp: time.Now(),
			DBStatus:  dbStatus,
			Backend:   string(exec.Dialect().Name()),
		}

		if dbStatus != "ok" {
			health.Status = "degraded"
		}

		return c.JSON(health)
	}
}
