package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pulse/internal/analytics"
	"pulse/internal/backend"
	"pulse/internal/config"
	"pulse/internal/filters"
	"pulse/internal/query"
	"pulse/internal/segments"
)

// StatusFor maps an error from the analytics stack to an HTTP status and a
// stable error code.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	var compileErr *filters.CompileError
	var missingErr *query.MissingParamError
	var queryErr *backend.QueryError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, "REQUEST_ERROR"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "QUERY_TIMEOUT"
	case errors.As(err, &compileErr):
		return fiber.StatusBadRequest, "INVALID_FILTER"
	case errors.Is(err, segments.ErrNotFound):
		return fiber.StatusBadRequest, "SEGMENT_NOT_FOUND"
	case errors.Is(err, analytics.ErrInvalidRequest):
		return fiber.StatusBadRequest, "INVALID_REQUEST"
	case errors.As(err, &missingErr):
		return fiber.StatusBadRequest, "MISSING_PARAMETER"
	case errors.Is(err, config.ErrNoBackend):
		return fiber.StatusBadRequest, "NO_BACKEND"
	case errors.As(err, &queryErr):
		return fiber.StatusInternalServerError, "QUERY_FAILED"
	default:
		return fiber.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// ErrorHandler renders every error returned by a handler as JSON. Server
// side failures are logged and answered with a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code := StatusFor(err)
		message := err.Error()
		if status >= fiber.StatusInternalServerError {
			logger.Error("Analytics request failed",
				slog.String("path", c.Path()),
				slog.String("code", code),
				slog.Any("error", err))
			if status == fiber.StatusGatewayTimeout {
				message = "Query timed out"
			} else {
				message = "Failed to fetch analytics"
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"error": message,
			"code":  code,
		})
	}
}
