package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pulse/internal/analytics"
	"pulse/internal/filters"
	"pulse/internal/http/middleware"
	"pulse/internal/timeframe"
)

// AnalyticsHandler serves the report builders for one website.
type AnalyticsHandler struct {
	engine *analytics.Engine
	parser *timeframe.Parser
	logger *slog.Logger
}

func NewAnalyticsHandler(engine *analytics.Engine, parser *timeframe.Parser, logger *slog.Logger) *AnalyticsHandler {
	if parser == nil {
		parser = timeframe.NewParser()
	}
	return &AnalyticsHandler{engine: engine, parser: parser, logger: logger}
}

type funnelRequest struct {
	Steps  []analytics.Step `json:"steps"`
	Window int              `json:"window"`
}

type attributionRequest struct {
	Model    string         `json:"model"`
	Step     analytics.Step `json:"step"`
	Currency string         `json:"currency"`
}

func (h *AnalyticsHandler) queryFilters(c *fiber.Ctx) (*filters.QueryFilters, error) {
	return parseQueryFilters(c, h.parser)
}

// Metrics handles GET /metrics?type=<dimension>
func (h *AnalyticsHandler) Metrics(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetMetrics(c.UserContext(), middleware.WebsiteID(c),
		analytics.MetricParams{Type: c.Query("type")}, qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// ExpandedMetrics handles GET /metrics/expanded?type=<dimension>
func (h *AnalyticsHandler) ExpandedMetrics(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetExpandedMetrics(c.UserContext(), middleware.WebsiteID(c),
		analytics.MetricParams{Type: c.Query("type")}, qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Channels(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetChannels(c.UserContext(), middleware.WebsiteID(c), qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetWebsiteStats(c.UserContext(), middleware.WebsiteID(c), qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Pageviews(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetPageviewStats(c.UserContext(), middleware.WebsiteID(c), qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Journey handles GET /journey?steps=<n>&startStep=&endStep=
func (h *AnalyticsHandler) Journey(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	params := analytics.JourneyParams{
		Steps:     c.QueryInt("steps", 0),
		StartStep: c.Query("startStep"),
		EndStep:   c.Query("endStep"),
	}
	result, err := h.engine.GetJourney(c.UserContext(), middleware.WebsiteID(c), params, qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Funnel handles POST /funnel with the steps and window in the body and the
// filters in the query string.
func (h *AnalyticsHandler) Funnel(c *fiber.Ctx) error {
	var req funnelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetFunnel(c.UserContext(), middleware.WebsiteID(c),
		analytics.FunnelParams{Steps: req.Steps, Window: req.Window}, qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Attribution(c *fiber.Ctx) error {
	var req attributionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetAttribution(c.UserContext(), middleware.WebsiteID(c),
		analytics.AttributionParams{Model: req.Model, Step: req.Step, Currency: req.Currency}, qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Revenue handles GET /revenue?currency=<code>
func (h *AnalyticsHandler) Revenue(c *fiber.Ctx) error {
	qf, err := h.queryFilters(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetRevenue(c.UserContext(), middleware.WebsiteID(c),
		analytics.RevenueParams{Currency: c.Query("currency")}, qf)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
