package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const websiteIDKey = "website_id"

// WebsiteParam parses the :websiteId route parameter and stores it in the
// request locals for handlers to read with WebsiteID.
func WebsiteParam(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("websiteId")
		websiteID, err := uuid.Parse(raw)
		if err != nil || websiteID == uuid.Nil {
			logger.Warn("Invalid website_id provided",
				slog.String("website_id", raw),
				slog.Any("error", err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid website id",
				"code":  "INVALID_WEBSITE",
			})
		}
		c.Locals(websiteIDKey, websiteID)
		return c.Next()
	}
}

// WebsiteID returns the website set by WebsiteParam, uuid.Nil if none.
func WebsiteID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(websiteIDKey).(uuid.UUID)
	return id
}
