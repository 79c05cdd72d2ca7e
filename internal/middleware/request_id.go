package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID reads or generates a request id and echoes it in the response.
func RequestID(header string) fiber.Handler {
	if header == "" {
		header = "X-Request-ID"
	}
	return func(c *fiber.Ctx) error {
		rid := c.Get(header)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals(requestIDKey, rid)
		c.Set(header, rid)
		return c.Next()
	}
}

// RequestIDFromContext returns the id stored by RequestID.
func RequestIDFromContext(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
