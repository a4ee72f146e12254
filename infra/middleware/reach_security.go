package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds security headers to all responses. The API serves
// JSON only, so framing and content loading are denied outright.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		// Tier and notification payloads are per-user.
		if c.Get(fiber.HeaderAuthorization) != "" {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}

		return c.Next()
	}
}
