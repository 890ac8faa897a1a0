package middleware

import (
	"github.com/bilgisen/noticias/internal/guard"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// GuardConfig defines the config for the session guard middleware
type GuardConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Guard checks the session forwarded by the Session middleware.
	// Required.
	Guard *guard.Guard

	// DenyHandler answers a refused navigation.
	// Optional. Default: 302 to the login URL for browsers, 401 JSON otherwise
	DenyHandler func(c *fiber.Ctx, d guard.Decision) error
}

// DefaultDenyHandler redirects browsers and answers API clients with JSON.
func DefaultDenyHandler(c *fiber.Ctx, d guard.Decision) error {
	if d.Notice != "" {
		NoticesFrom(c).Error(d.Notice)
	}
	if c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML {
		return c.Redirect(d.Redirect, fiber.StatusFound)
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":    "authentication required",
		"redirect": d.Redirect,
		"notices":  NoticesFrom(c).Drain(),
	})
}

// RequireSession runs the guard before every request it covers. It must
// come after Session so the browser's cookies reach the status check.
func RequireSession(config GuardConfig) fiber.Handler {
	if config.Guard == nil {
		panic("middleware: RequireSession needs a Guard")
	}
	if config.DenyHandler == nil {
		config.DenyHandler = DefaultDenyHandler
	}

	return func(c *fiber.Ctx) error {
		if config.Next != nil && config.Next(c) {
			return c.Next()
		}

		d := config.Guard.Check(c.UserContext(), c.OriginalURL())
		if d.Allow {
			return c.Next()
		}

		if d.Err != nil {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Err(d.Err).
				Msg("session check failed")
		}
		return config.DenyHandler(c, d)
	}
}
