package middleware

import (
	"net/http"

	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/notice"
	"github.com/gofiber/fiber/v2"
)

const noticesKey = "notices"

// SessionConfig defines the config for the session middleware
type SessionConfig struct {
	// SecureCookies marks relayed cookies Secure.
	// Optional. Default: false
	SecureCookies bool
}

// Session forwards the browser's Cookie header to every backend call made
// with c.UserContext() and relays the backend's Set-Cookie headers back.
// Domain attributes are dropped so the cookies stick to this host.
func Session(config ...SessionConfig) fiber.Handler {
	var cfg SessionConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		s := &backend.Session{Cookie: c.Get(fiber.HeaderCookie)}
		c.SetUserContext(backend.WithSession(c.UserContext(), s))

		err := c.Next()

		for _, raw := range s.SetCookies() {
			cookie, perr := http.ParseSetCookie(raw)
			if perr != nil {
				logger.Get().Warn().Err(perr).Msg("dropping unparsable backend cookie")
				continue
			}
			cookie.Domain = ""
			if cfg.SecureCookies {
				cookie.Secure = true
			}
			c.Response().Header.Add(fiber.HeaderSetCookie, cookie.String())
		}
		return err
	}
}

// Notices gives every request its own notice collector.
func Notices() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(noticesKey, &notice.Collector{})
		return c.Next()
	}
}

// NoticesFrom returns the request's collector, creating one if the
// Notices middleware did not run.
func NoticesFrom(c *fiber.Ctx) *notice.Collector {
	if n, ok := c.Locals(noticesKey).(*notice.Collector); ok {
		return n
	}
	n := &notice.Collector{}
	c.Locals(noticesKey, n)
	return n
}
