package api

import (
	"errors"
	"time"

	"github.com/bilgisen/noticias/internal/cache"
	"github.com/bilgisen/noticias/internal/flow"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/notice"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const flowCookie = "noticias_flow"

var errNoFlow = fiber.NewError(fiber.StatusConflict, "No hay una verificación en curso. Inicia sesión de nuevo.")

// flowStore keeps flow snapshots between requests, keyed by a random id in
// an HttpOnly cookie.
type flowStore struct {
	store  cache.Store
	ttl    time.Duration
	secure bool
}

func flowKey(id string) string { return "flow:" + id }

func (s *flowStore) load(c *fiber.Ctx, auth flow.Authenticator, n notice.Notifier) (*flow.Flow, string, error) {
	id := c.Cookies(flowCookie)
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", errNoFlow
	}

	var snap flow.Snapshot
	if err := cache.GetJSON(c.UserContext(), s.store, flowKey(id), &snap); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, "", errNoFlow
		}
		return nil, "", err
	}

	f, err := flow.Restore(snap, auth, n)
	if err != nil {
		logger.Get().Warn().Err(err).Msg("discarding stored flow")
		return nil, "", errNoFlow
	}
	return f, id, nil
}

func (s *flowStore) save(c *fiber.Ctx, id string, f *flow.Flow) error {
	if id == "" {
		id = uuid.NewString()
	}
	if err := cache.SetJSON(c.UserContext(), s.store, flowKey(id), f.Snapshot(), s.ttl); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     flowCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (s *flowStore) drop(c *fiber.Ctx, id string) {
	if id == "" {
		id = c.Cookies(flowCookie)
	}
	if id == "" {
		return
	}
	if err := s.store.Delete(c.UserContext(), flowKey(id)); err != nil {
		logger.Get().Debug().Err(err).Msg("flow delete failed")
	}
	c.ClearCookie(flowCookie)
}
