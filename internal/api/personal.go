package api

import (
	"errors"

	"github.com/bilgisen/noticias/internal/admin"
	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/middleware"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/news"
	"github.com/bilgisen/noticias/internal/profile"
	"github.com/gofiber/fiber/v2"
)

// Dashboard handles GET /dashboard. An admin-status failure is not fatal:
// the dashboard still renders without the users card.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	console := admin.NewConsole(h.backend, h.auth)
	if _, err := console.Refresh(c.UserContext()); err != nil {
		if errors.Is(err, admin.ErrSessionLost) {
			return err
		}
		msg := "No se pudo verificar el estado de administrador."
		if apierr.KindOf(err) == apierr.KindTransport {
			msg = "Error de red al verificar estado de administrador."
		}
		middleware.NoticesFrom(c).Error(msg)
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{
		"isAdmin": console.IsAdmin(),
		"cards":   console.Cards(),
	})
}

// Logout handles POST /logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	msg, err := h.auth.Logout(ctx)
	h.guard.Forget(ctx)

	n := middleware.NoticesFrom(c)
	switch {
	case err == nil:
		n.Success(orDefault(msg, "Sesión cerrada exitosamente."))
	case apierr.IsUnauthorized(err):
		n.Error(msgUnauthorized)
	case apierr.KindOf(err) == apierr.KindTransport:
		n.Error("Error en la solicitud de logout.")
		return err
	default:
		n.Error(messageOr(err, "Error en la solicitud de logout."))
		return err
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{"destination": "/login"})
}

// GetProfile handles GET /config/profile
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	p, err := h.profile.Get(c.UserContext())
	if err != nil {
		middleware.NoticesFrom(c).Error(profile.MsgLoadFailed)
		return err
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{"profile": p})
}

// UpdateProfile handles PATCH /config/profile
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	p := middleware.Validated[models.Profile](c)
	if err := h.profile.Update(c.UserContext(), *p); err != nil {
		middleware.NoticesFrom(c).Error(profile.FailureMessage(err, profile.MsgUpdateFailed))
		return err
	}
	middleware.NoticesFrom(c).Success(profile.MsgUpdated)
	return h.reply(c, fiber.StatusOK, fiber.Map{"profile": p})
}

// DeleteProfile handles DELETE /config/profile
func (h *Handlers) DeleteProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.profile.Delete(ctx); err != nil {
		middleware.NoticesFrom(c).Error(profile.FailureMessage(err, profile.MsgDeleteFailed))
		return err
	}
	h.guard.Forget(ctx)
	middleware.NoticesFrom(c).Success(profile.MsgDeleted)
	return h.reply(c, fiber.StatusOK, fiber.Map{"destination": "/register"})
}

// ChangePassword handles PATCH /config/password
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	change := middleware.Validated[models.PasswordChange](c)
	if err := h.profile.ChangePassword(c.UserContext(), *change); err != nil {
		fallback := profile.MsgPasswordFailed
		if apierr.KindOf(err) == apierr.KindTransport {
			fallback = profile.MsgPasswordNetwork
		}
		middleware.NoticesFrom(c).Error(profile.FailureMessage(err, fallback))
		return err
	}
	middleware.NoticesFrom(c).Success(profile.MsgPasswordChanged)
	return h.reply(c, fiber.StatusOK, fiber.Map{})
}

// Headlines handles GET /noticias?page=N. The client keeps its own list and
// asks for the next page while hasMore is true.
func (h *Handlers) Headlines(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	result, err := news.FetchPage(c.UserContext(), h.news, page)
	if err != nil {
		msg := news.MsgConnectionFailed
		if page > 1 {
			msg = news.MsgLoadMoreFailed + err.Error()
		}
		middleware.NoticesFrom(c).Error(msg)
		return err
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{
		"articles": result.Articles,
		"page":     result.Page,
		"hasMore":  result.HasMore,
	})
}

// CheckNews handles GET /noticias/check, the dashboard's connection probe
func (h *Handlers) CheckNews(c *fiber.Ctx) error {
	ok := h.news.CheckConnection(c.UserContext())
	if ok {
		middleware.NoticesFrom(c).Success(news.MsgConnected)
	} else {
		logger.Get().Warn().Msg("news provider unreachable")
		middleware.NoticesFrom(c).Error(news.MsgConnectionFailed)
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{"connected": ok})
}
