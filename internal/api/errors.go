package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bilgisen/noticias/internal/admin"
	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/auth"
	"github.com/bilgisen/noticias/internal/flow"
	"github.com/bilgisen/noticias/internal/news"
	"github.com/bilgisen/noticias/internal/profile"
	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
)

const (
	msgUnauthorized = "No autorizado. Por favor, inicia sesión nuevamente."
	msgForbidden    = "No tienes permisos para acceder a esta sección."
	msgNetwork      = "Ocurrió un error de red. Por favor, intenta de nuevo."
)

// Classify maps the domain errors of this app to HTTP answers. It is the
// classifier given to middleware.NewErrorHandler.
func Classify(err error) (int, string, bool) {
	var apiErr *news.APIError
	switch {
	case errors.Is(err, admin.ErrSessionLost), errors.Is(err, profile.ErrSessionLost):
		return fiber.StatusUnauthorized, msgUnauthorized, true
	case errors.Is(err, admin.ErrNotAdmin):
		return fiber.StatusForbidden, msgForbidden, true
	case errors.Is(err, admin.ErrMissingID):
		return fiber.StatusBadRequest, "ID de usuario requerido", true
	case errors.Is(err, profile.ErrExternalProvider):
		return fiber.StatusBadRequest, profile.MsgExternal, true
	case errors.Is(err, flow.ErrInvalidTransition):
		return fiber.StatusConflict, "La acción no está disponible en este momento.", true
	case errors.Is(err, flow.ErrUnknownMethod):
		return fiber.StatusBadRequest, "Selecciona un método de verificación válido.", true
	case errors.Is(err, auth.ErrUnknownProvider):
		return fiber.StatusNotFound, "Proveedor no soportado", true
	case errors.Is(err, news.ErrMissingAPIKey):
		return fiber.StatusServiceUnavailable, news.MsgMissingAPIKey, true
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fiber.StatusServiceUnavailable, news.MsgConnectionFailed, true
	case errors.As(err, &apiErr):
		return fiber.StatusBadGateway, apiErr.Error(), true
	}
	return 0, "", false
}

// isBackendFailure reports an answer (or a missing one) from the backend,
// as opposed to a local rejection.
func isBackendFailure(err error) bool {
	e, ok := apierr.As(err)
	return ok && e.Kind != apierr.KindValidation
}

// statusFor picks the status of a reply that still carries a body.
func statusFor(err error) int {
	e, ok := apierr.As(err)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch {
	case e.Kind == apierr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case e.Kind == apierr.KindRejected && e.Status >= 400 && e.Status < 500:
		return e.Status
	default:
		return fiber.StatusBadGateway
	}
}

// messageOr returns the backend's message, or fallback when there is none.
func messageOr(err error, fallback string) string {
	e, ok := apierr.As(err)
	if !ok {
		return fallback
	}
	if e.Kind == apierr.KindTransport {
		return msgNetwork
	}
	if e.Message == "" || e.Message == http.StatusText(e.Status) {
		return fallback
	}
	return e.Message
}

func resetFailure(err error) string {
	if e, ok := apierr.As(err); ok && e.Status == http.StatusUnprocessableEntity {
		return "Password Invalid try again"
	}
	return "An error has occurred try again"
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
