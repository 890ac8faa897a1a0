package middleware

import (
	"errors"
	"net/http"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/validation"
	"github.com/gofiber/fiber/v2"
)

const validatedKey = "validated"

// ValidateRequest parses the body into a fresh T and validates it. Failures
// answer 400 (unreadable body) or 422 (field errors) before the handler, and
// so before any backend call. The handler reads the value with Validated.
func ValidateRequest[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := new(T)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(s); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
					"msg":   err.Error(),
				})
			}
		}

		if err := validation.Struct(s); err != nil {
			return err
		}

		c.Locals(validatedKey, s)
		return c.Next()
	}
}

// Validated returns the value stored by ValidateRequest[T].
func Validated[T any](c *fiber.Ctx) *T {
	if v, ok := c.Locals(validatedKey).(*T); ok {
		return v
	}
	return new(T)
}

// Classifier maps domain errors to a status and a user-facing message.
// ok is false for errors it does not know.
type Classifier func(err error) (status int, message string, ok bool)

// NewErrorHandler answers every error as JSON. Field errors become 422 with
// the per-field messages, backend errors keep their meaning, and classify
// covers the rest.
func NewErrorHandler(classify Classifier) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, body := errorResponse(err, classify)
		if notices := NoticesFrom(c).Drain(); len(notices) > 0 {
			body["notices"] = notices
		}

		event := logger.Get().Warn()
		if code >= fiber.StatusInternalServerError {
			event = logger.Get().Error()
		}
		event.
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")

		return c.Status(code).JSON(body)
	}
}

// ErrorHandler is NewErrorHandler without domain mappings
var ErrorHandler = NewErrorHandler(nil)

func errorResponse(err error, classify Classifier) (int, fiber.Map) {
	var verr validation.Errors
	if errors.As(err, &verr) {
		return fiber.StatusUnprocessableEntity, fiber.Map{
			"error":  "Validation failed",
			"fields": verr,
		}
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, fiber.Map{"error": ferr.Message}
	}

	if classify != nil {
		if code, msg, ok := classify(err); ok {
			body := fiber.Map{"error": msg}
			if code == fiber.StatusUnauthorized {
				body["redirect"] = "/login"
			}
			return code, body
		}
	}

	if e, ok := apierr.As(err); ok {
		switch e.Kind {
		case apierr.KindUnauthorized:
			return fiber.StatusUnauthorized, fiber.Map{"error": e.UserMessage("No autorizado"), "redirect": "/login"}
		case apierr.KindRejected:
			code := e.Status
			if code < 400 || code >= 500 {
				code = fiber.StatusBadGateway
			}
			body := fiber.Map{"error": e.UserMessage(http.StatusText(code))}
			if len(e.Details) > 0 {
				body["details"] = e.Details
			}
			return code, body
		default:
			return fiber.StatusBadGateway, fiber.Map{"error": "backend unavailable"}
		}
	}

	return fiber.StatusInternalServerError, fiber.Map{"error": http.StatusText(fiber.StatusInternalServerError)}
}
