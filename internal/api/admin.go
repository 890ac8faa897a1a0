package api

import (
	"fmt"
	"strings"

	"github.com/bilgisen/noticias/internal/admin"
	"github.com/bilgisen/noticias/internal/middleware"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/validation"
	"github.com/gofiber/fiber/v2"
)

// console returns a console whose admin flag reflects the current session
func (h *Handlers) console(c *fiber.Ctx) (*admin.Console, error) {
	console := admin.NewConsole(h.backend, h.auth)
	if _, err := console.Refresh(c.UserContext()); err != nil {
		return nil, err
	}
	if !console.IsAdmin() {
		middleware.NoticesFrom(c).Error(msgForbidden)
		return nil, admin.ErrNotAdmin
	}
	return console, nil
}

// ListUsers handles GET /admin/users
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	console, err := h.console(c)
	if err != nil {
		return err
	}
	users, err := console.ListUsers(c.UserContext())
	if err != nil {
		middleware.NoticesFrom(c).Error(messageOr(err, "No se pudieron cargar los usuarios."))
		return err
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{"users": users})
}

// GetUser handles GET /admin/users/:id
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	console, err := h.console(c)
	if err != nil {
		return err
	}
	user, err := console.GetUser(c.UserContext(), models.UserID(c.Params("id")))
	if err != nil {
		middleware.NoticesFrom(c).Error(messageOr(err, "No se pudieron cargar los detalles del usuario."))
		return err
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{"user": user})
}

// UpdateUser handles PATCH /admin/users/:id. The console trims the fields
// before validating, so the body is not validated by middleware.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	var upd models.UserUpdate
	if err := c.BodyParser(&upd); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Email = strings.TrimSpace(upd.Email)
	if err := validation.Struct(upd); err != nil {
		return err
	}
	console, err := h.console(c)
	if err != nil {
		return err
	}
	user, err := console.UpdateUser(c.UserContext(), models.UserID(c.Params("id")), upd)
	if err != nil {
		middleware.NoticesFrom(c).Error(messageOr(err, "Error al actualizar el usuario"))
		return err
	}
	middleware.NoticesFrom(c).Success("Usuario actualizado correctamente")
	return h.reply(c, fiber.StatusOK, fiber.Map{"user": user})
}

// DeleteUser handles DELETE /admin/users/:id
func (h *Handlers) DeleteUser(c *fiber.Ctx) error {
	console, err := h.console(c)
	if err != nil {
		return err
	}
	id := models.UserID(c.Params("id"))
	if err := console.DeleteUser(c.UserContext(), id); err != nil {
		middleware.NoticesFrom(c).Error(messageOr(err, "No se pudo eliminar el usuario."))
		return err
	}
	middleware.NoticesFrom(c).Success(fmt.Sprintf("Usuario %s eliminado correctamente.", id))
	return h.reply(c, fiber.StatusOK, fiber.Map{})
}
