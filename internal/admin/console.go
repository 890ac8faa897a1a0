// Package admin is the user-management console. Nothing reaches the users
// endpoints unless the backend has said the caller is an admin.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/validation"
)

var (
	// ErrNotAdmin is returned, without any request, when the admin flag is
	// false.
	ErrNotAdmin = errors.New("admin access required")
	// ErrSessionLost wraps a 401 from any admin call.
	ErrSessionLost = errors.New("session lost")
	// ErrMissingID is returned for an empty user id.
	ErrMissingID = errors.New("user id is required")
)

// Card is one dashboard entry
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

var (
	usersCard = Card{Title: "Usuarios", Description: "Administra los usuarios registrados.", Path: "/admin/users"}
	baseCards = []Card{
		{Title: "Noticias", Description: "Consulta las noticias de ultimo momento.", Path: "/noticias"},
		{Title: "Configuración", Description: "Personaliza las configuraciones de tu cuenta.", Path: "/config"},
	}
)

// StatusSource answers the admin question; auth.Service implements it.
type StatusSource interface {
	AdminStatus(ctx context.Context) (bool, error)
}

// Console holds the admin flag of one session.
type Console struct {
	client *backend.Client
	status StatusSource

	mu      sync.RWMutex
	isAdmin bool
}

// NewConsole creates a console. It starts as non-admin until Refresh.
func NewConsole(client *backend.Client, status StatusSource) *Console {
	return &Console{client: client, status: status}
}

// Refresh asks the backend whether the session is an admin. On error the
// flag is cleared.
func (c *Console) Refresh(ctx context.Context) (bool, error) {
	ok, err := c.status.AdminStatus(ctx)

	c.mu.Lock()
	c.isAdmin = ok && err == nil
	c.mu.Unlock()

	if err != nil {
		clog := logger.Component("admin")
		clog.Warn().Err(err).Msg("admin status check failed")
		return false, sessionErr(err)
	}
	return ok, nil
}

// IsAdmin returns the last known admin flag
func (c *Console) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isAdmin
}

// Cards lists the dashboard cards. The users card is only present for
// admins.
func (c *Console) Cards() []Card {
	cards := make([]Card, 0, len(baseCards)+1)
	if c.IsAdmin() {
		cards = append(cards, usersCard)
	}
	return append(cards, baseCards...)
}

// ListUsers returns every user.
func (c *Console) ListUsers(ctx context.Context) ([]models.User, error) {
	if !c.IsAdmin() {
		return nil, ErrNotAdmin
	}
	var raw json.RawMessage
	if err := c.client.Do(ctx, http.MethodGet, "/users", nil, &raw); err != nil {
		return nil, sessionErr(err)
	}
	return decodeUsers(raw)
}

// GetUser returns one user.
func (c *Console) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	path, err := c.userPath(id)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := c.client.Do(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, sessionErr(err)
	}
	return &user, nil
}

// UpdateUser overwrites name, email and role. There is no version check.
func (c *Console) UpdateUser(ctx context.Context, id models.UserID, upd models.UserUpdate) (*models.User, error) {
	path, err := c.userPath(id)
	if err != nil {
		return nil, err
	}
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Email = strings.TrimSpace(upd.Email)
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}

	var user models.User
	if err := c.client.Do(ctx, http.MethodPatch, path, upd, &user); err != nil {
		return nil, sessionErr(err)
	}
	if user.ID == "" {
		user = models.User{ID: id, Name: upd.Name, Email: upd.Email, Role: upd.Role}
	}
	return &user, nil
}

// DeleteUser removes a user.
func (c *Console) DeleteUser(ctx context.Context, id models.UserID) error {
	path, err := c.userPath(id)
	if err != nil {
		return err
	}
	if err := c.client.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return sessionErr(err)
	}
	return nil
}

// decodeUsers accepts a bare array or {"users": [...]}.
func decodeUsers(raw json.RawMessage) ([]models.User, error) {
	users := []models.User{}
	if len(raw) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(raw, &users); err == nil {
		return users, nil
	}
	var wrapped struct {
		Users []models.User `json:"users"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, apierr.Format(http.StatusOK, err)
	}
	if wrapped.Users == nil {
		return users, nil
	}
	return wrapped.Users, nil
}

func (c *Console) userPath(id models.UserID) (string, error) {
	if !c.IsAdmin() {
		return "", ErrNotAdmin
	}
	if strings.TrimSpace(string(id)) == "" {
		return "", ErrMissingID
	}
	return "/users/" + url.PathEscape(string(id)), nil
}

// sessionErr marks 401s so callers can send the user back to login.
func sessionErr(err error) error {
	if apierr.IsUnauthorized(err) {
		return fmt.Errorf("%w: %w", ErrSessionLost, err)
	}
	return err
}
