// Package profile is the signed-in user's self-service: read, update and
// delete the own account and change its password.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/validation"
)

// Messages shown after each operation
const (
	MsgUpdated         = "Perfil actualizado con éxito"
	MsgUpdateFailed    = "Error al actualizar el perfil"
	MsgLoadFailed      = "Error al cargar los datos del perfil"
	MsgDeleted         = "Perfil eliminado con éxito"
	MsgDeleteFailed    = "Error al eliminar el perfil"
	MsgPasswordChanged = "Contraseña cambiada exitosamente"
	MsgPasswordFailed  = "Error al cambiar la contraseña."
	MsgPasswordNetwork = "Error cambiando contraseña. Inténtalo de nuevo."
	MsgExternal        = "Tienes que crearte una cuenta con usuario y contraseña estas registrado usando un proveedor externo (ej. Google)."
)

var (
	// ErrExternalProvider is returned when the account signs in through an
	// OAuth provider and has no password to change.
	ErrExternalProvider = errors.New("account uses an external provider")
	// ErrSessionLost wraps a 401.
	ErrSessionLost = errors.New("session lost")
)

// Service talks to /profile.
type Service struct {
	client *backend.Client
}

// NewService creates a Service
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// Get returns the own profile.
func (s *Service) Get(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := s.client.Do(ctx, http.MethodGet, "/profile", nil, &p); err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

// Update saves name and email.
func (s *Service) Update(ctx context.Context, p models.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if err := validation.Struct(p); err != nil {
		return err
	}
	return wrap(s.client.Do(ctx, http.MethodPatch, "/profile", p, nil))
}

// Delete removes the account. The session is gone afterwards.
func (s *Service) Delete(ctx context.Context) error {
	return wrap(s.client.Do(ctx, http.MethodDelete, "/profile", nil, nil))
}

// ChangePassword replaces the password after checking the new one against
// the password policy.
func (s *Service) ChangePassword(ctx context.Context, change models.PasswordChange) error {
	if err := validation.Struct(change); err != nil {
		return err
	}
	err := s.client.Do(ctx, http.MethodPatch, "/profile/change-password", change, nil)
	if apierr.IsExternalProvider(err) {
		return fmt.Errorf("%w: %w", ErrExternalProvider, err)
	}
	return wrap(err)
}

// FailureMessage picks the text to show for a failed operation: the
// external-provider notice, then the first backend field error, then the
// backend message, then fallback.
func FailureMessage(err error, fallback string) string {
	if errors.Is(err, ErrExternalProvider) {
		return MsgExternal
	}
	var verr validation.Errors
	if errors.As(err, &verr) {
		return verr.First("name", "email", "oldPassword", "newPassword")
	}
	e, ok := apierr.As(err)
	if !ok || e.Kind == apierr.KindTransport {
		return fallback
	}
	if len(e.Details) > 0 {
		return e.Details[0]
	}
	return e.UserMessage(fallback)
}

func wrap(err error) error {
	if err != nil && apierr.IsUnauthorized(err) {
		return fmt.Errorf("%w: %w", ErrSessionLost, err)
	}
	return err
}
