// Package auth wraps the backend's authentication endpoints. Every
// operation is a single call and validates its input before sending it.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/validation"
)

var (
	// ErrMalformedStatus is returned when a 200 status answer does not carry
	// a boolean isAuthenticated.
	ErrMalformedStatus = apierr.Format(http.StatusOK, errors.New("isAuthenticated missing or not a boolean"))

	// ErrUnknownProvider is returned by OAuthURL for providers the backend
	// does not offer.
	ErrUnknownProvider = errors.New("unknown oauth provider")
)

// Providers the backend offers OAuth sign-in for
var Providers = []string{"google", "github"}

// Service issues the auth calls through a backend client.
type Service struct {
	client *backend.Client
}

// NewService creates a Service
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// Status reports whether the session in ctx is authenticated. A 401 is a
// plain false; any other failure is an error.
func (s *Service) Status(ctx context.Context) (bool, error) {
	status, body, err := s.client.Raw(ctx, http.MethodGet, "/login/status", nil)
	if err != nil {
		return false, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return false, nil
	case status != http.StatusOK:
		return false, apierr.Decode(status, body)
	}

	var out models.AuthStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return false, apierr.Format(status, err)
	}
	if out.IsAuthenticated == nil {
		return false, ErrMalformedStatus
	}
	return *out.IsAuthenticated, nil
}

// Login posts credentials. Only a 200 signs in; every other status is an
// *apierr.Error, and one needing a second factor is recognised with
// apierr.RequiresVerification.
func (s *Service) Login(ctx context.Context, creds models.Credentials) error {
	if err := validation.Struct(creds); err != nil {
		return err
	}
	status, body, err := s.client.Raw(ctx, http.MethodPost, "/login", creds)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apierr.Decode(status, body)
	}
	return nil
}

// Logout ends the session.
func (s *Service) Logout(ctx context.Context) (string, error) {
	return s.message(ctx, http.MethodPost, "/logout", nil)
}

// Register creates an account. The confirmation field is checked here and
// never sent.
func (s *Service) Register(ctx context.Context, reg models.Registration) (string, error) {
	if err := validation.Struct(reg); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/register", reg.Payload())
}

// SendOTP asks for a 6-digit code to be mailed to email.
func (s *Service) SendOTP(ctx context.Context, email string) (string, error) {
	req := models.EmailRequest{Email: email}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/send-otp", req)
}

// RequestEmailVerification asks for a verification link to be mailed.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) (string, error) {
	req := models.EmailRequest{Email: email}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/auth/request-email-verification", req)
}

// CompleteEmailVerification redeems the token from a verification link.
func (s *Service) CompleteEmailVerification(ctx context.Context, token string) (string, error) {
	req := models.TokenRequest{Token: strings.TrimSpace(token)}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/auth/complete-email-verification", req)
}

// VerifyOTP submits the code mailed to email.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	req := models.OTPVerification{Email: email, OTP: code}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/verify-otp", req)
}

// ResendOTP asks for a fresh code.
func (s *Service) ResendOTP(ctx context.Context, email string) (string, error) {
	req := models.EmailRequest{Email: email}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/resend-otp", req)
}

// RequestPasswordReset mails a reset link to email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	req := models.EmailRequest{Email: email}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/reset-password", req)
}

// ResetPassword sets a new password with the token from a reset link.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	token = strings.TrimSpace(token)
	if err := validation.Struct(models.TokenRequest{Token: token}); err != nil {
		return "", err
	}
	req := models.PasswordReset{NewPassword: newPassword}
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	return s.message(ctx, http.MethodPost, "/reset-password/"+url.PathEscape(token), req)
}

// OAuthURL returns the backend URL that starts sign-in with provider. The
// user's browser must open it; the backend sets the session cookie on the
// way back.
func (s *Service) OAuthURL(provider string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	for _, known := range Providers {
		if p == known {
			return s.client.URL("/auth/" + p), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

// AdminStatus reports whether the signed-in user is an admin. A 401 means
// no.
func (s *Service) AdminStatus(ctx context.Context) (bool, error) {
	var out models.AdminStatus
	err := s.client.Do(ctx, http.MethodGet, "/admin/status", nil, &out)
	if apierr.IsUnauthorized(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.IsAdmin, nil
}

func (s *Service) message(ctx context.Context, method, path string, body interface{}) (string, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, method, path, body, &raw); err != nil {
		return "", err
	}
	// success bodies are informational; anything that is not {msg} is ignored
	var out models.Message
	if len(raw) > 0 && json.Unmarshal(raw, &out) != nil {
		return "", nil
	}
	return out.Text(), nil
}
