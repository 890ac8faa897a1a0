package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) (*Service, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewService(backend.New(srv.URL)), &hits
}

var goodChange = models.PasswordChange{OldPassword: "old", NewPassword: "N3w!passw"}

func TestGet(t *testing.T) {
	svc, _ := serve(t, 200, `{"name":"Ana","email":"ana@example.com","role":"user"}`)
	p, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
}

func TestUpdateValidatesFirst(t *testing.T) {
	svc, hits := serve(t, 200, `{}`)
	err := svc.Update(context.Background(), models.Profile{Name: " ", Email: "ana@example.com"})
	assert.True(t, validation.IsValidation(err))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestChangePasswordExternalProvider(t *testing.T) {
	svc, _ := serve(t, 400, `{"msg":"Usuario registrado con proveedor externo"}`)
	err := svc.ChangePassword(context.Background(), goodChange)
	assert.ErrorIs(t, err, ErrExternalProvider)
	assert.Equal(t, MsgExternal, FailureMessage(err, MsgPasswordFailed))
}

func TestChangePasswordFirstFieldError(t *testing.T) {
	svc, _ := serve(t, 422, `{"errors":[{"msg":"La contraseña actual es incorrecta"},{"msg":"otra"}]}`)
	err := svc.ChangePassword(context.Background(), goodChange)
	require.Error(t, err)
	assert.Equal(t, "La contraseña actual es incorrecta", FailureMessage(err, MsgPasswordFailed))
}

func TestChangePasswordPolicy(t *testing.T) {
	svc, hits := serve(t, 200, `{}`)
	err := svc.ChangePassword(context.Background(), models.PasswordChange{OldPassword: "old", NewPassword: "alllowercase1!"})
	assert.True(t, validation.IsValidation(err))
	assert.Equal(t, "Debe contener al menos una letra mayúscula.", FailureMessage(err, MsgPasswordFailed))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestDeleteUnauthorized(t *testing.T) {
	svc, _ := serve(t, 401, `{"msg":"No autorizado"}`)
	err := svc.Delete(context.Background())
	assert.ErrorIs(t, err, ErrSessionLost)
	assert.True(t, apierr.IsUnauthorized(err))
}

func TestFailureMessageTransport(t *testing.T) {
	assert.Equal(t, MsgPasswordNetwork, FailureMessage(apierr.Transport(assert.AnError), MsgPasswordNetwork))
}
