package admin

import (
	"context"
	"encoding/json"
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

type staticStatus struct {
	ok  bool
	err error
}

func (s staticStatus) AdminStatus(ctx context.Context) (bool, error) { return s.ok, s.err }

func newServer(t *testing.T, hits *int32, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func adminConsole(t *testing.T, srv *httptest.Server) *Console {
	t.Helper()
	c := NewConsole(backend.New(srv.URL), staticStatus{ok: true})
	ok, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	return c
}

func TestNonAdminSendsNothing(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	c := NewConsole(backend.New(srv.URL), staticStatus{ok: false})
	ctx := context.Background()

	ok, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, card := range c.Cards() {
		assert.NotEqual(t, "/admin/users", card.Path)
	}

	_, err = c.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = c.GetUser(ctx, "1")
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = c.UpdateUser(ctx, "1", models.UserUpdate{Name: "A", Email: "a@b.co", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, c.DeleteUser(ctx, "1"), ErrNotAdmin)

	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAdminSeesUsersCard(t *testing.T) {
	var hits int32
	c := adminConsole(t, newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {}))
	assert.Equal(t, "/admin/users", c.Cards()[0].Path)
	assert.Len(t, c.Cards(), 3)
}

func TestRefreshErrorClearsFlag(t *testing.T) {
	c := NewConsole(backend.New("http://unused"), staticStatus{ok: true})
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	c.status = staticStatus{err: apierr.Transport(assert.AnError)}
	_, err = c.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, c.IsAdmin())
}

func TestListUsersShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":   `[{"id":1,"name":"Ana","email":"ana@example.com","role":"admin"}]`,
		"wrapped": `{"users":[{"id":"1","name":"Ana","email":"ana@example.com","role":"admin"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			var hits int32
			c := adminConsole(t, newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/users", r.URL.Path)
				w.Write([]byte(body))
			}))

			users, err := c.ListUsers(context.Background())
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, models.UserID("1"), users[0].ID)
			assert.Equal(t, models.RoleAdmin, users[0].Role)
		})
	}
}

func TestUpdateUserValidatesFirst(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {})
	c := adminConsole(t, srv)
	ctx := context.Background()

	bad := []models.UserUpdate{
		{Name: "   ", Email: "ana@example.com", Role: models.RoleUser},
		{Name: "Ana", Email: "ana@example", Role: models.RoleUser},
		{Name: "Ana", Email: "ana@example.com", Role: "root"},
	}
	for _, upd := range bad {
		_, err := c.UpdateUser(ctx, "7", upd)
		assert.True(t, validation.IsValidation(err), "%+v", upd)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestUpdateUserSendsFields(t *testing.T) {
	var hits int32
	c := adminConsole(t, newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/users/7", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "Ana", "email": "ana@example.com", "role": "admin"}, body)
		w.Write([]byte(`{"msg":"Usuario actualizado"}`))
	}))

	user, err := c.UpdateUser(context.Background(), "7", models.UserUpdate{Name: " Ana ", Email: "ana@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.UserID("7"), user.ID)
	assert.Equal(t, "Ana", user.Name)
}

func TestUnauthorizedIsSessionLost(t *testing.T) {
	var hits int32
	c := adminConsole(t, newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"No autorizado"}`))
	}))

	err := c.DeleteUser(context.Background(), "7")
	assert.ErrorIs(t, err, ErrSessionLost)
	assert.True(t, apierr.IsUnauthorized(err))
}

func TestOtherFailuresKeepTheirKind(t *testing.T) {
	var hits int32
	c := adminConsole(t, newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Usuario no encontrado"}`))
	}))

	_, err := c.GetUser(context.Background(), "99")
	assert.NotErrorIs(t, err, ErrSessionLost)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Usuario no encontrado", e.Message)
}

func TestMissingID(t *testing.T) {
	var hits int32
	c := adminConsole(t, newServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {}))
	assert.ErrorIs(t, c.DeleteUser(context.Background(), " "), ErrMissingID)
}
