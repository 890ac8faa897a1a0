package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/guard"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email string `json:"email" validate:"email"`
}

type fixedStatus struct {
	ok  bool
	err error
}

func (f fixedStatus) Status(context.Context) (bool, error) { return f.ok, f.err }

func body(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSessionRelaysCookiesWithoutDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sid=old", r.Header.Get("Cookie"))
		w.Header().Add("Set-Cookie", "sid=new; Domain=api.example.com; Path=/; HttpOnly")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	client := backend.New(srv.URL)

	app := fiber.New()
	app.Use(Session(SessionConfig{SecureCookies: true}))
	app.Get("/", func(c *fiber.Ctx) error {
		if err := client.Do(c.UserContext(), http.MethodGet, "/ping", nil, nil); err != nil {
			return err
		}
		return c.SendString("ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "sid=old")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := resp.Header.Values("Set-Cookie")
	require.Len(t, cookies, 1)
	assert.True(t, strings.HasPrefix(cookies[0], "sid=new"))
	assert.NotContains(t, strings.ToLower(cookies[0]), "domain")
	assert.Contains(t, cookies[0], "Secure")
}

func TestRequireSessionAllows(t *testing.T) {
	app := fiber.New()
	app.Get("/p", RequireSession(GuardConfig{Guard: guard.New(fixedStatus{ok: true})}), func(c *fiber.Ctx) error {
		return c.SendString("in")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/p", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireSessionDeniesOnError(t *testing.T) {
	app := fiber.New()
	app.Use(Notices())
	app.Get("/p", RequireSession(GuardConfig{Guard: guard.New(fixedStatus{err: errors.New("down")})}), func(c *fiber.Ctx) error {
		return c.SendString("in")
	})

	req := httptest.NewRequest(http.MethodGet, "/p?x=1", nil)
	req.Header.Set("Accept", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	b := body(t, resp)
	assert.Equal(t, "/login?from=%2Fp%3Fx%3D1", b["redirect"])
	notices := b["notices"].([]interface{})
	require.Len(t, notices, 1)
	assert.Equal(t, guard.ErrorMessage, notices[0].(map[string]interface{})["message"])
}

func TestRequireSessionPanicsWithoutGuard(t *testing.T) {
	assert.Panics(t, func() { RequireSession(GuardConfig{}) })
}

func TestValidateRequest(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", ValidateRequest[loginForm](), func(c *fiber.Ctx) error {
		return c.SendString(Validated[loginForm](c).Email)
	})

	post := func(payload string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, post(`{"email":"a@b.co"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"email":`).StatusCode)

	resp := post(`{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body(t, resp)["fields"], "email")
}

func TestErrorHandler(t *testing.T) {
	classify := func(err error) (int, string, bool) {
		if err.Error() == "gone" {
			return http.StatusUnauthorized, "sesión perdida", true
		}
		return 0, "", false
	}

	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"fiber error", fiber.NewError(http.StatusConflict, "busy"), http.StatusConflict, "busy"},
		{"classified", errors.New("gone"), http.StatusUnauthorized, "sesión perdida"},
		{"unauthorized", apierr.Decode(401, []byte(`{"msg":"expirada"}`)), http.StatusUnauthorized, "expirada"},
		{"rejected", apierr.Decode(409, []byte(`{"msg":"duplicado"}`)), http.StatusConflict, "duplicado"},
		{"backend 500", apierr.Decode(500, []byte(`{"msg":"boom"}`)), http.StatusBadGateway, "boom"},
		{"transport", apierr.Transport(errors.New("dial")), http.StatusBadGateway, "backend unavailable"},
		{"unknown", errors.New("other"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(classify)})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
			b := body(t, resp)
			assert.Equal(t, tt.msg, b["error"])
			if tt.code == http.StatusUnauthorized {
				assert.Equal(t, "/login", b["redirect"])
			}
		})
	}
}
