package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoDecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.co", body["email"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"msg":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Msg string `json:"msg"`
	}
	err := New(srv.URL).Do(context.Background(), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.co"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Msg)
}

func TestDoReturnsTypedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apierr.Kind
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"msg":"No autorizado"}`, apierr.KindUnauthorized, "No autorizado"},
		{"rejected", http.StatusBadRequest, `{"msg":"Credenciales inválidas"}`, apierr.KindRejected, "Credenciales inválidas"},
		{"non json", http.StatusBadGateway, `<html>bad gateway</html>`, apierr.KindTransport, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL).Do(context.Background(), http.MethodGet, "/x", nil, nil)
			e, ok := apierr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.Status)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, e.Message)
			}
		})
	}
}

func TestDoMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := New(srv.URL).Do(context.Background(), http.MethodGet, "/x", nil, &out)
	assert.Equal(t, apierr.KindFormat, apierr.KindOf(err))
}

func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url).Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.Equal(t, apierr.KindTransport, apierr.KindOf(err))
}

func TestSessionForwardingAndCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sid=abc", r.Header.Get("Cookie"))
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "def", Path: "/"})
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := &Session{Cookie: "sid=abc"}
	ctx := WithSession(context.Background(), sess)

	require.NoError(t, New(srv.URL).Do(ctx, http.MethodGet, "/auth/status", nil, nil))
	require.Len(t, sess.SetCookies(), 1)
	assert.Contains(t, sess.SetCookies()[0], "sid=def")
}

func TestNoCookiesSharedWithoutJar(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			assert.Empty(t, r.Header.Get("Cookie"))
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "one", Path: "/"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/a", nil, nil))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/b", nil, nil))
	assert.Equal(t, 2, calls)
}

func TestJarRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "kept", Path: "/"})
			return
		}
		c, err := r.Cookie("sid")
		if assert.NoError(t, err) {
			assert.Equal(t, "kept", c.Value)
		}
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "session.json")

	jar, err := LoadJar(file, srv.URL)
	require.NoError(t, err)
	require.NoError(t, New(srv.URL, WithCookieJar(jar)).Do(context.Background(), http.MethodPost, "/auth/login", nil, nil))
	require.NoError(t, SaveJar(jar, file, srv.URL))

	restored, err := LoadJar(file, srv.URL)
	require.NoError(t, err)
	require.NoError(t, New(srv.URL, WithCookieJar(restored)).Do(context.Background(), http.MethodGet, "/auth/status", nil, nil))

	other, err := LoadJar(file, "http://elsewhere.example")
	require.NoError(t, err)
	u, _ := apiURL("http://elsewhere.example")
	assert.Empty(t, other.Cookies(u))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://localhost:4000/api/auth/google", New("http://localhost:4000/").URL("/auth/google"))
}
