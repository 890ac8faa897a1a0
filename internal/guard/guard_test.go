package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/cache"
	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	ok    bool
	err   error
	calls int
}

func (c *fakeChecker) Status(ctx context.Context) (bool, error) {
	c.calls++
	return c.ok, c.err
}

func sessionCtx(cookie string) context.Context {
	return backend.WithSession(context.Background(), &backend.Session{Cookie: cookie})
}

func TestCheckAllows(t *testing.T) {
	g := New(&fakeChecker{ok: true})
	d := g.Check(context.Background(), "/dashboard")
	assert.True(t, d.Allow)
	assert.Empty(t, d.Redirect)
}

func TestCheckRedirectsWhenSignedOut(t *testing.T) {
	g := New(&fakeChecker{ok: false})
	d := g.Check(context.Background(), "/config")
	assert.False(t, d.Allow)
	assert.Equal(t, "/login?from=%2Fconfig", d.Redirect)
	assert.Equal(t, DeniedMessage, d.Notice)
	assert.NoError(t, d.Err)
}

func TestCheckRedirectsOnError(t *testing.T) {
	boom := errors.New("status 500")
	g := New(&fakeChecker{err: boom})
	d := g.Check(context.Background(), "/noticias")
	assert.False(t, d.Allow)
	assert.Equal(t, "/login?from=%2Fnoticias", d.Redirect)
	assert.Equal(t, ErrorMessage, d.Notice)
	assert.ErrorIs(t, d.Err, boom)
}

func TestNoMemoByDefault(t *testing.T) {
	c := &fakeChecker{ok: true}
	g := New(c)
	ctx := sessionCtx("sid=1")
	for i := 0; i < 3; i++ {
		g.Check(ctx, "/dashboard")
	}
	assert.Equal(t, 3, c.calls)
}

func TestMemoRemembersOnlyPositiveAnswers(t *testing.T) {
	c := &fakeChecker{ok: false}
	g := New(c).WithMemo(cache.NewMemoryStore(""), time.Minute, nil)
	ctx := sessionCtx("sid=1")

	g.Check(ctx, "/dashboard")
	g.Check(ctx, "/dashboard")
	assert.Equal(t, 2, c.calls)

	c.ok = true
	assert.True(t, g.Check(ctx, "/dashboard").Allow)
	assert.True(t, g.Check(ctx, "/dashboard").Allow)
	assert.Equal(t, 3, c.calls)

	// another session is not covered
	g.Check(sessionCtx("sid=2"), "/dashboard")
	assert.Equal(t, 4, c.calls)

	g.Forget(ctx)
	g.Check(ctx, "/dashboard")
	assert.Equal(t, 5, c.calls)
}

func TestMemoSkippedWithoutCookie(t *testing.T) {
	c := &fakeChecker{ok: true}
	g := New(c).WithMemo(cache.NewMemoryStore(""), time.Minute, nil)
	g.Check(context.Background(), "/dashboard")
	g.Check(context.Background(), "/dashboard")
	assert.Equal(t, 2, c.calls)
}

func TestLoginRedirect(t *testing.T) {
	assert.Equal(t, "/login", LoginRedirect(""))
	assert.Equal(t, "/login?from=%2Fadmin%2Fusers%3Fx%3D1", LoginRedirect("/admin/users?x=1"))
}
