// Package guard decides whether a protected navigation may proceed.
package guard

import (
	"context"
	"net/url"
	"time"

	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/cache"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/metrics"
	"github.com/bilgisen/noticias/internal/utils"
)

// Notices shown when access is refused
const (
	DeniedMessage = "Acceso denegado. Debes iniciar sesión."
	ErrorMessage  = "Error al verificar tu sesión. Por favor, intenta iniciar sesión de nuevo."
)

// StatusChecker answers whether the session in ctx is authenticated.
type StatusChecker interface {
	Status(ctx context.Context) (bool, error)
}

// KeyFunc derives the memo key for the session in ctx; "" disables the memo
// for that call.
type KeyFunc func(ctx context.Context) string

// Decision is the outcome of a check. When Allow is false, Redirect is the
// login URL to go to and Notice what to tell the user; Err is set when the
// status check itself failed.
type Decision struct {
	Allow    bool
	Redirect string
	Notice   string
	Err      error
}

// Guard checks the session on every protected navigation.
type Guard struct {
	checker StatusChecker

	memo  cache.Store
	ttl   time.Duration
	keyFn KeyFunc
}

// New creates a guard without memo: every Check asks the backend.
func New(checker StatusChecker) *Guard {
	return &Guard{checker: checker}
}

// WithMemo remembers positive answers in store for ttl. Negative answers
// and errors are never remembered.
func (g *Guard) WithMemo(store cache.Store, ttl time.Duration, keyFn KeyFunc) *Guard {
	if keyFn == nil {
		keyFn = SessionKey
	}
	g.memo, g.ttl, g.keyFn = store, ttl, keyFn
	return g
}

// SessionKey keys the memo on the forwarded cookie header of the session
// in ctx.
func SessionKey(ctx context.Context) string {
	s := backend.SessionFrom(ctx)
	if s == nil || s.Cookie == "" {
		return ""
	}
	return utils.CacheKey("guard", s.Cookie)
}

// LoginRedirect is the login URL remembering where the user was going.
func LoginRedirect(from string) string {
	if from == "" {
		return "/login"
	}
	return "/login?from=" + url.QueryEscape(from)
}

// Check decides on a navigation to path.
func (g *Guard) Check(ctx context.Context, path string) Decision {
	log := logger.Component("guard")

	key := g.memoKey(ctx)
	if key != "" {
		if _, err := g.memo.Get(ctx, key); err == nil {
			metrics.GuardDecisions.WithLabelValues(metrics.GuardMemo).Inc()
			return Decision{Allow: true}
		}
	}

	ok, err := g.checker.Status(ctx)
	switch {
	case err != nil:
		metrics.GuardDecisions.WithLabelValues(metrics.GuardError).Inc()
		log.Warn().Err(err).Str("path", path).Msg("session check failed")
		return Decision{Redirect: LoginRedirect(path), Notice: ErrorMessage, Err: err}
	case !ok:
		metrics.GuardDecisions.WithLabelValues(metrics.GuardRedirect).Inc()
		d := Decision{Redirect: LoginRedirect(path)}
		if path != "/login" {
			d.Notice = DeniedMessage
		}
		return d
	}

	metrics.GuardDecisions.WithLabelValues(metrics.GuardAllow).Inc()
	if key != "" {
		if err := g.memo.Set(ctx, key, []byte("1"), g.ttl); err != nil {
			log.Debug().Err(err).Msg("guard memo write failed")
		}
	}
	return Decision{Allow: true}
}

// Forget drops the memo for the session in ctx. Call it on logout.
func (g *Guard) Forget(ctx context.Context) {
	if key := g.memoKey(ctx); key != "" {
		if err := g.memo.Delete(ctx, key); err != nil {
			clog := logger.Component("guard")
			clog.Debug().Err(err).Msg("guard memo delete failed")
		}
	}
}

func (g *Guard) memoKey(ctx context.Context) string {
	if g.memo == nil || g.ttl <= 0 {
		return ""
	}
	return g.keyFn(ctx)
}
