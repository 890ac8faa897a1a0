package backend

import (
	"context"
	"sync"

	"github.com/go-resty/resty/v2"
)

type sessionKey struct{}

// Session carries one browser's cookies through a request: Cookie is
// forwarded to the backend and every Set-Cookie the backend answers with is
// kept for relaying back.
type Session struct {
	Cookie string

	mu         sync.Mutex
	setCookies []string
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session attached to ctx, if any.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// SetCookies returns the raw Set-Cookie values collected so far.
func (s *Session) SetCookies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.setCookies...)
}

func (s *Session) addSetCookies(values []string) {
	if len(values) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCookies = append(s.setCookies, values...)
}

func forwardSessionCookie(_ *resty.Client, req *resty.Request) error {
	if s := SessionFrom(req.Context()); s != nil && s.Cookie != "" {
		req.SetHeader("Cookie", s.Cookie)
	}
	return nil
}

func collectSetCookies(_ *resty.Client, resp *resty.Response) error {
	if resp.Request == nil {
		return nil
	}
	if s := SessionFrom(resp.Request.Context()); s != nil {
		s.addSetCookies(resp.Header().Values("Set-Cookie"))
	}
	return nil
}
