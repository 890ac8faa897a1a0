// Package backend is the credentialed HTTP client every other package uses
// to reach the backend API. Session identity travels only as cookies.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/noticias/internal/apierr"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/metrics"
	"github.com/go-resty/resty/v2"
)

// Client talks JSON to <base>/api.
type Client struct {
	client  *resty.Client
	baseURL string
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.SetTimeout(d)
	}
}

// WithCookieJar makes the client keep cookies between calls, which is what
// a single-user front end (the CLI) wants.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.client.SetCookieJar(jar)
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.client.SetTransport(rt)
	}
}

// New creates a client for the backend at baseURL (scheme://host[:port]).
// Without WithCookieJar no cookies are stored; a multi-user front end
// forwards each user's cookies through WithSession instead.
func New(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := &Client{
		client: resty.New().
			SetBaseURL(base+"/api").
			SetHeader("Accept", "application/json").
			SetRetryCount(0).
			SetCookieJar(nil),
		baseURL: base,
	}
	c.client.OnBeforeRequest(forwardSessionCookie)
	c.client.OnAfterResponse(collectSetCookies)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the absolute URL of an API path, for links the user's
// browser must open itself (OAuth entry points).
func (c *Client) URL(path string) string {
	return c.baseURL + "/api" + path
}

// Do sends body as JSON and decodes a 2xx body into out (when out is non-nil
// and the body is not empty). Non-2xx answers come back as *apierr.Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	status, data, err := c.Raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return apierr.Decode(status, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierr.Format(status, err)
	}
	return nil
}

// Raw performs the call and returns status and body without interpreting
// them. Only transport failures are errors.
func (c *Client) Raw(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	log := logger.Component("backend")

	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	latency := time.Since(start)

	if err != nil {
		metrics.ObserveBackend(method, path, "error", latency)
		log.Warn().
			Err(err).
			Str("method", method).
			Str("path", metrics.Route(path)).
			Dur("latency", latency).
			Msg("backend request failed")
		return 0, nil, apierr.Transport(err)
	}

	metrics.ObserveBackend(method, path, strconv.Itoa(resp.StatusCode()), latency)
	log.Debug().
		Str("method", method).
		Str("path", metrics.Route(path)).
		Int("status", resp.StatusCode()).
		Dur("latency", latency).
		Msg("backend request")

	return resp.StatusCode(), resp.Body(), nil
}
