// Package news reads top headlines from the news provider.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bilgisen/noticias/internal/cache"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/metrics"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/google/go-querystring/query"
	"github.com/sony/gobreaker"
)

// DefaultURL is the top-headlines endpoint
const DefaultURL = "https://newsapi.org/v2/top-headlines"

// ErrMissingAPIKey is returned before any request when no key is set.
var ErrMissingAPIKey = errors.New("news api key is not configured")

// MsgMissingAPIKey is what the user sees for ErrMissingAPIKey
const MsgMissingAPIKey = "La clave API para el servicio de noticias no está configurada."

// APIError is a failure reported by the provider, either as a non-2xx
// answer or as a body whose status is not "ok".
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Error HTTP: %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Status >= 200 && e.Status < 300 {
		return e.Message
	}
	code := e.Code
	if code == "" {
		code = "N/A"
	}
	return fmt.Sprintf("Error de API: %s (código: %s)", e.Message, code)
}

type headlinesQuery struct {
	Country  string `url:"country"`
	APIKey   string `url:"apiKey"`
	Page     int    `url:"page"`
	PageSize int    `url:"pageSize"`
}

// Client fetches headlines through a circuit breaker, optionally caching
// pages.
type Client struct {
	http    *resty.Client
	url     string
	apiKey  string
	country string
	breaker *gobreaker.CircuitBreaker

	cache    cache.Store
	cacheTTL time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithURL overrides the endpoint
func WithURL(u string) Option {
	return func(c *Client) { c.url = u }
}

// WithCountry sets the country filter (default "us")
func WithCountry(country string) Option {
	return func(c *Client) { c.country = country }
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithCache keeps successful pages in store for ttl. A zero ttl disables it.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) { c.cache, c.cacheTTL = store, ttl }
}

// WithBreakerSettings replaces the circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker(st) }
}

// BreakerSettings trips after five requests in a 30s window when at least
// 60% failed, and probes again after a minute.
func BreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "news-api",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			clog := logger.Component("news")
			clog.Warn().
				Str("circuit", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
}

// NewClient creates a client. No retries are made.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetTimeout(30*time.Second).
			SetRetryCount(0).
			SetHeader("Accept", "application/json"),
		url:     DefaultURL,
		apiKey:  apiKey,
		country: "us",
		breaker: gobreaker.NewCircuitBreaker(BreakerSettings()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopHeadlines returns one page of headlines.
func (c *Client) TopHeadlines(ctx context.Context, page, pageSize int) ([]models.Article, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if page < 1 {
		page = 1
	}

	key := c.cacheKey(page, pageSize)
	if key != "" {
		var cached []models.Article
		if err := cache.GetJSON(ctx, c.cache, key, &cached); err == nil {
			metrics.NewsFetches.WithLabelValues(metrics.NewsCacheHit).Inc()
			return cached, nil
		}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, page, pageSize)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.NewsFetches.WithLabelValues(metrics.NewsBreakerOpen).Inc()
		} else {
			metrics.NewsFetches.WithLabelValues(metrics.NewsError).Inc()
		}
		clog := logger.Component("news")
		clog.Warn().Err(err).Int("page", page).Msg("headlines fetch failed")
		return nil, err
	}
	metrics.NewsFetches.WithLabelValues(metrics.NewsOK).Inc()

	articles := out.([]models.Article)
	if key != "" {
		if err := cache.SetJSON(ctx, c.cache, key, articles, c.cacheTTL); err != nil {
			clog := logger.Component("news")
			clog.Debug().Err(err).Msg("headlines cache write failed")
		}
	}
	return articles, nil
}

// CheckConnection fetches a single article to see whether the provider
// answers.
func (c *Client) CheckConnection(ctx context.Context) bool {
	_, err := c.TopHeadlines(ctx, 1, 1)
	return err == nil
}

func (c *Client) fetch(ctx context.Context, page, pageSize int) ([]models.Article, error) {
	params, err := query.Values(headlinesQuery{
		Country:  c.country,
		APIKey:   c.apiKey,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("encode headlines query: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", redact(err))
	}

	var body models.HeadlinesResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		apiErr := &APIError{Status: resp.StatusCode()}
		if decodeErr == nil {
			apiErr.Code, apiErr.Message = body.Code, body.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode headlines: %w", decodeErr)
	}
	if body.Status != "ok" {
		msg := body.Message
		if msg == "" {
			msg = "Error desconocido de la API al obtener noticias."
		}
		return nil, &APIError{Status: resp.StatusCode(), Code: body.Code, Message: msg}
	}
	if body.Articles == nil {
		body.Articles = []models.Article{}
	}
	return body.Articles, nil
}

func (c *Client) cacheKey(page, pageSize int) string {
	if c.cache == nil || c.cacheTTL <= 0 {
		return ""
	}
	return utils.CacheKey("news", c.url, c.country, strconv.Itoa(page), strconv.Itoa(pageSize))
}

// redact drops the query string, which carries the API key, from
// transport errors.
func redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	clean := *uerr
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		clean.URL = u.String()
	} else {
		clean.URL = ""
	}
	return &clean
}
