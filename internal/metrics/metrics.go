// Package metrics provides the Prometheus metrics for backend calls, route
// guard decisions and news fetches.
package metrics

import (
	"strings"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequestDuration measures backend calls by method, route and status
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noticias_backend_request_duration_seconds",
			Help:    "Duration of calls to the backend API",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// GuardDecisions counts route guard outcomes
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_guard_decisions_total",
			Help: "Route guard decisions by outcome",
		},
		[]string{"outcome"},
	)

	// NewsFetches counts news provider fetches by outcome
	NewsFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noticias_news_fetches_total",
			Help: "News provider fetches by outcome",
		},
		[]string{"outcome"},
	)
)

// Guard outcomes
const (
	GuardAllow    = "allow"
	GuardRedirect = "redirect"
	GuardError    = "error"
	GuardMemo     = "memo"
)

// News outcomes
const (
	NewsOK          = "ok"
	NewsError       = "error"
	NewsCacheHit    = "cache_hit"
	NewsBreakerOpen = "breaker_open"
)

// ObserveBackend records one backend call. status is "error" when no
// response was received.
func ObserveBackend(method, path, status string, d time.Duration) {
	BackendRequestDuration.WithLabelValues(method, Route(path), status).Observe(d.Seconds())
}

// Route collapses id-like path segments so label cardinality stays bounded.
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "" && strings.IndexFunc(seg, unicode.IsDigit) >= 0 {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
