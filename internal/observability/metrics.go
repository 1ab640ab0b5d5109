// Package observability owns the Prometheus collectors shared by the runner,
// the classification service and the ops HTTP server.
package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranshivaraju/reviewlabel/internal/ai/transport"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewlabel", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviewlabel", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ClassifyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewlabel", Name: "classify_attempts_total", Help: "Classification attempts by outcome."},
		[]string{"outcome"}, // outcome: ok|malformed|timeout|unavailable|rate_limited|unauthorized|error
	)
	ClassifyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviewlabel", Name: "classify_request_duration_seconds",
			Help:    "Provider call duration seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
	Results = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewlabel", Name: "results_total", Help: "Final per-record results."},
		[]string{"status", "label"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "reviewlabel", Name: "classify_in_flight", Help: "Classification calls currently in flight."},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewlabel", Name: "cache_events_total", Help: "Response cache hits/misses/sets."},
		[]string{"event"}, // event: hit|miss|set|error
	)
)

// InitRegistry returns a registry carrying every ReviewLabel collector.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ClassifyAttempts, ClassifyLatency, Results, InFlight, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveAttempt(err error) {
	ClassifyAttempts.WithLabelValues(AttemptOutcome(err)).Inc()
}

func ObserveCall(provider string, dur time.Duration) {
	ClassifyLatency.WithLabelValues(provider).Observe(dur.Seconds())
}

func ObserveResult(r models.ClassificationResult) {
	Results.WithLabelValues(r.Status, r.PredictedLabel).Inc()
}

func ObserveCache(event string) { // event: hit|miss|set|error
	CacheEvents.WithLabelValues(event).Inc()
}

// AttemptOutcome buckets an attempt error into a low-cardinality label.
func AttemptOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, transport.ErrInferenceTimeout):
		return "timeout"
	case errors.Is(err, transport.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, transport.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, transport.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
