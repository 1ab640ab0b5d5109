// Package api wires the ops HTTP server: health, metrics and read-only run
// inspection.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kiranshivaraju/reviewlabel/internal/api/middleware"
	"github.com/kiranshivaraju/reviewlabel/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// RateLimit is optional; it needs Redis.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	MetricsHandler     http.Handler
	GetRunHandler      http.HandlerFunc
	ListResultsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/api/v1/runs/{runID}", orNotImplemented(deps.GetRunHandler))
		r.Get("/api/v1/runs/{runID}/results", orNotImplemented(deps.ListResultsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
// Run routes are unavailable when no database is configured.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not available in this configuration", nil)
	}
}
