package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/reviewlabel/internal/api/response"
)

// Pinger is satisfied by store.Store and cache.Cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler reports the state of each configured dependency. A nil
// Pinger is reported as "disabled" and never degrades the result.
func NewHealthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string, len(deps))
		degraded := false
		for name, p := range deps {
			switch {
			case p == nil:
				checks[name] = "disabled"
			case p.Ping(r.Context()) != nil:
				checks[name] = "degraded"
				degraded = true
			default:
				checks[name] = "ok"
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
