package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/reviewlabel/internal/api/response"
	"github.com/kiranshivaraju/reviewlabel/internal/cache"
	"github.com/kiranshivaraju/reviewlabel/internal/store"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// RunReader is the slice of store.Store the run handlers need.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListResults(ctx context.Context, filter store.ResultFilter) ([]models.ClassificationResult, int, error)
}

// RunView is a stored run plus live progress from the cache while it runs.
type RunView struct {
	*models.Run
	Completed *int64 `json:"completed,omitempty"`
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
// progress may be nil when no cache is configured.
func NewGetRunHandler(runs RunReader, progress cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runIDParam(w, r)
		if !ok {
			return
		}

		run, err := runs.GetRun(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(w, "Run not found")
			return
		}
		if err != nil {
			slog.Error("get run", "run_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load run", nil)
			return
		}

		view := RunView{Run: run}
		if progress != nil && run.Status == models.RunStatusRunning {
			if status, found, err := progress.GetRunStatus(r.Context(), id); err == nil && found {
				view.Status = status
			}
			if n, err := progress.GetCounter(r.Context(), cache.RunProgressKey(id)); err == nil {
				view.Completed = &n
			}
		}
		response.JSON(w, view)
	}
}

// NewListResultsHandler returns an http.HandlerFunc for
// GET /api/v1/runs/{runID}/results?status=&label=&page=&limit=.
func NewListResultsHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := runIDParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := store.ResultFilter{
			RunID:  id,
			Status: q.Get("status"),
			Label:  q.Get("label"),
			Page:   1,
			Limit:  defaultPageLimit,
		}
		details := map[string]string{}
		if filter.Status != "" && filter.Status != models.ResultStatusSuccess && filter.Status != models.ResultStatusFailure {
			details["status"] = "must be success or failure"
		}
		if v := q.Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				details["page"] = "must be a positive integer"
			}
			filter.Page = n
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxPageLimit {
				details["limit"] = "must be between 1 and 500"
			}
			filter.Limit = n
		}
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", details)
			return
		}

		if _, err := runs.GetRun(r.Context(), id); errors.Is(err, store.ErrNotFound) {
			response.NotFound(w, "Run not found")
			return
		} else if err != nil {
			slog.Error("get run", "run_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load run", nil)
			return
		}

		results, total, err := runs.ListResults(r.Context(), filter)
		if err != nil {
			slog.Error("list results", "run_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list results", nil)
			return
		}
		response.Collection(w, results, response.NewPaginationMeta(filter.Page, filter.Limit, total))
	}
}

func runIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_RUN_ID", "Run ID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
