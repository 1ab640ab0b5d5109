package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid run status transition")

// Store is the data access interface for runs and their results.
type Store interface {
	Ping(ctx context.Context) error

	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error

	InsertResults(ctx context.Context, runID uuid.UUID, results []models.ClassificationResult) error
	ListResults(ctx context.Context, filter ResultFilter) ([]models.ClassificationResult, int, error)
}

// ResultFilter selects a page of one run's results. Empty Status and Label match everything.
type ResultFilter struct {
	RunID  uuid.UUID
	Status string
	Label  string
	Page   int
	Limit  int
}

type runUpdateParams struct {
	ErrorMessage *string
	Summary      *models.Summary
}

type RunUpdateOption func(*runUpdateParams)

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

// WithSummary records the succeeded and failed counts on the run row.
func WithSummary(s models.Summary) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.Summary = &s
	}
}
