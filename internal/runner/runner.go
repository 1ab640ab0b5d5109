// Package runner dispatches review records to a classification function with
// bounded concurrency and per-record retries, and guarantees exactly one
// result per input record.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/reviewlabel/internal/observability"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

var (
	// ErrInvalidOptions is returned by Run before any call when Options are unusable.
	ErrInvalidOptions = errors.New("invalid runner options")
	// ErrClassifierPanic wraps a value recovered from a panicking ClassifyFunc.
	ErrClassifierPanic = errors.New("classifier panicked")
)

// ClassifyFunc returns the raw response text for one record. Implementations
// must be safe for concurrent use.
type ClassifyFunc func(ctx context.Context, rec models.ReviewRecord) (string, error)

// Options controls a Run.
type Options struct {
	// Concurrency is the maximum number of in-flight classify calls.
	Concurrency int
	// MaxRetries is the number of extra attempts after the first.
	MaxRetries int
	// Backoff is the linear delay unit between attempts; attempt n waits Backoff*n.
	Backoff time.Duration
	// OnResult is called once per final result. Calls are serialized.
	OnResult func(models.ClassificationResult)
	// Source is stamped on every result produced by this run.
	Source string
	Logger *slog.Logger
}

// DefaultOptions matches the reference batch settings: 10 workers, 2 retries.
func DefaultOptions() Options {
	return Options{Concurrency: 10, MaxRetries: 2}
}

func (o Options) validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidOptions, o.Concurrency)
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidOptions, o.MaxRetries)
	}
	if o.Backoff < 0 {
		return fmt.Errorf("%w: backoff must not be negative, got %s", ErrInvalidOptions, o.Backoff)
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Run classifies every record and returns one result per record in completion
// order. Per-record failures never abort the run; the only error returned is
// ErrInvalidOptions. When ctx is done, records not yet attempted still get a
// failure result carrying the context error.
func Run(ctx context.Context, records []models.ReviewRecord, classify ClassifyFunc, opts Options) ([]models.ClassificationResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	results := make([]models.ClassificationResult, 0, len(records))
	if len(records) == 0 {
		return results, nil
	}

	logger := opts.logger()
	var mu sync.Mutex
	collect := func(r models.ClassificationResult) {
		observability.ObserveResult(r)
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		if opts.OnResult != nil {
			opts.OnResult(r)
		}
	}

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for _, rec := range records {
		g.Go(func() error {
			collect(classifyRecord(ctx, rec, classify, opts, logger))
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// classifyRecord runs the full retry loop for one record.
func classifyRecord(ctx context.Context, rec models.ReviewRecord, classify ClassifyFunc, opts Options, logger *slog.Logger) models.ClassificationResult {
	maxAttempts := opts.MaxRetries + 1
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && !sleepCtx(ctx, opts.Backoff*time.Duration(attempt-1)) {
			lastErr = cancelled(ctx.Err(), lastErr)
			break
		}
		if err := ctx.Err(); err != nil {
			lastErr = cancelled(err, lastErr)
			break
		}

		attempts++
		raw, err := safeClassify(ctx, rec, classify)
		if err == nil {
			out, perr := models.ParseLabeledOutput(raw)
			if perr == nil {
				observability.ObserveAttempt(nil)
				if !models.IsKnownLabel(out.Label) {
					logger.Debug("label outside moderation vocabulary", "index", rec.Index, "label", out.Label)
				}
				res := models.NewSuccess(rec, out, attempts)
				res.Source = opts.Source
				return res
			}
			err = perr
		}

		observability.ObserveAttempt(err)
		lastErr = err
		logger.Warn("classification attempt failed",
			"index", rec.Index,
			"business_name", rec.BusinessName,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)
	}

	res := models.NewFailure(rec, lastErr, attempts)
	res.Source = opts.Source
	return res
}

// safeClassify converts a panic in classify into an attempt error.
func safeClassify(ctx context.Context, rec models.ReviewRecord, classify ClassifyFunc) (raw string, err error) {
	observability.InFlight.Inc()
	defer observability.InFlight.Dec()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrClassifierPanic, p)
		}
	}()
	return classify(ctx, rec)
}

func cancelled(ctxErr, lastErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last attempt: %v)", ctxErr, lastErr)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
