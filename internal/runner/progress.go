package runner

import (
	"log/slog"
	"time"

	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// ProgressLogger returns an OnResult hook that logs a progress line every
// `every` results and once more when total is reached. It relies on
// OnResult calls being serialized.
func ProgressLogger(total, every int, logger *slog.Logger) func(models.ClassificationResult) {
	if every < 1 {
		every = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	done, failed := 0, 0

	return func(r models.ClassificationResult) {
		done++
		if !r.Succeeded() {
			failed++
		}
		if done%every != 0 && done != total {
			return
		}
		elapsed := time.Since(start)
		rate := 0.0
		if secs := elapsed.Seconds(); secs > 0 {
			rate = float64(done) / secs
		}
		logger.Info("classification progress",
			"done", done,
			"total", total,
			"failed", failed,
			"elapsed", elapsed.Round(time.Millisecond).String(),
			"records_per_sec", rate,
		)
	}
}

// Chain combines OnResult hooks; nil hooks are skipped.
func Chain(hooks ...func(models.ClassificationResult)) func(models.ClassificationResult) {
	return func(r models.ClassificationResult) {
		for _, h := range hooks {
			if h != nil {
				h(r)
			}
		}
	}
}
