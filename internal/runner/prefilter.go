package runner

import (
	"context"

	"github.com/kiranshivaraju/reviewlabel/internal/analysis"
	"github.com/kiranshivaraju/reviewlabel/internal/observability"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// SourcePrefilter marks results decided without calling the classification service.
const SourcePrefilter = "prefilter"

// PreFilter decides some records up front. It returns the decided results and
// the records still to classify; together they cover the input exactly once.
type PreFilter func(records []models.ReviewRecord) (decided []models.ClassificationResult, remaining []models.ReviewRecord)

// BlankTextFilter labels records whose text is empty after trimming with label
// (Irrelevant when empty) and zero attempts.
func BlankTextFilter(label, reason string) PreFilter {
	if label == "" {
		label = models.LabelIrrelevant
	}
	if reason == "" {
		reason = "Review text is empty."
	}
	out := models.LabeledOutput{Label: label, Reason: reason}

	return func(records []models.ReviewRecord) ([]models.ClassificationResult, []models.ReviewRecord) {
		var decided []models.ClassificationResult
		remaining := make([]models.ReviewRecord, 0, len(records))
		for _, rec := range records {
			if !analysis.IsBlank(rec.Text) {
				remaining = append(remaining, rec)
				continue
			}
			res := models.NewSuccess(rec, out, 0)
			res.Source = SourcePrefilter
			decided = append(decided, res)
		}
		return decided, remaining
	}
}

// Pipeline runs pre-filters in order and sends the remaining records to Run.
type Pipeline struct {
	Filters []PreFilter
	Options Options
}

// Run returns one result per input record: pre-filter decisions first, then
// the runner's results in completion order.
func (p Pipeline) Run(ctx context.Context, records []models.ReviewRecord, classify ClassifyFunc) ([]models.ClassificationResult, error) {
	if err := p.Options.validate(); err != nil {
		return nil, err
	}

	decided := make([]models.ClassificationResult, 0)
	remaining := records
	for _, f := range p.Filters {
		d, rest := f(remaining)
		decided = append(decided, d...)
		remaining = rest
	}

	for _, r := range decided {
		observability.ObserveResult(r)
		if p.Options.OnResult != nil {
			p.Options.OnResult(r)
		}
	}
	if len(decided) > 0 {
		p.Options.logger().Info("pre-filter decided records", "count", len(decided), "remaining", len(remaining))
	}

	results, err := Run(ctx, remaining, classify, p.Options)
	if err != nil {
		return nil, err
	}
	return append(decided, results...), nil
}
