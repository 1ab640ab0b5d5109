package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ResultStatusSuccess = "success"
	ResultStatusFailure = "failure"
)

// ClassificationResult is the final outcome for one ReviewRecord. Status selects the
// variant: a success carries PredictedLabel and PredictionReason, a failure carries Error.
// Index and BusinessName+Text correlate a result with its input row, since results are
// collected in completion order.
type ClassificationResult struct {
	RunID            uuid.UUID `db:"run_id"            json:"run_id,omitempty"`
	Index            int       `db:"row_index"         json:"index"`
	Status           string    `db:"status"            json:"status"`
	BusinessName     string    `db:"business_name"     json:"business_name"`
	Rating           *int      `db:"rating"            json:"rating,omitempty"`
	Text             string    `db:"text"              json:"text"`
	PredictedLabel   string    `db:"predicted_label"   json:"predicted_label,omitempty"`
	PredictionReason string    `db:"prediction_reason" json:"prediction_reason,omitempty"`
	Error            string    `db:"error"             json:"error,omitempty"`
	Attempts         int       `db:"attempts"          json:"attempts"`
	Source           string    `db:"source"            json:"source,omitempty"` // provider name or "prefilter"
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
}

// NewSuccess builds the success variant for rec.
func NewSuccess(rec ReviewRecord, out LabeledOutput, attempts int) ClassificationResult {
	return ClassificationResult{
		Index:            rec.Index,
		Status:           ResultStatusSuccess,
		BusinessName:     rec.BusinessName,
		Rating:           rec.Rating,
		Text:             rec.Text,
		PredictedLabel:   out.Label,
		PredictionReason: out.Reason,
		Attempts:         attempts,
		CreatedAt:        time.Now().UTC(),
	}
}

// NewFailure builds the failure variant for rec carrying the last error's description.
func NewFailure(rec ReviewRecord, err error, attempts int) ClassificationResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ClassificationResult{
		Index:        rec.Index,
		Status:       ResultStatusFailure,
		BusinessName: rec.BusinessName,
		Rating:       rec.Rating,
		Text:         rec.Text,
		Error:        msg,
		Attempts:     attempts,
		CreatedAt:    time.Now().UTC(),
	}
}

func (r ClassificationResult) Succeeded() bool { return r.Status == ResultStatusSuccess }

// Summary aggregates a finished result set.
type Summary struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	ByLabel   map[string]int `json:"by_label"`
}

// Summarize counts results by status and label.
func Summarize(results []ClassificationResult) Summary {
	s := Summary{Total: len(results), ByLabel: make(map[string]int)}
	for _, r := range results {
		if r.Succeeded() {
			s.Succeeded++
			s.ByLabel[r.PredictedLabel]++
			continue
		}
		s.Failed++
	}
	return s
}
