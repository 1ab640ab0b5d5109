package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run tracks one batch classification pass. The CLI creates it before dispatching
// records and marks it completed once every record has a result.
type Run struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	Status       string     `db:"status"        json:"status"`
	Provider     string     `db:"provider"      json:"provider"`
	Model        string     `db:"model"         json:"model"`
	InputPath    string     `db:"input_path"    json:"input_path"`
	TotalRecords int        `db:"total_records" json:"total_records"`
	Succeeded    int        `db:"succeeded"     json:"succeeded"`
	Failed       int        `db:"failed"        json:"failed"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
