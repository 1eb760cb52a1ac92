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

const (
	RunModeGenerate = "generate"
	RunModeRefine   = "refine"
)

const (
	RowOutcomeProcessed = "processed"
	RowOutcomeSkipped   = "skipped"
	RowOutcomeError     = "error"
)

// Run tracks one batch execution over a catalog. The API returns a run_id on
// POST /api/v1/runs; clients poll GET /api/v1/runs/{run_id} until the status is
// completed or failed.
type Run struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	Mode         string     `db:"mode"          json:"mode"`
	Status       string     `db:"status"        json:"status"`
	InputPath    string     `db:"input_path"    json:"input_path"`
	OutputPath   string     `db:"output_path"   json:"output_path"`
	Processed    int        `db:"processed"     json:"processed"`
	Skipped      int        `db:"skipped"       json:"skipped"`
	Errors       int        `db:"errors"        json:"errors"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}

// RowResult is the ledger entry for one catalog row of a run.
type RowResult struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	RunID        uuid.UUID `db:"run_id"        json:"run_id"`
	RowIndex     int       `db:"row_index"     json:"row_index"`
	Identifier   string    `db:"identifier"    json:"identifier"`
	Outcome      string    `db:"outcome"       json:"outcome"`
	ImageURL     *string   `db:"image_url"     json:"image_url,omitempty"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
