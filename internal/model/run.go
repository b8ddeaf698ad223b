package model

import "time"

// RunStatus represents the state of a warehouse load run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one entry of the etl_runs log.
type Run struct {
	ID            string     `json:"id"`
	Status        RunStatus  `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	RowsRead      int        `json:"rows_read"`
	RowsProcessed int        `json:"rows_processed"`
	RowsSkipped   int        `json:"rows_skipped"`
	Error         string     `json:"error,omitempty"`
}

// SkippedRow records a row the loader could not commit.
type SkippedRow struct {
	ListingURL string `json:"listing_url"`
	Error      string `json:"error"`
	ErrorType  string `json:"error_type"` // "transient" or "permanent"
}

// ResolveStats counts dimension resolver outcomes.
type ResolveStats struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// RunSummary is the user-visible outcome of a load.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	Status     RunStatus    `json:"status"`
	Read       int          `json:"read"`
	Processed  int          `json:"processed"`
	Skipped    int          `json:"skipped"`
	SkipDetail []SkippedRow `json:"skip_detail,omitempty"`
	Dimensions ResolveStats `json:"dimensions"`
	Duration   int64        `json:"duration_ms"`
}
