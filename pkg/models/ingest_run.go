package models

import "time"

const (
	RunStatusSuccess = "success"
	RunStatusFailure = "failure"
)

// IngestRun records the outcome of one fetch -> extract -> reconcile pass
// over a single source.
type IngestRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	URL        string    `json:"url"`
	Status     string    `json:"status"` // "success" or "failure"
	Error      string    `json:"error,omitempty"`
	Fetched    int       `json:"fetched"`   // raw listings found in the payload
	Extracted  int       `json:"extracted"` // canonical records produced
	Skipped    int       `json:"skipped"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
