package ingest

import (
	"time"
)

// Rejection describes one raw payload the validator refused.
type Rejection struct {
	ShowID  int64
	Version int
	Reason  string
	Snippet string // Truncated payload excerpt for debugging
}

// Report carries the outcome of one ingestion run. Its counters mirror
// the run row and feed the log line and the Prometheus metrics.
type Report struct {
	RunID      int64
	SourceName string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time

	PagesFetched      int
	RecordsSeen       int
	VersionsWritten   int
	UnchangedSkipped  int
	ValidationRejects int
	ReconcileErrors   int
	Error             string
}
