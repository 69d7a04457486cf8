package database

import (
	"time"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusDegraded  = "degraded"
	RunStatusFailed    = "failed"
)

type Source struct {
	ID            string // Database UUID
	Name          string // Configuration source identifier derived from filename
	URL           string // Catalog base URL from configuration
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RawShow is one immutable version of a show as fetched from the
// source. Rows are only ever appended; the single mutation allowed is
// flipping is_latest off when a newer version arrives.
type RawShow struct {
	ID           string
	SourceID     string
	ShowID       int64 // Identity key assigned by the source catalog
	Version      int   // 1..N, dense per (source, show)
	IsLatest     bool
	FetchBatchID int64 // Ingest run that wrote this version
	Payload      []byte // Canonical JSON
	PayloadHash  string
	FetchedAt    time.Time
}

type Show struct {
	ID           string
	SourceID     string
	SourceName   string // Populated by queries joining sources
	ShowID       int64
	Name         string
	Kind         string // API field "type"
	Language     *string
	Genres       []string
	Status       string
	Runtime      *float64
	PremiereDate *string // ISO date YYYY-MM-DD
	Rating       *float64
	Summary      string // Sanitized plain text
	UpdatedAt    time.Time
}

type Run struct {
	ID                int64
	SourceID          string
	SourceName        string // Populated by queries joining sources
	Status            string
	StartedAt         time.Time
	FinishedAt        *time.Time
	PagesFetched      int
	RecordsSeen       int
	VersionsWritten   int
	UnchangedSkipped  int
	ValidationRejects int
	ReconcileErrors   int
	Error             string
}

type ShowStat struct {
	ID                 string
	SourceID           string
	ShowID             int64
	YearsSincePremiere *int
	IsActive           bool
	Popularity         string
	ComputedAt         time.Time
}

type GenreStat struct {
	ID         string
	SourceID   string
	SourceName string // Populated by queries joining sources
	Genre      string
	ShowCount  int
	AvgRating  *float64
	ComputedAt time.Time
}
