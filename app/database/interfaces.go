package database

import (
	"time"
)

// VersionInfo is the version/hash pair of the current latest raw row,
// prefetched per source so reconciliation does not query per record.
type VersionInfo struct {
	Version int
	Hash    string
}

type SourceRepository interface {
	GetSource(sourceName string) (*Source, error)
	GetSources() ([]Source, error)
	GetSourceCount() (int, error)

	UpsertSource(sourceName, sourceURL string) error
	UpdateFetchSchedule(sourceName string, lastFetchedAt, nextFetchAt time.Time) error
}

type RawShowRepository interface {
	GetLatest(sourceName string, showID int64) (*RawShow, error)
	GetLatestVersions(sourceName string) (map[int64]VersionInfo, error)
	GetAllLatest(sourceName string) ([]RawShow, error)
	GetHistory(sourceName string, showID int64) ([]RawShow, error)
	GetVersionCount(sourceName string) (int, error)
	GetShowCount(sourceName string) (int, error)

	// InsertVersion writes the next version for raw's show, flipping
	// the previous latest row in the same transaction. The assigned
	// version number is returned.
	InsertVersion(sourceName string, raw RawShow) (int, error)
}

type ShowRepository interface {
	// GetShow returns the normalized show, searching all sources when
	// sourceName is empty.
	GetShow(showID int64, sourceName string) (*Show, error)
	GetShows(sourceName string, limit, offset int) ([]Show, error)
	GetShowCount(sourceName string) (int, error)

	ReplaceShows(sourceName string, shows []Show) error
}

type RunRepository interface {
	// CreateRun opens a run row and returns its id, which doubles as
	// the fetch batch id for raw rows written by the run.
	CreateRun(sourceName string, startedAt time.Time) (int64, error)
	FinishRun(run Run) error

	GetRun(runID int64) (*Run, error)
	GetRecentRuns(sourceName string, limit int) ([]Run, error)
}

type StatRepository interface {
	GetShowStat(sourceName string, showID int64) (*ShowStat, error)
	GetGenreStats(sourceName string) ([]GenreStat, error)

	ReplaceShowStats(sourceName string, stats []ShowStat) error
	ReplaceGenreStats(sourceName string, stats []GenreStat) error
}
