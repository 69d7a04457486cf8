package ingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/showledger/showledger/app/catalog"
	"github.com/showledger/showledger/app/database"
)

// ReconcileResult summarizes how a fetched batch landed in the version
// log.
type ReconcileResult struct {
	New       int
	Changed   int
	Unchanged int
	Failed    []int64 // Show ids whose version write failed
}

// VersionsWritten is the number of new rows the batch added to the
// version log.
func (r *ReconcileResult) VersionsWritten() int {
	return r.New + r.Changed
}

// Reconciler compares fetched records against the current latest
// versions and appends a new version only when the payload actually
// changed. Re-running it over identical data writes nothing.
type Reconciler struct {
	rawShowRepo database.RawShowRepository
}

func NewReconciler(rawShowRepo database.RawShowRepository) *Reconciler {
	return &Reconciler{rawShowRepo: rawShowRepo}
}

// Run reconciles records against sourceName's version log. A failed
// write skips that record and moves on; only the initial version
// lookup can fail the whole batch.
func (r *Reconciler) Run(sourceName string, fetchBatchID int64, fetchedAt time.Time, records []catalog.Record) (*ReconcileResult, error) {
	latest, err := r.rawShowRepo.GetLatestVersions(sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest versions: %w", err)
	}

	result := &ReconcileResult{}
	for _, record := range records {
		current, exists := latest[record.ShowID]
		if exists && current.Hash == record.Hash {
			result.Unchanged++
			continue
		}

		version, err := r.rawShowRepo.InsertVersion(sourceName, database.RawShow{
			ShowID:       record.ShowID,
			FetchBatchID: fetchBatchID,
			Payload:      record.Canonical,
			PayloadHash:  record.Hash,
			FetchedAt:    fetchedAt,
		})
		if err != nil {
			slog.Error("Failed to write show version",
				"source", sourceName, "show_id", record.ShowID, "error", err)
			result.Failed = append(result.Failed, record.ShowID)
			continue
		}

		// Track the write so a duplicate of this show later in the same
		// batch compares against it instead of the stale snapshot.
		latest[record.ShowID] = database.VersionInfo{Version: version, Hash: record.Hash}

		if exists {
			result.Changed++
			slog.Debug("Show changed", "source", sourceName, "show_id", record.ShowID, "version", version)
		} else {
			result.New++
			slog.Debug("Show first seen", "source", sourceName, "show_id", record.ShowID)
		}
	}

	return result, nil
}
