package database

import (
	"database/sql"
	"fmt"
	"time"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(sourceName string, startedAt time.Time) (int64, error) {
	var sourceID string
	err := r.db.QueryRow(`SELECT id FROM sources WHERE name = ?`, sourceName).Scan(&sourceID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("source %q is not registered", sourceName)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve source: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT INTO runs (source_id, status, started_at)
		VALUES (?, ?, ?)
	`, sourceID, RunStatusRunning, startedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	return runID, nil
}

func (r *runRepository) FinishRun(run Run) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET status = ?, finished_at = ?, pages_fetched = ?, records_seen = ?,
		    versions_written = ?, unchanged_skipped = ?, validation_rejects = ?,
		    reconcile_errors = ?, error = ?
		WHERE id = ?
	`, run.Status, run.FinishedAt, run.PagesFetched, run.RecordsSeen,
		run.VersionsWritten, run.UnchangedSkipped, run.ValidationRejects,
		run.ReconcileErrors, run.Error, run.ID)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

func (r *runRepository) GetRun(runID int64) (*Run, error) {
	var run Run
	err := r.db.QueryRow(`
		SELECT r.id, r.source_id, s.name, r.status, r.started_at, r.finished_at,
		       r.pages_fetched, r.records_seen, r.versions_written,
		       r.unchanged_skipped, r.validation_rejects, r.reconcile_errors,
		       COALESCE(r.error, '')
		FROM runs r
		JOIN sources s ON s.id = r.source_id
		WHERE r.id = ?
	`, runID).Scan(
		&run.ID, &run.SourceID, &run.SourceName, &run.Status, &run.StartedAt,
		&run.FinishedAt, &run.PagesFetched, &run.RecordsSeen,
		&run.VersionsWritten, &run.UnchangedSkipped, &run.ValidationRejects,
		&run.ReconcileErrors, &run.Error,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

func (r *runRepository) GetRecentRuns(sourceName string, limit int) ([]Run, error) {
	query := `
		SELECT r.id, r.source_id, s.name, r.status, r.started_at, r.finished_at,
		       r.pages_fetched, r.records_seen, r.versions_written,
		       r.unchanged_skipped, r.validation_rejects, r.reconcile_errors,
		       COALESCE(r.error, '')
		FROM runs r
		JOIN sources s ON s.id = r.source_id`
	args := []any{}

	if sourceName != "" {
		query += ` WHERE s.name = ?`
		args = append(args, sourceName)
	}
	query += ` ORDER BY r.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		err := rows.Scan(
			&run.ID, &run.SourceID, &run.SourceName, &run.Status, &run.StartedAt,
			&run.FinishedAt, &run.PagesFetched, &run.RecordsSeen,
			&run.VersionsWritten, &run.UnchangedSkipped, &run.ValidationRejects,
			&run.ReconcileErrors, &run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}
