package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type rawShowRepository struct {
	db *DB
}

func NewRawShowRepository(db *DB) RawShowRepository {
	return &rawShowRepository{db: db}
}

func (r *rawShowRepository) GetLatest(sourceName string, showID int64) (*RawShow, error) {
	var raw RawShow
	err := r.db.QueryRow(`
		SELECT sr.id, sr.source_id, sr.show_id, sr.version, sr.is_latest,
		       sr.fetch_batch_id, sr.payload, sr.payload_hash, sr.fetched_at
		FROM shows_raw sr
		JOIN sources s ON s.id = sr.source_id
		WHERE s.name = ? AND sr.show_id = ? AND sr.is_latest = 1
	`, sourceName, showID).Scan(
		&raw.ID, &raw.SourceID, &raw.ShowID, &raw.Version, &raw.IsLatest,
		&raw.FetchBatchID, &raw.Payload, &raw.PayloadHash, &raw.FetchedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest raw show: %w", err)
	}

	return &raw, nil
}

func (r *rawShowRepository) GetLatestVersions(sourceName string) (map[int64]VersionInfo, error) {
	rows, err := r.db.Query(`
		SELECT sr.show_id, sr.version, sr.payload_hash
		FROM shows_raw sr
		JOIN sources s ON s.id = sr.source_id
		WHERE s.name = ? AND sr.is_latest = 1
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[int64]VersionInfo)
	for rows.Next() {
		var showID int64
		var info VersionInfo
		if err := rows.Scan(&showID, &info.Version, &info.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		versions[showID] = info
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating version rows: %w", err)
	}

	return versions, nil
}

func (r *rawShowRepository) GetAllLatest(sourceName string) ([]RawShow, error) {
	rows, err := r.db.Query(`
		SELECT sr.id, sr.source_id, sr.show_id, sr.version, sr.is_latest,
		       sr.fetch_batch_id, sr.payload, sr.payload_hash, sr.fetched_at
		FROM shows_raw sr
		JOIN sources s ON s.id = sr.source_id
		WHERE s.name = ? AND sr.is_latest = 1
		ORDER BY sr.show_id
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest raw shows: %w", err)
	}
	defer rows.Close()

	return scanRawShows(rows)
}

func (r *rawShowRepository) GetHistory(sourceName string, showID int64) ([]RawShow, error) {
	rows, err := r.db.Query(`
		SELECT sr.id, sr.source_id, sr.show_id, sr.version, sr.is_latest,
		       sr.fetch_batch_id, sr.payload, sr.payload_hash, sr.fetched_at
		FROM shows_raw sr
		JOIN sources s ON s.id = sr.source_id
		WHERE s.name = ? AND sr.show_id = ?
		ORDER BY sr.version DESC
	`, sourceName, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raw show history: %w", err)
	}
	defer rows.Close()

	return scanRawShows(rows)
}

func (r *rawShowRepository) GetVersionCount(sourceName string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM shows_raw sr
		JOIN sources s ON s.id = sr.source_id
		WHERE s.name = ?
	`, sourceName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get version count: %w", err)
	}
	return count, nil
}

func (r *rawShowRepository) GetShowCount(sourceName string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM shows_raw sr
		JOIN sources s ON s.id = sr.source_id
		WHERE s.name = ? AND sr.is_latest = 1
	`, sourceName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get raw show count: %w", err)
	}
	return count, nil
}

// InsertVersion retires the current latest row and inserts the next
// version in one transaction, so there is never a moment with zero or
// two latest rows for a show.
func (r *rawShowRepository) InsertVersion(sourceName string, raw RawShow) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sourceID, err := resolveSource(tx, sourceName)
	if err != nil {
		return 0, err
	}

	var currentVersion int
	err = tx.QueryRow(`
		SELECT version FROM shows_raw
		WHERE source_id = ? AND show_id = ? AND is_latest = 1
	`, sourceID, raw.ShowID).Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}

	if err == nil {
		_, err = tx.Exec(`
			UPDATE shows_raw SET is_latest = 0
			WHERE source_id = ? AND show_id = ? AND is_latest = 1
		`, sourceID, raw.ShowID)
		if err != nil {
			return 0, fmt.Errorf("failed to retire previous version: %w", err)
		}
	}

	version := currentVersion + 1
	_, err = tx.Exec(`
		INSERT INTO shows_raw (id, source_id, show_id, version, is_latest, fetch_batch_id, payload, payload_hash, fetched_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?)
	`, uuid.New().String(), sourceID, raw.ShowID, version,
		raw.FetchBatchID, string(raw.Payload), raw.PayloadHash, raw.FetchedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert version %d: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit version insert: %w", err)
	}

	return version, nil
}

func scanRawShows(rows *sql.Rows) ([]RawShow, error) {
	var raws []RawShow
	for rows.Next() {
		var raw RawShow
		err := rows.Scan(
			&raw.ID, &raw.SourceID, &raw.ShowID, &raw.Version, &raw.IsLatest,
			&raw.FetchBatchID, &raw.Payload, &raw.PayloadHash, &raw.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw show row: %w", err)
		}
		raws = append(raws, raw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raw show rows: %w", err)
	}

	return raws, nil
}
