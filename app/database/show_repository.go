package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type showRepository struct {
	db *DB
}

func NewShowRepository(db *DB) ShowRepository {
	return &showRepository{db: db}
}

func (r *showRepository) GetShow(showID int64, sourceName string) (*Show, error) {
	query := `
		SELECT sh.id, sh.source_id, s.name, sh.show_id, sh.name, sh.kind,
		       sh.language, sh.genres, sh.status, sh.runtime, sh.premiere_date,
		       sh.rating, sh.summary, sh.updated_at
		FROM shows sh
		JOIN sources s ON s.id = sh.source_id
		WHERE sh.show_id = ?`
	args := []any{showID}

	if sourceName != "" {
		query += ` AND s.name = ?`
		args = append(args, sourceName)
	}
	query += ` ORDER BY s.name LIMIT 1`

	var show Show
	var genres string
	err := r.db.QueryRow(query, args...).Scan(
		&show.ID, &show.SourceID, &show.SourceName, &show.ShowID, &show.Name,
		&show.Kind, &show.Language, &genres, &show.Status, &show.Runtime,
		&show.PremiereDate, &show.Rating, &show.Summary, &show.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show: %w", err)
	}

	if show.Genres, err = decodeGenres(genres); err != nil {
		return nil, err
	}

	return &show, nil
}

func (r *showRepository) GetShows(sourceName string, limit, offset int) ([]Show, error) {
	query := `
		SELECT sh.id, sh.source_id, s.name, sh.show_id, sh.name, sh.kind,
		       sh.language, sh.genres, sh.status, sh.runtime, sh.premiere_date,
		       sh.rating, sh.summary, sh.updated_at
		FROM shows sh
		JOIN sources s ON s.id = sh.source_id`
	args := []any{}

	if sourceName != "" {
		query += ` WHERE s.name = ?`
		args = append(args, sourceName)
	}
	// SQLite reads LIMIT -1 as no limit.
	if limit <= 0 {
		limit = -1
	}
	query += ` ORDER BY s.name, sh.show_id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get shows: %w", err)
	}
	defer rows.Close()

	var shows []Show
	for rows.Next() {
		var show Show
		var genres string
		err := rows.Scan(
			&show.ID, &show.SourceID, &show.SourceName, &show.ShowID, &show.Name,
			&show.Kind, &show.Language, &genres, &show.Status, &show.Runtime,
			&show.PremiereDate, &show.Rating, &show.Summary, &show.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show row: %w", err)
		}
		if show.Genres, err = decodeGenres(genres); err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating show rows: %w", err)
	}

	return shows, nil
}

func (r *showRepository) GetShowCount(sourceName string) (int, error) {
	var count int
	var err error

	if sourceName == "" {
		err = r.db.QueryRow("SELECT COUNT(*) FROM shows").Scan(&count)
	} else {
		err = r.db.QueryRow(`
			SELECT COUNT(*)
			FROM shows sh
			JOIN sources s ON s.id = sh.source_id
			WHERE s.name = ?
		`, sourceName).Scan(&count)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get show count: %w", err)
	}
	return count, nil
}

// ReplaceShows swaps the normalized rows of a source in one
// transaction, so readers see either the previous pass or the new one.
func (r *showRepository) ReplaceShows(sourceName string, shows []Show) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sourceID, err := resolveSource(tx, sourceName)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM shows WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to clear shows: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO shows (id, source_id, show_id, name, kind, language, genres,
		                   status, runtime, premiere_date, rating, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare show insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, show := range shows {
		genres, err := encodeGenres(show.Genres)
		if err != nil {
			return err
		}

		_, err = stmt.Exec(uuid.New().String(), sourceID, show.ShowID, show.Name,
			show.Kind, show.Language, genres, show.Status, show.Runtime,
			show.PremiereDate, show.Rating, show.Summary, now)
		if err != nil {
			return fmt.Errorf("failed to insert show %d: %w", show.ShowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit show replacement: %w", err)
	}

	return nil
}

func encodeGenres(genres []string) (string, error) {
	if genres == nil {
		genres = []string{}
	}
	data, err := json.Marshal(genres)
	if err != nil {
		return "", fmt.Errorf("failed to encode genres: %w", err)
	}
	return string(data), nil
}

func decodeGenres(data string) ([]string, error) {
	var genres []string
	if err := json.Unmarshal([]byte(data), &genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}
	return genres, nil
}
