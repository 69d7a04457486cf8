package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type statRepository struct {
	db *DB
}

func NewStatRepository(db *DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) GetShowStat(sourceName string, showID int64) (*ShowStat, error) {
	var stat ShowStat
	err := r.db.QueryRow(`
		SELECT st.id, st.source_id, st.show_id, st.years_since_premiere,
		       st.is_active, st.popularity, st.computed_at
		FROM show_stats st
		JOIN sources s ON s.id = st.source_id
		WHERE s.name = ? AND st.show_id = ?
	`, sourceName, showID).Scan(
		&stat.ID, &stat.SourceID, &stat.ShowID, &stat.YearsSincePremiere,
		&stat.IsActive, &stat.Popularity, &stat.ComputedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show stat: %w", err)
	}

	return &stat, nil
}

func (r *statRepository) GetGenreStats(sourceName string) ([]GenreStat, error) {
	query := `
		SELECT g.id, g.source_id, s.name, g.genre, g.show_count, g.avg_rating, g.computed_at
		FROM genre_stats g
		JOIN sources s ON s.id = g.source_id`
	args := []any{}

	if sourceName != "" {
		query += ` WHERE s.name = ?`
		args = append(args, sourceName)
	}
	query += ` ORDER BY s.name, g.genre`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get genre stats: %w", err)
	}
	defer rows.Close()

	var stats []GenreStat
	for rows.Next() {
		var stat GenreStat
		err := rows.Scan(
			&stat.ID, &stat.SourceID, &stat.SourceName, &stat.Genre,
			&stat.ShowCount, &stat.AvgRating, &stat.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan genre stat row: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genre stat rows: %w", err)
	}

	return stats, nil
}

func (r *statRepository) ReplaceShowStats(sourceName string, stats []ShowStat) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sourceID, err := resolveSource(tx, sourceName)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM show_stats WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to clear show stats: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO show_stats (id, source_id, show_id, years_since_premiere, is_active, popularity, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare show stat insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, stat := range stats {
		_, err = stmt.Exec(uuid.New().String(), sourceID, stat.ShowID,
			stat.YearsSincePremiere, stat.IsActive, stat.Popularity, now)
		if err != nil {
			return fmt.Errorf("failed to insert show stat %d: %w", stat.ShowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit show stats: %w", err)
	}

	return nil
}

func (r *statRepository) ReplaceGenreStats(sourceName string, stats []GenreStat) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sourceID, err := resolveSource(tx, sourceName)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM genre_stats WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to clear genre stats: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO genre_stats (id, source_id, genre, show_count, avg_rating, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare genre stat insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, stat := range stats {
		_, err = stmt.Exec(uuid.New().String(), sourceID, stat.Genre,
			stat.ShowCount, stat.AvgRating, now)
		if err != nil {
			return fmt.Errorf("failed to insert genre stat %q: %w", stat.Genre, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit genre stats: %w", err)
	}

	return nil
}
