package enrich

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/showledger/showledger/app/database"
)

// Popularity tiers derived from a show's rating.
const (
	PopularityTopRated = "Top-Rated"
	PopularityAverage  = "Average"
	PopularityLow      = "Low"
	PopularityUnrated  = "Unrated"
)

// Enricher derives per-show and per-genre statistics from the
// normalized store. Both stat tables are replaced wholesale so they
// always describe a single normalization pass.
type Enricher struct {
	showRepo database.ShowRepository
	statRepo database.StatRepository
}

func NewEnricher(showRepo database.ShowRepository, statRepo database.StatRepository) *Enricher {
	return &Enricher{
		showRepo: showRepo,
		statRepo: statRepo,
	}
}

// Run recomputes the statistics of one source from its normalized
// shows.
func (e *Enricher) Run(sourceName string) error {
	shows, err := e.showRepo.GetShows(sourceName, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to load shows: %w", err)
	}

	showStats := ComputeShowStats(shows)
	genreStats := ComputeGenreStats(shows)

	if err := e.statRepo.ReplaceShowStats(sourceName, showStats); err != nil {
		return fmt.Errorf("failed to replace show stats: %w", err)
	}
	if err := e.statRepo.ReplaceGenreStats(sourceName, genreStats); err != nil {
		return fmt.Errorf("failed to replace genre stats: %w", err)
	}

	slog.Info("Statistics refreshed",
		"source", sourceName, "shows", len(showStats), "genres", len(genreStats))
	return nil
}

// ComputeShowStats derives the per-show columns.
func ComputeShowStats(shows []database.Show) []database.ShowStat {
	currentYear := time.Now().UTC().Year()

	stats := make([]database.ShowStat, 0, len(shows))
	for _, show := range shows {
		stats = append(stats, database.ShowStat{
			ShowID:             show.ShowID,
			YearsSincePremiere: yearsSincePremiere(show.PremiereDate, currentYear),
			IsActive:           show.Status == "Running",
			Popularity:         PopularityTier(show.Rating),
		})
	}
	return stats
}

// ComputeGenreStats aggregates shows per genre. The average rating
// covers only shows that have one; a genre with no rated shows gets a
// NULL average.
func ComputeGenreStats(shows []database.Show) []database.GenreStat {
	type accumulator struct {
		showCount   int
		ratingSum   float64
		ratingCount int
	}
	byGenre := make(map[string]*accumulator)

	for _, show := range shows {
		for _, genre := range show.Genres {
			acc, ok := byGenre[genre]
			if !ok {
				acc = &accumulator{}
				byGenre[genre] = acc
			}
			acc.showCount++
			if show.Rating != nil {
				acc.ratingSum += *show.Rating
				acc.ratingCount++
			}
		}
	}

	genres := make([]string, 0, len(byGenre))
	for genre := range byGenre {
		genres = append(genres, genre)
	}
	sort.Strings(genres)

	stats := make([]database.GenreStat, 0, len(genres))
	for _, genre := range genres {
		acc := byGenre[genre]
		stat := database.GenreStat{
			Genre:     genre,
			ShowCount: acc.showCount,
		}
		if acc.ratingCount > 0 {
			avg := acc.ratingSum / float64(acc.ratingCount)
			stat.AvgRating = &avg
		}
		stats = append(stats, stat)
	}
	return stats
}

// PopularityTier buckets a rating. A show without one is "Unrated"
// rather than low.
func PopularityTier(rating *float64) string {
	switch {
	case rating == nil:
		return PopularityUnrated
	case *rating >= 8:
		return PopularityTopRated
	case *rating < 5:
		return PopularityLow
	default:
		return PopularityAverage
	}
}

func yearsSincePremiere(premiereDate *string, currentYear int) *int {
	if premiereDate == nil {
		return nil
	}
	premiere, err := time.Parse("2006-01-02", *premiereDate)
	if err != nil {
		return nil
	}
	years := currentYear - premiere.Year()
	return &years
}
