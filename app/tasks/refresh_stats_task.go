package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/showledger/showledger/app/ingest"
)

type RefreshStatsTask struct {
	Task
	ingestService IngestServiceInterface
}

func NewRefreshStatsTask(sourceName string, ingestService IngestServiceInterface) *RefreshStatsTask {
	return &RefreshStatsTask{
		Task:          NewTask(TaskTypeRefreshStats, sourceName),
		ingestService: ingestService,
	}
}

func (t *RefreshStatsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.ingestService.RefreshStats(t.SourceName)
	if errors.Is(err, ingest.ErrRunInProgress) {
		slog.Debug("Ingestion already running, skipping stats refresh", "source", t.SourceName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to refresh stats: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshStats",
		"source", t.SourceName,
		"duration", t.GetDuration())

	return nil
}
