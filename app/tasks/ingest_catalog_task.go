package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/showledger/showledger/app/ingest"
	"github.com/showledger/showledger/app/source"
)

type IngestCatalogTask struct {
	Task
	SourceConfig  *source.Config
	ingestService IngestServiceInterface
}

func NewIngestCatalogTask(sourceName string, sourceConfig *source.Config, ingestService IngestServiceInterface) *IngestCatalogTask {
	return &IngestCatalogTask{
		Task:          NewTask(TaskTypeIngestCatalog, sourceName),
		SourceConfig:  sourceConfig,
		ingestService: ingestService,
	}
}

func (t *IngestCatalogTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	report, err := t.ingestService.Run(ctx, t.SourceConfig)
	if errors.Is(err, ingest.ErrRunInProgress) {
		// Another run holds the source lock. The next due check will
		// pick this source up again, so this is not a retryable failure.
		slog.Debug("Ingestion already running, skipping", "source", t.SourceName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to ingest catalog: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestCatalog",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"status", report.Status,
		"pages", report.PagesFetched,
		"records", report.RecordsSeen,
		"versions", report.VersionsWritten,
		"unchanged", report.UnchangedSkipped,
		"rejects", report.ValidationRejects)

	return nil
}
