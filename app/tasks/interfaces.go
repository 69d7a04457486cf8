package tasks

import (
	"context"

	"github.com/showledger/showledger/app/ingest"
	"github.com/showledger/showledger/app/source"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API server to manage background task
// processing.
// Example usage:
//
//	scheduler := NewScheduler(configCache, sourceRepo, ingestService)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestCatalogTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// IngestServiceInterface defines the ingestion operations tasks invoke.
type IngestServiceInterface interface {
	Run(ctx context.Context, sourceConfig *source.Config) (*ingest.Report, error)
	RefreshStats(sourceName string) error
}

var _ IngestServiceInterface = (*ingest.Service)(nil)
