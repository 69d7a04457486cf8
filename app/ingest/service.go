package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/showledger/showledger/app/catalog"
	"github.com/showledger/showledger/app/database"
	"github.com/showledger/showledger/app/enrich"
	"github.com/showledger/showledger/app/source"
)

// ErrRunInProgress is returned when the source already has an active
// run.
var ErrRunInProgress = errors.New("ingestion already running for this source")

// RunRecorder receives the counters of finished runs.
type RunRecorder interface {
	RecordRun(report *Report)
}

// Service drives one full ingestion pass per call: paginate the
// source, reconcile raw versions, rebuild the normalized store and
// refresh the statistics. At most one run per source is active at a
// time; runs for different sources may overlap.
type Service struct {
	client      *catalog.Client
	rawShowRepo database.RawShowRepository
	showRepo    database.ShowRepository
	runRepo     database.RunRepository
	sourceRepo  database.SourceRepository
	reconciler  *Reconciler
	validator   *Validator
	enricher    *enrich.Enricher
	recorder    RunRecorder

	mu      sync.Mutex
	running map[string]bool
}

func NewService(client *catalog.Client, rawShowRepo database.RawShowRepository,
	showRepo database.ShowRepository, runRepo database.RunRepository,
	sourceRepo database.SourceRepository, enricher *enrich.Enricher, recorder RunRecorder) *Service {
	return &Service{
		client:      client,
		rawShowRepo: rawShowRepo,
		showRepo:    showRepo,
		runRepo:     runRepo,
		sourceRepo:  sourceRepo,
		reconciler:  NewReconciler(rawShowRepo),
		validator:   NewValidator(),
		enricher:    enricher,
		recorder:    recorder,
		running:     make(map[string]bool),
	}
}

// Run executes one ingestion pass for the source. A non-nil report
// comes back whenever a run row was opened, including failed runs; the
// error is non-nil only when the pipeline did not complete.
func (s *Service) Run(ctx context.Context, sourceConfig *source.Config) (*Report, error) {
	if !s.tryLock(sourceConfig.Name) {
		return nil, ErrRunInProgress
	}
	defer s.unlock(sourceConfig.Name)

	startedAt := time.Now().UTC()
	runID, err := s.runRepo.CreateRun(sourceConfig.Name, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	report := &Report{
		RunID:      runID,
		SourceName: sourceConfig.Name,
		StartedAt:  startedAt,
	}
	slog.Info("Ingestion started", "source", sourceConfig.Name, "run_id", runID)

	pager := catalog.NewPager(s.client, sourceConfig)
	records, fetchErr := pager.Collect(ctx)

	stats := pager.Stats()
	report.PagesFetched = stats.PagesFetched
	report.RecordsSeen = stats.RecordsSeen
	report.ReconcileErrors = stats.RecordsSkipped
	if fetchErr != nil {
		report.Error = fetchErr.Error()
		slog.Error("Catalog fetch incomplete",
			"source", sourceConfig.Name, "pages", stats.PagesFetched, "error", fetchErr)
	}

	if stats.PagesFetched == 0 {
		// Nothing was fetched, so there is nothing to reconcile and no
		// reason to touch the stores.
		return s.fail(report, fetchErr)
	}

	if err := s.pipeline(report, sourceConfig.Name, records); err != nil {
		return s.fail(report, err)
	}

	s.finish(report)

	now := time.Now().UTC()
	next := now.Add(time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second)
	if err := s.sourceRepo.UpdateFetchSchedule(sourceConfig.Name, now, next); err != nil {
		slog.Error("Failed to update fetch schedule", "source", sourceConfig.Name, "error", err)
	}

	return report, nil
}

// RefreshStats recomputes the derived statistics of a source without
// fetching. It shares the per-source lock with Run.
func (s *Service) RefreshStats(sourceName string) error {
	if !s.tryLock(sourceName) {
		return ErrRunInProgress
	}
	defer s.unlock(sourceName)

	return s.enricher.Run(sourceName)
}

// pipeline reconciles the fetched records and rebuilds the normalized
// store and statistics from the resulting latest versions. Raw version
// writes stay even when a later stage fails.
func (s *Service) pipeline(report *Report, sourceName string, records []catalog.Record) error {
	reconciled, err := s.reconciler.Run(sourceName, report.RunID, report.StartedAt, records)
	if err != nil {
		return err
	}
	report.VersionsWritten = reconciled.VersionsWritten()
	report.UnchangedSkipped = reconciled.Unchanged
	report.ReconcileErrors += len(reconciled.Failed)

	raws, err := s.rawShowRepo.GetAllLatest(sourceName)
	if err != nil {
		return fmt.Errorf("failed to load latest versions: %w", err)
	}

	shows, rejections := s.validator.Run(raws)
	report.ValidationRejects = len(rejections)

	if err := s.showRepo.ReplaceShows(sourceName, shows); err != nil {
		return fmt.Errorf("failed to replace shows: %w", err)
	}

	if err := s.enricher.Run(sourceName); err != nil {
		return fmt.Errorf("failed to refresh stats: %w", err)
	}

	return nil
}

// finish resolves the final status of a completed pipeline and closes
// the run.
func (s *Service) finish(report *Report) {
	if report.Error != "" || report.ValidationRejects > 0 || report.ReconcileErrors > 0 {
		report.Status = database.RunStatusDegraded
	} else {
		report.Status = database.RunStatusSucceeded
	}
	s.close(report)
}

// fail closes the run as failed. Raw rows written before the failure
// stay put; only the stores derived from them are left untouched.
func (s *Service) fail(report *Report, err error) (*Report, error) {
	if err != nil && report.Error == "" {
		report.Error = err.Error()
	}
	report.Status = database.RunStatusFailed
	s.close(report)
	return report, err
}

// close stamps the run row, publishes metrics and logs the outcome.
func (s *Service) close(report *Report) {
	report.FinishedAt = time.Now().UTC()

	finishedAt := report.FinishedAt
	err := s.runRepo.FinishRun(database.Run{
		ID:                report.RunID,
		Status:            report.Status,
		FinishedAt:        &finishedAt,
		PagesFetched:      report.PagesFetched,
		RecordsSeen:       report.RecordsSeen,
		VersionsWritten:   report.VersionsWritten,
		UnchangedSkipped:  report.UnchangedSkipped,
		ValidationRejects: report.ValidationRejects,
		ReconcileErrors:   report.ReconcileErrors,
		Error:             report.Error,
	})
	if err != nil {
		slog.Error("Failed to finish run", "run_id", report.RunID, "error", err)
	}

	if s.recorder != nil {
		s.recorder.RecordRun(report)
	}

	slog.Info("Ingestion finished",
		"source", report.SourceName,
		"run_id", report.RunID,
		"status", report.Status,
		"pages", report.PagesFetched,
		"records", report.RecordsSeen,
		"versions", report.VersionsWritten,
		"unchanged", report.UnchangedSkipped,
		"rejects", report.ValidationRejects,
		"errors", report.ReconcileErrors,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String(),
	)
}

func (s *Service) tryLock(sourceName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[sourceName] {
		return false
	}
	s.running[sourceName] = true
	return true
}

func (s *Service) unlock(sourceName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, sourceName)
}
