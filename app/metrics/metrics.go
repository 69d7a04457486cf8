package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/showledger/showledger/app/ingest"
)

const namespace = "showledger"

// Collector publishes ingestion counters to Prometheus. Construct it
// once at startup; it registers itself on the default registry.
type Collector struct {
	pagesFetched      *prometheus.CounterVec
	recordsSeen       *prometheus.CounterVec
	versionsWritten   *prometheus.CounterVec
	unchangedSkipped  *prometheus.CounterVec
	validationRejects *prometheus.CounterVec
	reconcileErrors   *prometheus.CounterVec
	runs              *prometheus.CounterVec
	lastRunTimestamp  *prometheus.GaugeVec
}

var _ ingest.RunRecorder = (*Collector)(nil)

func NewCollector() *Collector {
	c := &Collector{}
	c.pagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_fetched_total",
		Help:      "Catalog pages fetched",
	}, []string{"source"})
	c.recordsSeen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_seen_total",
		Help:      "Records seen across fetched pages",
	}, []string{"source"})
	c.versionsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "versions_written_total",
		Help:      "New show versions appended to the version log",
	}, []string{"source"})
	c.unchangedSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unchanged_total",
		Help:      "Records skipped because the payload was unchanged",
	}, []string{"source"})
	c.validationRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_rejects_total",
		Help:      "Payloads rejected by validation",
	}, []string{"source"})
	c.reconcileErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_errors_total",
		Help:      "Records that could not be versioned",
	}, []string{"source"})
	c.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Ingestion runs by final status",
	}, []string{"source", "status"})
	c.lastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last finished run",
	}, []string{"source"})

	prometheus.MustRegister(
		c.pagesFetched, c.recordsSeen, c.versionsWritten, c.unchangedSkipped,
		c.validationRejects, c.reconcileErrors, c.runs, c.lastRunTimestamp,
	)
	return c
}

// RecordRun folds one finished run into the counters.
func (c *Collector) RecordRun(report *ingest.Report) {
	source := report.SourceName
	c.pagesFetched.WithLabelValues(source).Add(float64(report.PagesFetched))
	c.recordsSeen.WithLabelValues(source).Add(float64(report.RecordsSeen))
	c.versionsWritten.WithLabelValues(source).Add(float64(report.VersionsWritten))
	c.unchangedSkipped.WithLabelValues(source).Add(float64(report.UnchangedSkipped))
	c.validationRejects.WithLabelValues(source).Add(float64(report.ValidationRejects))
	c.reconcileErrors.WithLabelValues(source).Add(float64(report.ReconcileErrors))
	c.runs.WithLabelValues(source, report.Status).Inc()
	c.lastRunTimestamp.WithLabelValues(source).Set(float64(report.FinishedAt.Unix()))
}
