package source

// Config describes one remote show catalog and how to ingest it. Each
// source lives in its own YAML file under the sources directory; the
// source name is derived from the filename.
type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	Timeout         int  `yaml:"timeout"`          // seconds, per page request

	// Pagination policy. Collection stops on the first empty page, on a
	// short page once MinRecords have been gathered, or at MaxPages. This
	// is a best-effort minimum, not an exhaustive crawl.
	MinRecords int `yaml:"min_records"`
	MaxPages   int `yaml:"max_pages"`
	PageSize   int `yaml:"page_size"` // server's nominal full-page size

	// Retry policy for transient fetch failures.
	RetryAttempts     int `yaml:"retry_attempts"`
	RetryInitialDelay int `yaml:"retry_initial_delay"` // seconds
	RetryMaxDelay     int `yaml:"retry_max_delay"`     // seconds
}
