package api

import (
	"github.com/showledger/showledger/app/database"
	"github.com/showledger/showledger/app/source"
	"github.com/showledger/showledger/app/tasks"
)

type Handler struct {
	configCache   *source.ConfigCache
	sourceRepo    database.SourceRepository
	rawShowRepo   database.RawShowRepository
	showRepo      database.ShowRepository
	runRepo       database.RunRepository
	statRepo      database.StatRepository
	scheduler     tasks.TaskSchedulerInterface
	ingestService tasks.IngestServiceInterface
}
