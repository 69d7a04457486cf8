package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/showledger/showledger/app/database"
	"github.com/showledger/showledger/app/source"
	"github.com/showledger/showledger/app/tasks"
)

func NewHandler(configCache *source.ConfigCache, sourceRepo database.SourceRepository,
	rawShowRepo database.RawShowRepository, showRepo database.ShowRepository,
	runRepo database.RunRepository, statRepo database.StatRepository,
	scheduler tasks.TaskSchedulerInterface, ingestService tasks.IngestServiceInterface) *Handler {
	return &Handler{
		configCache:   configCache,
		sourceRepo:    sourceRepo,
		rawShowRepo:   rawShowRepo,
		showRepo:      showRepo,
		runRepo:       runRepo,
		statRepo:      statRepo,
		scheduler:     scheduler,
		ingestService: ingestService,
	}
}

func (h *Handler) GetShows(c *gin.Context) {
	sourceName := c.Query("source")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
		return
	}

	shows, err := h.showRepo.GetShows(sourceName, limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "get_shows", "source", sourceName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total, err := h.showRepo.GetShowCount(sourceName)
	if err != nil {
		slog.Error("Database error", "operation", "get_show_count", "source", sourceName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]gin.H, 0, len(shows))
	for _, show := range shows {
		results = append(results, showResponse(show))
	}

	c.JSON(http.StatusOK, gin.H{
		"shows":  results,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetShow(c *gin.Context) {
	showID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid show id"})
		return
	}
	sourceName := c.Query("source")

	show, err := h.showRepo.GetShow(showID, sourceName)
	if err != nil {
		slog.Error("Database error", "operation", "get_show", "show_id", showID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if show == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Show not found"})
		return
	}

	response := showResponse(*show)

	if stat, err := h.statRepo.GetShowStat(show.SourceName, showID); err == nil && stat != nil {
		response["stats"] = gin.H{
			"years_since_premiere": stat.YearsSincePremiere,
			"is_active":            stat.IsActive,
			"popularity":           stat.Popularity,
			"computed_at":          stat.ComputedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetShowHistory(c *gin.Context) {
	showID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid show id"})
		return
	}

	// The version log is per source. Without an explicit source
	// parameter, resolve it through the normalized store.
	sourceName := c.Query("source")
	if sourceName == "" {
		show, err := h.showRepo.GetShow(showID, "")
		if err != nil {
			slog.Error("Database error", "operation", "get_show", "show_id", showID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if show == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Show not found"})
			return
		}
		sourceName = show.SourceName
	}

	history, err := h.rawShowRepo.GetHistory(sourceName, showID)
	if err != nil {
		slog.Error("Database error", "operation", "get_history", "show_id", showID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(history) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Show not found"})
		return
	}

	versions := make([]gin.H, 0, len(history))
	for _, raw := range history {
		versions = append(versions, gin.H{
			"version":        raw.Version,
			"is_latest":      raw.IsLatest,
			"payload_hash":   raw.PayloadHash,
			"fetch_batch_id": raw.FetchBatchID,
			"fetched_at":     raw.FetchedAt,
			"payload":        json.RawMessage(raw.Payload),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"show_id":  showID,
		"source":   sourceName,
		"versions": versions,
		"total":    len(versions),
	})
}

func (h *Handler) GetGenreStats(c *gin.Context) {
	sourceName := c.Query("source")

	stats, err := h.statRepo.GetGenreStats(sourceName)
	if err != nil {
		slog.Error("Database error", "operation", "get_genre_stats", "source", sourceName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	genres := make([]gin.H, 0, len(stats))
	for _, stat := range stats {
		genres = append(genres, gin.H{
			"source":      stat.SourceName,
			"genre":       stat.Genre,
			"show_count":  stat.ShowCount,
			"avg_rating":  stat.AvgRating,
			"computed_at": stat.ComputedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"genres": genres,
		"total":  len(genres),
	})
}

func (h *Handler) GetRuns(c *gin.Context) {
	sourceName := c.Query("source")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	runs, err := h.runRepo.GetRecentRuns(sourceName, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_runs", "source", sourceName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	results := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		results = append(results, runResponse(run))
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  results,
		"total": len(results),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}
	if showCount, err := h.showRepo.GetShowCount(""); err == nil {
		health["shows"] = showCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":    sourceConfig.Name,
			"url":     sourceConfig.URL,
			"enabled": sourceConfig.Settings.Enabled,
		}

		if count, err := h.rawShowRepo.GetShowCount(sourceConfig.Name); err == nil {
			sourceInfo["shows_tracked"] = count
		}
		if count, err := h.rawShowRepo.GetVersionCount(sourceConfig.Name); err == nil {
			sourceInfo["versions_stored"] = count
		}
		if count, err := h.showRepo.GetShowCount(sourceConfig.Name); err == nil {
			sourceInfo["shows_normalized"] = count
		}

		if runs, err := h.runRepo.GetRecentRuns(sourceConfig.Name, 1); err == nil && len(runs) > 0 {
			sourceInfo["last_run"] = runResponse(runs[0])
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
			"min_records":      sourceConfig.Settings.MinRecords,
			"max_pages":        sourceConfig.Settings.MaxPages,
			"page_size":        sourceConfig.Settings.PageSize,
		}

		if src, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && src != nil {
			sourceInfo["last_fetched_at"] = src.LastFetchedAt
			sourceInfo["next_fetch_at"] = src.NextFetchAt
			sourceInfo["updated_at"] = src.UpdatedAt
		}

		if count, err := h.rawShowRepo.GetShowCount(sourceConfig.Name); err == nil {
			sourceInfo["show_count"] = count
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIIngestSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncSourceConfigTask(name, sourceConfig, h.sourceRepo)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	ingestTask := tasks.NewIngestCatalogTask(name, sourceConfig, h.ingestService)
	if err := h.scheduler.EnqueueTask(ingestTask); err != nil {
		slog.Error("Error enqueueing ingest task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue ingest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and ingestion enqueued successfully",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   syncTask.ID,
				"type": syncTask.Type,
			},
			{
				"id":   ingestTask.ID,
				"type": ingestTask.Type,
			},
		},
	})
}

func (h *Handler) APIRefreshStats(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	refreshTask := tasks.NewRefreshStatsTask(name, h.ingestService)
	if err := h.scheduler.EnqueueTask(refreshTask); err != nil {
		slog.Error("Error enqueueing refresh task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stats refresh enqueued successfully",
		"source":  gin.H{"name": name},
		"task": gin.H{
			"id":   refreshTask.ID,
			"type": refreshTask.Type,
		},
	})
}

func showResponse(show database.Show) gin.H {
	return gin.H{
		"id":            show.ShowID,
		"source":        show.SourceName,
		"name":          show.Name,
		"type":          show.Kind,
		"language":      show.Language,
		"genres":        show.Genres,
		"status":        show.Status,
		"runtime":       show.Runtime,
		"premiere_date": show.PremiereDate,
		"rating":        show.Rating,
		"summary":       show.Summary,
		"updated_at":    show.UpdatedAt,
	}
}

func runResponse(run database.Run) gin.H {
	return gin.H{
		"id":                 run.ID,
		"source":             run.SourceName,
		"status":             run.Status,
		"started_at":         run.StartedAt,
		"finished_at":        run.FinishedAt,
		"pages_fetched":      run.PagesFetched,
		"records_seen":       run.RecordsSeen,
		"versions_written":   run.VersionsWritten,
		"unchanged_skipped":  run.UnchangedSkipped,
		"validation_rejects": run.ValidationRejects,
		"reconcile_errors":   run.ReconcileErrors,
		"error":              run.Error,
	}
}
