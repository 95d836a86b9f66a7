package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rssingest/app/cfg"
	"rssingest/app/database"
	"rssingest/app/feed"
	"rssingest/app/tasks"
)

const defaultEntryLimit = 50

func NewHandler(sourceCache *feed.SourceCache, sourceRepo database.SourceRepository,
	entryRepo database.EntryRepository, runner tasks.TaskRunnerInterface) *Handler {
	return &Handler{
		sourceCache: sourceCache,
		sourceRepo:  sourceRepo,
		entryRepo:   entryRepo,
		runner:      runner,
	}
}

func (h *Handler) GetEntries(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if _, err := h.sourceCache.GetSource(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	limit := defaultEntryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.entryRepo.GetEntries(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_entries", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	response := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, EntryResponse{
			Title:           entry.Title,
			URL:             entry.URL,
			URLs:            entry.URLs,
			Size:            entry.Size,
			Type:            entry.Type,
			Filename:        entry.Filename,
			GUID:            entry.GUID,
			Author:          entry.Author,
			Description:     entry.Description,
			TorrentInfoHash: entry.TorrentInfoHash,
			Fields:          entry.Fields,
			PublishedAt:     entry.PublishedAt,
			Content:         entry.Content,
		})
	}

	c.Header("X-Source-Name", name)
	c.JSON(http.StatusOK, gin.H{"source": name, "entries": response})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.Get().Version,
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.sourceCache.GetSourceCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	sources := h.sourceCache.GetSources()

	stats := make([]map[string]interface{}, 0, len(sources))
	for _, source := range sources {
		info := map[string]interface{}{
			"name":        source.Name,
			"url":         source.URL,
			"all_entries": source.AllEntries,
		}

		if stored, err := h.sourceRepo.GetSource(source.Name); err == nil && stored != nil {
			info["last_fetched_at"] = stored.LastFetchedAt
			info["last_success_at"] = stored.LastSuccessAt
			if stored.LastError != "" {
				info["last_error"] = stored.LastError
			}
		}

		if count, err := h.entryRepo.GetEntryCount(source.Name); err == nil {
			info["entry_count"] = count
		}

		stats = append(stats, info)
	}

	c.JSON(http.StatusOK, gin.H{"sources": stats})
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources := h.sourceCache.GetSources()

	list := make([]map[string]interface{}, 0, len(sources))
	for _, source := range sources {
		info := map[string]interface{}{
			"name":            source.Name,
			"url":             source.URL,
			"title_field":     source.GetTitleField(),
			"silent":          source.Silent,
			"ascii":           source.ASCII,
			"group_links":     source.GroupLinks,
			"all_entries":     source.AllEntries,
			"extract_content": source.ExtractContent,
			"timeout":         source.GetTimeout().String(),
		}
		if source.HasAuth() {
			info["auth"] = source.Username
		}
		list = append(list, info)
	}

	c.JSON(http.StatusOK, gin.H{"sources": list})
}

func (h *Handler) APIIngestSource(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.sourceCache.GetSource(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}

	if err := h.runner.EnqueueIngest(name); err != nil {
		slog.Error("Failed to enqueue ingestion", "source", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"source": name, "status": "queued"})
}
