package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"rssingest/app/database"
	"rssingest/app/feed"
)

type IngestSourceTask struct {
	Task
	Source     *feed.Source
	Opts       feed.Options
	pipeline   *feed.Pipeline
	sourceRepo database.SourceRepository
	entryRepo  database.EntryRepository
}

func NewIngestSourceTask(source *feed.Source, opts feed.Options, pipeline *feed.Pipeline,
	sourceRepo database.SourceRepository, entryRepo database.EntryRepository) *IngestSourceTask {
	return &IngestSourceTask{
		Task:       NewTask(TaskTypeIngestSource, source.Name),
		Source:     source,
		Opts:       opts,
		pipeline:   pipeline,
		sourceRepo: sourceRepo,
		entryRepo:  entryRepo,
	}
}

func (t *IngestSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.pipeline.Run(ctx, t.Source, t.Opts)
	if err != nil {
		if storeErr := t.sourceRepo.UpdateFetchResult(t.Source.Name, err.Error()); storeErr != nil {
			slog.Error("Failed to record fetch failure", "source", t.Source.Name, "error", storeErr)
		}
		return fmt.Errorf("failed to ingest source: %w", err)
	}

	for _, entry := range result.Entries {
		if err := t.entryRepo.UpsertEntry(t.Source.Name, toStoredEntry(entry)); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}
	}

	if err := t.sourceRepo.UpdateFetchResult(t.Source.Name, ""); err != nil {
		return fmt.Errorf("failed to record fetch result: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestSource",
		"source", t.Source.Name,
		"duration", t.GetDuration(),
		"entries", len(result.Entries),
		"ignored", result.Ignored,
		"nothing_new", result.NothingNew)

	return nil
}

func toStoredEntry(entry feed.Entry) database.Entry {
	return database.Entry{
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
	}
}
