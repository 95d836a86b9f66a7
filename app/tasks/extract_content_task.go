package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"rssingest/app/database"
	"rssingest/app/feed"
)

// Number of pending entries picked up per task execution
const extractionBatchSize = 10

type ExtractContentTask struct {
	Task
	Source     *feed.Source
	httpClient *http.Client
	extractor  *feed.ContentExtractor
	entryRepo  database.EntryRepository
	userAgent  string
}

func NewExtractContentTask(source *feed.Source, httpClient *http.Client,
	extractor *feed.ContentExtractor, entryRepo database.EntryRepository, userAgent string) *ExtractContentTask {
	return &ExtractContentTask{
		Task:       NewTask(TaskTypeExtractContent, source.Name),
		Source:     source,
		httpClient: httpClient,
		extractor:  extractor,
		entryRepo:  entryRepo,
		userAgent:  userAgent,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := t.entryRepo.GetEntriesForExtraction(t.Source.Name, extractionBatchSize)
	if err != nil {
		return fmt.Errorf("failed to get entries for extraction: %w", err)
	}

	extracted := 0
	failed := 0

	for _, entry := range entries {
		content, err := t.extract(ctx, entry.URL)
		if err != nil {
			slog.Debug("Content extraction failed", "source", t.Source.Name,
				"url", entry.URL, "error", err)
			if err := t.entryRepo.UpdateExtractionStatus(entry.ID, database.ExtractionFailed); err != nil {
				return fmt.Errorf("failed to mark extraction failed: %w", err)
			}
			failed++
			continue
		}

		if err := t.entryRepo.UpdateExtractedContent(entry.ID, content); err != nil {
			return fmt.Errorf("failed to store extracted content: %w", err)
		}
		extracted++
	}

	if extracted > 0 || failed > 0 {
		slog.Info("Task completed",
			"type", "ExtractContent",
			"source", t.Source.Name,
			"duration", t.GetDuration(),
			"extracted", extracted,
			"failed", failed)
	}

	return nil
}

func (t *ExtractContentTask) extract(ctx context.Context, url string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)
	if t.Source.HasAuth() {
		req.SetBasicAuth(t.Source.Username, t.Source.Password)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return t.extractor.Run(data)
}
