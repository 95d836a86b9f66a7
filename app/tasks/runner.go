package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"

	"rssingest/app/cfg"
	"rssingest/app/database"
	"rssingest/app/feed"
)

var _ TaskRunnerInterface = (*Runner)(nil)

// Runner executes ingestion tasks on a bounded worker pool. Every source
// is ingested once at startup; further runs happen on demand through
// EnqueueIngest. Poll scheduling is out of scope for this service.
type Runner struct {
	sourceCache *feed.SourceCache
	sourceRepo  database.SourceRepository
	entryRepo   database.EntryRepository
	pipeline    *feed.Pipeline
	httpClient  *http.Client
	extractor   *feed.ContentExtractor
	userAgent   string
	noCache     bool
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewRunner(sourceCache *feed.SourceCache, sourceRepo database.SourceRepository,
	entryRepo database.EntryRepository, pipeline *feed.Pipeline, httpClient *http.Client) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Runner{
		sourceCache: sourceCache,
		sourceRepo:  sourceRepo,
		entryRepo:   entryRepo,
		pipeline:    pipeline,
		httpClient:  httpClient,
		extractor:   feed.NewContentExtractor(),
		userAgent:   c.UserAgent,
		noCache:     c.NoCache,
		workerCount: c.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (r *Runner) Start() {
	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.enqueueStartupTasks()
	}()
}

func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	close(r.taskQueue)
}

// EnqueueIngest queues an on-demand ingestion of a single source.
func (r *Runner) EnqueueIngest(sourceName string) error {
	source, err := r.sourceCache.GetSource(sourceName)
	if err != nil {
		return err
	}
	return r.enqueueSource(source)
}

func (r *Runner) enqueueStartupTasks() {
	sources := r.sourceCache.GetSources()
	if len(sources) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Queueing source ingestion", "count", len(sources))

	for _, source := range sources {
		if err := r.enqueueSource(source); err != nil {
			slog.Warn("Failed to enqueue ingestion", "source", source.Name, "error", err)
		}
	}
}

func (r *Runner) enqueueSource(source *feed.Source) error {
	// Registration doubles as config-change detection: a changed URL or
	// config hash bypasses the incremental cache for this run.
	changed, err := r.sourceRepo.UpsertSource(source.Name, source.URL, hashSourceConfig(source))
	if err != nil {
		return fmt.Errorf("failed to register source: %w", err)
	}
	if changed {
		slog.Info("Source configuration changed since last run, ignoring cached state",
			"source", source.Name)
	}

	opts := feed.Options{NoCache: r.noCache, ConfigChanged: changed}
	return r.enqueueTask(NewIngestSourceTask(source, opts, r.pipeline, r.sourceRepo, r.entryRepo))
}

func (r *Runner) enqueueTask(task TaskInterface) error {
	select {
	case r.taskQueue <- task:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case task, ok := <-r.taskQueue:
			if !ok {
				return
			}

			task.Start()
			slog.Debug("Executing task", "worker", id, "type", task.GetType(),
				"source", task.GetSourceName(), "id", task.GetID())

			if err := task.Execute(r.ctx); err != nil {
				slog.Error("Task failed", "worker", id, "type", task.GetType(),
					"source", task.GetSourceName(), "duration", task.GetDuration(), "error", err)
				continue
			}

			// A successful ingest feeds the extraction queue for sources
			// that want readable article content
			if ingest, ok := task.(*IngestSourceTask); ok && ingest.Source.ExtractContent {
				extract := NewExtractContentTask(ingest.Source, r.httpClient, r.extractor,
					r.entryRepo, r.userAgent)
				if err := r.enqueueTask(extract); err != nil {
					slog.Warn("Failed to enqueue content extraction",
						"source", ingest.Source.Name, "error", err)
				}
			}
		}
	}
}

// hashSourceConfig fingerprints the full source configuration so any
// edit, not just a URL change, is treated as a config change.
func hashSourceConfig(source *feed.Source) string {
	data, err := yaml.Marshal(source)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
