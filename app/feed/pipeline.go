package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"time"
)

// Options are the run-scoped cache bypass switches supplied by the caller.
// Config-change detection itself lives with the persistence layer.
type Options struct {
	NoCache       bool
	ConfigChanged bool
}

// Result is the outcome of one ingestion run. NothingNew distinguishes
// "empty and acceptable" (304 answer or watermark hit) from an empty run
// that simply produced no usable items.
type Result struct {
	Entries    []Entry
	Ignored    int
	NothingNew bool
}

// Pipeline orchestrates one source ingestion: conditional fetch, parse and
// fault classification, per-item resolution with the dedup horizon, and a
// single persistence pass for caching state and the watermark.
type Pipeline struct {
	fetcher     *Fetcher
	parser      *Parser
	cache       CacheStore
	receivedDir string
}

func NewPipeline(fetcher *Fetcher, parser *Parser, cache CacheStore, receivedDir string) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		parser:      parser,
		cache:       cache,
		receivedDir: receivedDir,
	}
}

func (p *Pipeline) Run(ctx context.Context, source *Source, opts Options) (*Result, error) {
	urlHash := hashURL(source.URL)

	// all_entries, --no-cache, or a changed source config all disable the
	// incremental machinery for this run.
	allEntries := source.AllEntries || opts.NoCache || opts.ConfigChanged

	var cacheState CacheState
	if !allEntries {
		cacheState = p.loadCacheState(urlHash)
	}

	fetched, err := p.fetcher.Run(ctx, source, cacheState, !allEntries)
	if err != nil {
		return nil, err
	}

	if fetched.NotModified {
		slog.Debug("Source has not changed since last run, not creating entries",
			"source", source.Name, "url", source.URL)
		return &Result{NothingNew: true}, nil
	}

	if len(fetched.Body) == 0 {
		slog.Error("No data received for feed", "source", source.Name)
		return &Result{}, nil
	}

	parsed, classification := p.parser.Run(fetched.Body, fetched.ContentType)
	if classification.IsFatal() {
		DumpInvalid(p.receivedDir, source.Name, fetched.Body)
		return nil, &FatalParseError{Source: source.Name, URL: source.URL, Msg: classification.Message}
	}
	if !classification.IsClean() {
		p.logFault(source, classification)
	}

	items := parsed.Items

	// The dedup scan assumes newest-first ordering; re-sort when the feed
	// arrives oldest-first.
	if !allEntries && len(items) > 1 {
		first, last := items[0].Published, items[len(items)-1].Published
		if first != nil && last != nil && first.Before(*last) {
			sort.SliceStable(items, func(i, j int) bool {
				return publishedOrZero(items[i]).After(publishedOrZero(items[j]))
			})
		}
	}

	resolver := NewResolver(source)

	var entries []Entry
	ignored := 0
	nothingNew := false

	for _, item := range items {
		if !allEntries && cacheState.LastEntryID != "" {
			if fingerprint, ok := resolver.Fingerprint(item); ok && fingerprint == cacheState.LastEntryID {
				// The feed is append-only at the head: the first match marks
				// the horizon of already-processed entries.
				slog.Debug("Not processing entries from last run", "source", source.Name)
				nothingNew = true
				break
			}
		}

		resolved, ok := resolver.Resolve(item)
		if !ok {
			ignored++
			continue
		}
		entries = append(entries, resolved...)
	}

	// Persist at most once per run, after resolution, so a crash mid-run
	// cannot record a watermark for items that were never produced.
	if len(items) > 0 {
		slog.Debug("Saving location in feed", "source", source.Name)
		if fingerprint, ok := resolver.Fingerprint(items[0]); ok {
			p.storeKey(source, urlHash+"_last_entry", fingerprint)
		}
		if !source.AllEntries {
			if fetched.ETag != "" {
				p.storeKey(source, urlHash+"_etag", fetched.ETag)
			}
			if fetched.LastModified != "" {
				p.storeKey(source, urlHash+"_modified", fetched.LastModified)
			}
		}
	}

	if ignored > 0 && !source.Silent {
		slog.Warn("Skipped entries without required information (title, link or enclosures)",
			"source", source.Name, "count", ignored)
	}

	return &Result{Entries: entries, Ignored: ignored, NothingNew: nothingNew}, nil
}

func (p *Pipeline) logFault(source *Source, classification Classification) {
	switch classification.Kind {
	case FaultEncodingNotice, FaultEncodingOverride:
		slog.Debug("Ignoring feed encoding notice", "source", source.Name,
			"kind", classification.Kind.String(), "detail", classification.Message)
	case FaultUnicodeError:
		slog.Info("Feed has invalid unicode but still produced entries, ignoring the error",
			"source", source.Name)
	case FaultRecoverableXML:
		if source.Silent {
			slog.Debug("Invalid XML received, however the parser still produced entries, ignoring the error",
				"source", source.Name, "detail", classification.Message)
		} else {
			slog.Info("Invalid XML received, however the parser still produced entries, ignoring the error",
				"source", source.Name, "detail", classification.Message)
		}
	}
}

func (p *Pipeline) loadCacheState(urlHash string) CacheState {
	return CacheState{
		ETag:         p.loadKey(urlHash + "_etag"),
		LastModified: p.loadKey(urlHash + "_modified"),
		LastEntryID:  p.loadKey(urlHash + "_last_entry"),
	}
}

func (p *Pipeline) loadKey(key string) string {
	value, ok, err := p.cache.Get(key)
	if err != nil {
		slog.Warn("Failed to read cache state", "key", key, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// storeKey is best-effort: losing cache state costs a re-fetch, not
// correctness.
func (p *Pipeline) storeKey(source *Source, key, value string) {
	if err := p.cache.Set(key, value); err != nil {
		slog.Error("Failed to persist cache state", "source", source.Name, "key", key, "error", err)
	}
}

func publishedOrZero(item RawItem) time.Time {
	if item.Published == nil {
		return time.Time{}
	}
	return *item.Published
}

// hashURL gives the stable per-source key prefix for persisted cache state.
func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}
