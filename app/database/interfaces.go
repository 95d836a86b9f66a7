package database

type SourceRepository interface {
	GetSource(sourceName string) (*Source, error)
	GetSourceCount() (int, error)

	// UpsertSource registers a source and reports whether its URL or config
	// hash changed since the previous run.
	UpsertSource(sourceName, sourceURL, configHash string) (bool, error)
	UpdateFetchResult(sourceName string, fetchErr string) error
}

// CacheRepository is the per-source key/value store backing conditional
// fetch state (ETag, Last-Modified, last-entry watermark).
type CacheRepository interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

type EntryRepository interface {
	GetEntries(sourceName string, limit int) ([]Entry, error)
	GetEntryCount(sourceName string) (int, error)

	UpsertEntry(sourceName string, entry Entry) error

	GetEntriesForExtraction(sourceName string, limit int) ([]EntryForExtraction, error)
	UpdateExtractedContent(entryID int64, content string) error
	UpdateExtractionStatus(entryID int64, status string) error
}
