package database

import (
	"time"
)

// Source represents a source record in the database
type Source struct {
	Name          string
	URL           string
	ConfigHash    string
	LastFetchedAt *time.Time
	LastSuccessAt *time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Entry represents a stored ingestion output item
type Entry struct {
	ID              int64
	SourceName      string
	Title           string
	URL             string
	URLs            []string
	Size            int64
	Type            string
	Filename        string
	GUID            string
	Author          string
	Description     string
	TorrentInfoHash string
	Fields          map[string]string
	PublishedAt     *time.Time
	Content         string
	CreatedAt       time.Time
}

// Extraction status values for entries
const (
	ExtractionPending = "pending"
	ExtractionDone    = "done"
	ExtractionFailed  = "failed"
)

// EntryForExtraction is the slice of an entry the content extraction task
// needs.
type EntryForExtraction struct {
	ID  int64
	URL string
}
