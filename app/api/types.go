package api

import (
	"time"

	"rssingest/app/database"
	"rssingest/app/feed"
	"rssingest/app/tasks"
)

type Handler struct {
	sourceCache *feed.SourceCache
	sourceRepo  database.SourceRepository
	entryRepo   database.EntryRepository
	runner      tasks.TaskRunnerInterface
}

// EntryResponse is the JSON shape of a stored entry.
type EntryResponse struct {
	Title           string            `json:"title"`
	URL             string            `json:"url"`
	URLs            []string          `json:"urls,omitempty"`
	Size            int64             `json:"size,omitempty"`
	Type            string            `json:"type,omitempty"`
	Filename        string            `json:"filename,omitempty"`
	GUID            string            `json:"guid,omitempty"`
	Author          string            `json:"author,omitempty"`
	Description     string            `json:"description,omitempty"`
	TorrentInfoHash string            `json:"torrent_info_hash,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
	PublishedAt     *time.Time        `json:"published_at,omitempty"`
	Content         string            `json:"content,omitempty"`
}
