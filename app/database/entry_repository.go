package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ EntryRepository = (*EntryRepo)(nil)

// EntryRepo handles database operations for ingested entries
type EntryRepo struct {
	db *DB
}

func NewEntryRepository(db *DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// UpsertEntry stores an ingested entry. Keyed by (source, title, url) so a
// re-run with all_entries enabled updates rather than duplicates.
func (r *EntryRepo) UpsertEntry(sourceName string, entry Entry) error {
	urls, err := json.Marshal(entry.URLs)
	if err != nil {
		return fmt.Errorf("failed to encode urls: %w", err)
	}
	fields, err := json.Marshal(entry.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	extractionStatus := ""
	if entry.Content == "" {
		// Content extraction, when enabled for the source, picks entries up
		// by this marker
		extractionStatus = ExtractionPending
	}

	_, err = r.db.Exec(`
		INSERT INTO entries (
			source_name, title, url, urls, size, type, filename,
			guid, author, description, torrent_info_hash, fields,
			published_at, content, extraction_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_name, title, url) DO UPDATE SET
			urls = excluded.urls,
			size = excluded.size,
			type = excluded.type,
			filename = excluded.filename,
			guid = excluded.guid,
			author = excluded.author,
			description = excluded.description,
			torrent_info_hash = excluded.torrent_info_hash,
			fields = excluded.fields,
			published_at = excluded.published_at
	`, sourceName, entry.Title, entry.URL, string(urls), entry.Size, entry.Type,
		entry.Filename, entry.GUID, entry.Author, entry.Description,
		entry.TorrentInfoHash, string(fields), entry.PublishedAt, entry.Content,
		extractionStatus)

	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

func (r *EntryRepo) GetEntries(sourceName string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, source_name, title, url, urls, size, type, filename,
		       guid, author, description, torrent_info_hash, fields,
		       published_at, content, created_at
		FROM entries
		WHERE source_name = ?
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT ?
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}

	return entries, nil
}

func (r *EntryRepo) GetEntryCount(sourceName string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE source_name = ?`, sourceName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get entry count: %w", err)
	}
	return count, nil
}

func (r *EntryRepo) GetEntriesForExtraction(sourceName string, limit int) ([]EntryForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, url
		FROM entries
		WHERE source_name = ? AND extraction_status = ?
		ORDER BY id
		LIMIT ?
	`, sourceName, ExtractionPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for extraction: %w", err)
	}
	defer rows.Close()

	var entries []EntryForExtraction
	for rows.Next() {
		var entry EntryForExtraction
		if err := rows.Scan(&entry.ID, &entry.URL); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}

	return entries, nil
}

func (r *EntryRepo) UpdateExtractedContent(entryID int64, content string) error {
	_, err := r.db.Exec(`
		UPDATE entries
		SET content = ?, extraction_status = ?, extracted_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, content, ExtractionDone, entryID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}
	return nil
}

func (r *EntryRepo) UpdateExtractionStatus(entryID int64, status string) error {
	_, err := r.db.Exec(`
		UPDATE entries
		SET extraction_status = ?, extracted_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, entryID)
	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var urls, fields string
	var publishedAt sql.NullTime

	err := rows.Scan(
		&entry.ID, &entry.SourceName, &entry.Title, &entry.URL, &urls,
		&entry.Size, &entry.Type, &entry.Filename, &entry.GUID, &entry.Author,
		&entry.Description, &entry.TorrentInfoHash, &fields,
		&publishedAt, &entry.Content, &entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to scan entry row: %w", err)
	}

	if publishedAt.Valid {
		entry.PublishedAt = &publishedAt.Time
	}
	if err := json.Unmarshal([]byte(urls), &entry.URLs); err != nil {
		return Entry{}, fmt.Errorf("failed to decode urls: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &entry.Fields); err != nil {
		return Entry{}, fmt.Errorf("failed to decode fields: %w", err)
	}

	return entry, nil
}
