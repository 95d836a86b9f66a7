package database

import (
	"database/sql"
	"fmt"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo handles database operations for sources
type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// UpsertSource registers a source and reports whether its URL or config
// hash changed since the last run. A change disables the incremental cache
// for the next ingestion of that source.
func (r *SourceRepo) UpsertSource(sourceName, sourceURL, configHash string) (bool, error) {
	existing, err := r.GetSource(sourceName)
	if err != nil {
		return false, fmt.Errorf("failed to check existing source: %w", err)
	}

	if existing == nil {
		_, err = r.db.Exec(`
			INSERT INTO sources (name, url, config_hash)
			VALUES (?, ?, ?)
		`, sourceName, sourceURL, configHash)
		if err != nil {
			return false, fmt.Errorf("failed to insert source: %w", err)
		}
		return false, nil
	}

	changed := existing.URL != sourceURL || existing.ConfigHash != configHash

	_, err = r.db.Exec(`
		UPDATE sources
		SET url = ?, config_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, sourceURL, configHash, sourceName)
	if err != nil {
		return false, fmt.Errorf("failed to update source: %w", err)
	}

	return changed, nil
}

// UpdateFetchResult records the outcome of an ingestion run. An empty
// fetchErr marks the run successful.
func (r *SourceRepo) UpdateFetchResult(sourceName string, fetchErr string) error {
	var err error
	if fetchErr == "" {
		_, err = r.db.Exec(`
			UPDATE sources
			SET last_fetched_at = CURRENT_TIMESTAMP,
			    last_success_at = CURRENT_TIMESTAMP,
			    last_error = '',
			    updated_at = CURRENT_TIMESTAMP
			WHERE name = ?
		`, sourceName)
	} else {
		_, err = r.db.Exec(`
			UPDATE sources
			SET last_fetched_at = CURRENT_TIMESTAMP,
			    last_error = ?,
			    updated_at = CURRENT_TIMESTAMP
			WHERE name = ?
		`, fetchErr, sourceName)
	}

	if err != nil {
		return fmt.Errorf("failed to update fetch result: %w", err)
	}
	return nil
}

func (r *SourceRepo) GetSource(sourceName string) (*Source, error) {
	var source Source
	var lastFetched, lastSuccess sql.NullTime

	err := r.db.QueryRow(`
		SELECT name, url, config_hash, last_fetched_at, last_success_at,
		       COALESCE(last_error, ''), created_at, updated_at
		FROM sources
		WHERE name = ?
	`, sourceName).Scan(
		&source.Name, &source.URL, &source.ConfigHash,
		&lastFetched, &lastSuccess, &source.LastError,
		&source.CreatedAt, &source.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	if lastFetched.Valid {
		source.LastFetchedAt = &lastFetched.Time
	}
	if lastSuccess.Valid {
		source.LastSuccessAt = &lastSuccess.Time
	}

	return &source, nil
}

func (r *SourceRepo) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sources`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
