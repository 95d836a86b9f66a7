package database

import (
	"database/sql"
	"fmt"
)

var _ CacheRepository = (*CacheRepo)(nil)

// CacheRepo persists per-source conditional-fetch state as plain key/value
// rows.
type CacheRepo struct {
	db *DB
}

func NewCacheRepository(db *DB) *CacheRepo {
	return &CacheRepo{db: db}
}

func (r *CacheRepo) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM ingest_cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache value: %w", err)
	}
	return value, true, nil
}

func (r *CacheRepo) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO ingest_cache (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set cache value: %w", err)
	}
	return nil
}
