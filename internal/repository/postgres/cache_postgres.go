package postgres

import (
	"context"
	"database/sql"

	"beleg/internal/model"
	"beleg/internal/repository"
)

// CachePostgres is a PostgreSQL implementation of repository.CacheRepository.
type CachePostgres struct {
	db *sql.DB
}

// NewCachePostgres creates a new CachePostgres repository.
func NewCachePostgres(db *sql.DB) *CachePostgres {
	return &CachePostgres{db: db}
}

var _ repository.CacheRepository = (*CachePostgres)(nil)

// Get returns the raw entry for key, expired or not. Expiry policy lives in
// the cache service, not here.
func (r *CachePostgres) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	const q = `SELECT key, value, expires_at FROM cache WHERE key = $1`
	var (
		entry     model.CacheEntry
		expiresAt sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, q, key).Scan(&entry.Key, &entry.Value, &expiresAt); err != nil {
		return nil, err
	}
	entry.ExpiresAt = timeOrNil(expiresAt)
	return &entry, nil
}

// Set upserts the entry, replacing value and expiry on conflict.
func (r *CachePostgres) Set(ctx context.Context, entry *model.CacheEntry) error {
	const q = `
		INSERT INTO cache (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`
	_, err := r.db.ExecContext(ctx, q, entry.Key, entry.Value, nullTime(entry.ExpiresAt))
	return err
}

// Delete removes the entry. Deleting an absent key is a no-op.
func (r *CachePostgres) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache WHERE key = $1`, key)
	return err
}
