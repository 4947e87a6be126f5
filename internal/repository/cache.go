package repository

import (
	"context"

	"beleg/internal/model"
)

// CacheRepository persists TTL-bounded cache entries.
type CacheRepository interface {
	// Get returns the entry for key, expired or not; sql.ErrNoRows when absent.
	Get(ctx context.Context, key string) (*model.CacheEntry, error)

	// Set upserts the entry.
	Set(ctx context.Context, entry *model.CacheEntry) error

	// Delete removes the entry; absent keys are not an error.
	Delete(ctx context.Context, key string) error
}
