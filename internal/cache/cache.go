// Package cache provides a TTL-bounded key/value store on top of the cache
// repository. Values are JSON; an expired entry reads as absent and is
// deleted lazily on the next Get.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"beleg/internal/model"
	"beleg/internal/repository"
)

// ErrMiss reports that the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Store struct {
	repo repository.CacheRepository
	now  func() time.Time
}

func NewStore(repo repository.CacheRepository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Get unmarshals the cached value for key into out. Expired entries return
// ErrMiss and are removed; a failed cleanup does not mask the miss.
func (s *Store) Get(ctx context.Context, key string, out any) error {
	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMiss
		}
		return err
	}
	if entry.Expired(s.now()) {
		_ = s.repo.Delete(ctx, key)
		return ErrMiss
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key with the given TTL. A zero TTL stores the entry
// without expiry.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	entry := &model.CacheEntry{Key: key, Value: b}
	if ttl > 0 {
		expires := s.now().Add(ttl)
		entry.ExpiresAt = &expires
	}
	return s.repo.Set(ctx, entry)
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
