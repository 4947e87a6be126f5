package model

import "time"

// CacheEntry is a TTL-bounded memoized payload used to avoid redundant
// external calls and reprocessing of already-handled items.
type CacheEntry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
