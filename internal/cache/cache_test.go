package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"beleg/internal/model"
	"beleg/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("fresh entry decodes", func(t *testing.T) {
		repo := new(mocks.MockCacheRepository)
		store := NewStore(repo)
		store.now = func() time.Time { return now }

		expires := now.Add(time.Hour)
		repo.On("Get", ctx, "k").Return(&model.CacheEntry{
			Key: "k", Value: []byte(`{"n":42}`), ExpiresAt: &expires,
		}, nil)

		var out struct {
			N int `json:"n"`
		}
		err := store.Get(ctx, "k", &out)

		assert.NoError(t, err)
		assert.Equal(t, 42, out.N)
	})

	t.Run("expired entry is a miss and gets cleaned up", func(t *testing.T) {
		repo := new(mocks.MockCacheRepository)
		store := NewStore(repo)
		store.now = func() time.Time { return now }

		expires := now.Add(-time.Minute)
		repo.On("Get", ctx, "k").Return(&model.CacheEntry{
			Key: "k", Value: []byte(`{}`), ExpiresAt: &expires,
		}, nil)
		repo.On("Delete", ctx, "k").Return(nil)

		var out map[string]any
		err := store.Get(ctx, "k", &out)

		assert.ErrorIs(t, err, ErrMiss)
		repo.AssertCalled(t, "Delete", ctx, "k")
	})

	t.Run("absent key is a miss", func(t *testing.T) {
		repo := new(mocks.MockCacheRepository)
		store := NewStore(repo)

		repo.On("Get", ctx, "k").Return(nil, sql.ErrNoRows)

		var out map[string]any
		err := store.Get(ctx, "k", &out)

		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("no expiry never expires", func(t *testing.T) {
		repo := new(mocks.MockCacheRepository)
		store := NewStore(repo)
		store.now = func() time.Time { return now.Add(1000 * time.Hour) }

		repo.On("Get", ctx, "k").Return(&model.CacheEntry{Key: "k", Value: []byte(`1`)}, nil)

		var out int
		err := store.Get(ctx, "k", &out)

		assert.NoError(t, err)
		assert.Equal(t, 1, out)
	})
}

func TestStore_Set(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	repo := new(mocks.MockCacheRepository)
	store := NewStore(repo)
	store.now = func() time.Time { return now }

	repo.On("Set", ctx, mock.MatchedBy(func(e *model.CacheEntry) bool {
		return e.Key == "k" && string(e.Value) == `["a"]` &&
			e.ExpiresAt != nil && e.ExpiresAt.Equal(now.Add(12*time.Hour))
	})).Return(nil)

	err := store.Set(ctx, "k", []string{"a"}, 12*time.Hour)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
