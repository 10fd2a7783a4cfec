package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/database"
	"github.com/tvdeck/tvdeck/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.DatabaseConfig{
		DSN:      ":memory:",
		LogLevel: "silent",
	}
	db, err := database.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(db, nil)
	require.NoError(t, s.Open(context.Background()))
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	streams := []models.LiveStream{
		{ID: "1001", Name: "Channel One"},
		{ID: "1002", Name: "Channel Two"},
	}
	require.NoError(t, s.Put(ctx, models.StoreStreams, models.KeyAllStreams, streams))

	var got []models.LiveStream
	ok, err := s.GetValue(ctx, models.StoreStreams, models.KeyAllStreams, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, streams, got)

	entry, ok, err := s.Get(ctx, models.StoreStreams, models.KeyAllStreams)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Positive(t, entry.Timestamp)
}

func TestStore_GetMiss(t *testing.T) {
	s := setupTestStore(t)

	_, ok, err := s.Get(context.Background(), models.StoreCategories, "category_9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DiskHitPromotedToMemory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, models.StoreCategories, models.CategoryKey("7"), []string{"a"}))

	// Drop the memory tier; the next read must come from disk and then be
	// served from memory again.
	s.mu.Lock()
	s.mem = make(map[string]map[string]Entry)
	s.mu.Unlock()

	_, ok, err := s.Get(ctx, models.StoreCategories, models.CategoryKey("7"))
	require.NoError(t, err)
	require.True(t, ok)

	s.mu.RLock()
	_, inMemory := s.mem[models.StoreCategories][models.CategoryKey("7")]
	s.mu.RUnlock()
	assert.True(t, inMemory)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, models.StoreUserInfo, "info", "first"))
	require.NoError(t, s.Put(ctx, models.StoreUserInfo, "info", "second"))

	var got string
	ok, err := s.GetValue(ctx, models.StoreUserInfo, "info", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestStore_Delete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, models.StoreEPG, models.KeyEPGData, "guide"))
	require.NoError(t, s.Delete(ctx, models.StoreEPG, models.KeyEPGData))

	_, ok, err := s.Get(ctx, models.StoreEPG, models.KeyEPGData)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ClearAll(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, store := range models.AllStores {
		require.NoError(t, s.Put(ctx, store, "k", "v"))
	}

	require.NoError(t, s.ClearAll(ctx))

	for _, store := range models.AllStores {
		_, ok, err := s.Get(ctx, store, "k")
		require.NoError(t, err)
		assert.False(t, ok, "store %s should be empty", store)
	}
}

// A credential change wipes categories, streams, userInfo, and epg; favorites
// survive to apply to the next account.
func TestStore_ClearCredentialBound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, store := range models.AllStores {
		require.NoError(t, s.Put(ctx, store, "k", "v"))
	}

	require.NoError(t, s.ClearCredentialBound(ctx))

	for _, store := range models.CredentialBoundStores {
		_, ok, err := s.Get(ctx, store, "k")
		require.NoError(t, err)
		assert.False(t, ok, "store %s should be empty", store)
	}

	_, ok, err := s.Get(ctx, models.StoreFavorites, "k")
	require.NoError(t, err)
	assert.True(t, ok, "favorites must survive a credential change")
}

func TestStore_Unavailable(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()

	_, _, err := s.Get(ctx, models.StoreStreams, models.KeyAllStreams)
	assert.True(t, errors.Is(err, models.ErrStorageUnavailable))

	// Put still lands in the memory tier for the current session.
	err = s.Put(ctx, models.StoreStreams, models.KeyAllStreams, "v")
	assert.True(t, errors.Is(err, models.ErrStorageUnavailable))

	entry, ok, _ := s.Get(ctx, models.StoreStreams, models.KeyAllStreams)
	assert.True(t, ok)
	assert.Equal(t, `"v"`, string(entry.Value))
}
