package favorites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/database"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/store"
)

func setupTest(t *testing.T) (*Favorites, *store.Store, *store.Preferences) {
	t.Helper()

	cfg := config.DatabaseConfig{DSN: ":memory:", LogLevel: "silent"}
	db, err := database.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db, nil)
	require.NoError(t, st.Open(context.Background()))

	prefs := store.NewPreferences(db, nil)
	require.NoError(t, prefs.Load(context.Background()))

	return New(st, prefs, nil), st, prefs
}

func TestFavorites_AddRemoveToggle(t *testing.T) {
	f, _, _ := setupTest(t)
	ctx := context.Background()

	assert.False(t, f.IsFavorite(KindStreams, "1001"))

	f.Add(ctx, KindStreams, "1001")
	assert.True(t, f.IsFavorite(KindStreams, "1001"))
	assert.Equal(t, 1, f.Count(KindStreams))

	f.Remove(ctx, KindStreams, "1001")
	assert.False(t, f.IsFavorite(KindStreams, "1001"))

	assert.True(t, f.Toggle(ctx, KindStreams, "1001"))
	assert.False(t, f.Toggle(ctx, KindStreams, "1001"))
	assert.Equal(t, 0, f.Count(KindStreams))
}

func TestFavorites_Idempotence(t *testing.T) {
	f, _, _ := setupTest(t)
	ctx := context.Background()

	var broadcasts int
	f.SetListener(KindVOD, func(id string, nowMember bool) {
		broadcasts++
	})

	f.Add(ctx, KindVOD, "2002")
	f.Add(ctx, KindVOD, "2002") // present: no-op, no broadcast
	assert.Equal(t, 1, f.Count(KindVOD))
	assert.Equal(t, 1, broadcasts)

	f.Remove(ctx, KindVOD, "absent") // absent: no-op, no broadcast
	assert.Equal(t, 1, broadcasts)
}

func TestFavorites_KindsIndependent(t *testing.T) {
	f, _, _ := setupTest(t)
	ctx := context.Background()

	f.Add(ctx, KindStreams, "7")
	f.Add(ctx, KindCategories, "7")

	assert.True(t, f.IsFavorite(KindStreams, "7"))
	assert.True(t, f.IsFavorite(KindCategories, "7"))
	assert.False(t, f.IsFavorite(KindSeries, "7"))
	assert.False(t, f.IsFavorite(KindVOD, "7"))

	f.Remove(ctx, KindStreams, "7")
	assert.True(t, f.IsFavorite(KindCategories, "7"))
}

func TestFavorites_Broadcast(t *testing.T) {
	f, _, _ := setupTest(t)
	ctx := context.Background()

	type event struct {
		id        string
		nowMember bool
	}
	var events []event
	f.SetListener(KindSeries, func(id string, nowMember bool) {
		events = append(events, event{id, nowMember})
	})

	f.Add(ctx, KindSeries, "300")
	f.Remove(ctx, KindSeries, "300")
	f.Add(ctx, KindSeries, "301")
	f.Clear(ctx, KindSeries)

	require.Len(t, events, 4)
	assert.Equal(t, event{"300", true}, events[0])
	assert.Equal(t, event{"300", false}, events[1])
	assert.Equal(t, event{"301", true}, events[2])
	assert.Equal(t, event{"", false}, events[3], "clear broadcasts with empty id")
}

func TestFavorites_SingleListenerPerKind(t *testing.T) {
	f, _, _ := setupTest(t)
	ctx := context.Background()

	var first, second int
	f.SetListener(KindStreams, func(string, bool) { first++ })
	f.SetListener(KindStreams, func(string, bool) { second++ })

	f.Add(ctx, KindStreams, "1")
	assert.Equal(t, 0, first, "replaced listener must not fire")
	assert.Equal(t, 1, second)
}

func TestFavorites_LoadFromStore(t *testing.T) {
	f, st, prefs := setupTest(t)
	ctx := context.Background()

	f.Add(ctx, KindStreams, "1001")
	f.Add(ctx, KindStreams, "1002")

	reloaded := New(st, prefs, nil)
	reloaded.Load(ctx)

	assert.ElementsMatch(t, []string{"1001", "1002"}, reloaded.List(KindStreams))
}

func TestFavorites_LoadPreferencesFallback(t *testing.T) {
	_, _, prefs := setupTest(t)
	ctx := context.Background()

	// Nothing in the object store; only the preference array exists.
	prefs.Set(models.PrefFavoriteVOD, `["2001","2002"]`)

	f := New(nil, prefs, nil)
	f.Load(ctx)

	assert.ElementsMatch(t, []string{"2001", "2002"}, f.List(KindVOD))
}

func TestFilter(t *testing.T) {
	f, _, _ := setupTest(t)
	ctx := context.Background()

	f.Add(ctx, KindStreams, "2")

	streams := []models.LiveStream{
		{ID: "1", Name: "One"},
		{ID: "2", Name: "Two"},
		{ID: "3", Name: "Three"},
	}
	got := Filter(f, KindStreams, streams, func(s models.LiveStream) string { return s.ID })

	require.Len(t, got, 1)
	assert.Equal(t, "Two", got[0].Name)
}
