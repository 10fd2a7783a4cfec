// Package favorites maintains the four favorite-id sets (live streams,
// series, movies, categories) with persistence and change broadcasts.
package favorites

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/store"
)

// Kind identifies one of the four favorite sets.
type Kind string

const (
	KindStreams    Kind = "streams"
	KindSeries     Kind = "series"
	KindVOD        Kind = "vod"
	KindCategories Kind = "categories"
)

// Kinds lists every favorite set.
var Kinds = []Kind{KindStreams, KindSeries, KindVOD, KindCategories}

// prefKey maps a kind to its preferences fallback key.
func (k Kind) prefKey() string {
	switch k {
	case KindStreams:
		return models.PrefFavoriteStreams
	case KindSeries:
		return models.PrefFavoriteSeries
	case KindVOD:
		return models.PrefFavoriteVOD
	case KindCategories:
		return models.PrefFavoriteCategories
	}
	return ""
}

// storeKey is the record key inside the favorites object store.
func (k Kind) storeKey() string {
	return "favorite_" + string(k)
}

// Listener receives membership changes for one kind. A cleared set is
// signalled with an empty id.
type Listener func(id string, nowMember bool)

// Favorites holds the four sets. All ids are strings at every boundary;
// callers with numeric ids convert before calling.
type Favorites struct {
	store  *store.Store
	prefs  *store.Preferences
	logger *slog.Logger

	mu        sync.RWMutex
	sets      map[Kind]map[string]struct{}
	listeners map[Kind]Listener
}

// New creates an empty Favorites service.
func New(st *store.Store, prefs *store.Preferences, logger *slog.Logger) *Favorites {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Favorites{
		store:     st,
		prefs:     prefs,
		logger:    logger.With("component", "favorites"),
		sets:      make(map[Kind]map[string]struct{}),
		listeners: make(map[Kind]Listener),
	}
	for _, k := range Kinds {
		f.sets[k] = make(map[string]struct{})
	}
	return f
}

// Load populates the sets from the favorites object store, falling back to
// the preference arrays for any kind the store has no record for.
func (f *Favorites) Load(ctx context.Context) {
	for _, kind := range Kinds {
		ids := f.loadKind(ctx, kind)

		f.mu.Lock()
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id != "" {
				set[id] = struct{}{}
			}
		}
		f.sets[kind] = set
		f.mu.Unlock()
	}
}

func (f *Favorites) loadKind(ctx context.Context, kind Kind) []string {
	var ids []string
	if f.store != nil {
		ok, err := f.store.GetValue(ctx, models.StoreFavorites, kind.storeKey(), &ids)
		if err != nil {
			f.logger.Debug("favorites store read failed, trying preferences",
				"kind", string(kind), "error", err)
		} else if ok {
			return ids
		}
	}

	if f.prefs == nil {
		return nil
	}
	raw, ok := f.prefs.Get(kind.prefKey())
	if !ok || raw == "" {
		return nil
	}
	if err := unmarshalIDs(raw, &ids); err != nil {
		f.logger.Warn("favorites preference unreadable", "kind", string(kind), "error", err)
		return nil
	}
	return ids
}

// SetListener registers the single change listener for a kind, replacing
// any previous one.
func (f *Favorites) SetListener(kind Kind, l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[kind] = l
}

// IsFavorite reports membership.
func (f *Favorites) IsFavorite(kind Kind, id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.sets[kind][id]
	return ok
}

// Count returns the set size.
func (f *Favorites) Count(kind Kind) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sets[kind])
}

// List returns the member ids, sorted for stable output.
func (f *Favorites) List(kind Kind) []string {
	f.mu.RLock()
	ids := make([]string, 0, len(f.sets[kind]))
	for id := range f.sets[kind] {
		ids = append(ids, id)
	}
	f.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Filter returns the subset of entities whose id is a favorite, preserving
// input order.
func Filter[T any](f *Favorites, kind Kind, entities []T, id func(T) string) []T {
	var out []T
	for _, e := range entities {
		if f.IsFavorite(kind, id(e)) {
			out = append(out, e)
		}
	}
	return out
}

// Add inserts id into the set. Adding a present id is a no-op with no
// broadcast.
func (f *Favorites) Add(ctx context.Context, kind Kind, id string) {
	if id == "" {
		return
	}
	f.mu.Lock()
	if _, exists := f.sets[kind][id]; exists {
		f.mu.Unlock()
		return
	}
	f.sets[kind][id] = struct{}{}
	f.mu.Unlock()

	f.persist(ctx, kind)
	f.broadcast(kind, id, true)
}

// Remove deletes id from the set. Removing an absent id is a no-op with no
// broadcast.
func (f *Favorites) Remove(ctx context.Context, kind Kind, id string) {
	f.mu.Lock()
	if _, exists := f.sets[kind][id]; !exists {
		f.mu.Unlock()
		return
	}
	delete(f.sets[kind], id)
	f.mu.Unlock()

	f.persist(ctx, kind)
	f.broadcast(kind, id, false)
}

// Toggle inverts membership and returns the new state.
func (f *Favorites) Toggle(ctx context.Context, kind Kind, id string) bool {
	if f.IsFavorite(kind, id) {
		f.Remove(ctx, kind, id)
		return false
	}
	f.Add(ctx, kind, id)
	return true
}

// Clear empties one set and broadcasts with an empty id.
func (f *Favorites) Clear(ctx context.Context, kind Kind) {
	f.mu.Lock()
	f.sets[kind] = make(map[string]struct{})
	f.mu.Unlock()

	f.persist(ctx, kind)
	f.broadcast(kind, "", false)
}

// persist writes the set to the object store and the preferences fallback.
// Storage failures are soft; the in-memory set is authoritative for the
// session.
func (f *Favorites) persist(ctx context.Context, kind Kind) {
	ids := f.List(kind)

	if f.store != nil {
		if err := f.store.Put(ctx, models.StoreFavorites, kind.storeKey(), ids); err != nil {
			f.logger.Warn("persisting favorites to store", "kind", string(kind), "error", err)
		}
	}
	if f.prefs != nil {
		if data, err := marshalIDs(ids); err == nil {
			f.prefs.Set(kind.prefKey(), data)
		}
	}
}

func (f *Favorites) broadcast(kind Kind, id string, nowMember bool) {
	f.mu.RLock()
	l := f.listeners[kind]
	f.mu.RUnlock()
	if l != nil {
		l(id, nowMember)
	}
}
