// Package catalog coordinates catalog loading across the cache tiers and
// the provider, with request epochs guarding the rendered view against
// out-of-order completions.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/store"
	"github.com/tvdeck/tvdeck/pkg/xtream"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Provider is the subset of the Xtream client the loader needs.
type Provider interface {
	GetLiveCategories(ctx context.Context) ([]xtream.Category, error)
	GetVODCategories(ctx context.Context) ([]xtream.Category, error)
	GetSeriesCategories(ctx context.Context) ([]xtream.Category, error)
	GetLiveStreams(ctx context.Context, opts *xtream.StreamsOptions) ([]xtream.Stream, error)
	GetVODStreams(ctx context.Context, opts *xtream.StreamsOptions) ([]xtream.VODStream, error)
	GetSeries(ctx context.Context, opts *xtream.StreamsOptions) ([]xtream.Series, error)
	GetSeriesInfo(ctx context.Context, seriesID string) (*xtream.SeriesInfo, error)
}

// Sink receives view updates. Result methods are only invoked when the
// originating request is still the newest for its epoch counter and the
// user's category selection has not moved on.
type Sink interface {
	ShowLoading(kind models.ContentKind)
	ShowCategories(kind models.ContentKind, categories []models.Category)
	ShowLiveStreams(categoryID string, streams []models.LiveStream)
	ShowMovies(categoryID string, movies []models.Movie)
	ShowSeries(categoryID string, series []models.Series)
	ShowEpisodes(seriesID string, seasons []models.Season)
}

// Loader orchestrates cache lookup, network fetch, and epoch-gated
// rendering for every catalog fetch.
type Loader struct {
	provider Provider
	store    *store.Store
	sink     Sink
	logger   *slog.Logger

	// One epoch per concern. Each user-visible fetch bumps its counter and
	// may only render if the counter has not moved by completion time.
	categoriesEpoch atomic.Uint64
	streamsEpoch    atomic.Uint64
	filterEpoch     atomic.Uint64

	mu       sync.Mutex
	selected map[models.ContentKind]string

	collMu   sync.Mutex
	collator *collate.Collator
}

// New creates a Loader.
func New(provider Provider, st *store.Store, sink Sink, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		provider: provider,
		store:    st,
		sink:     sink,
		logger:   logger.With("component", "catalog"),
		selected: make(map[models.ContentKind]string),
		collator: collate.New(language.Und, collate.IgnoreCase),
	}
}

// compare is the case-insensitive name ordering used for every catalog
// sort. The collator is not safe for concurrent use.
func (l *Loader) compare(a, b string) int {
	l.collMu.Lock()
	defer l.collMu.Unlock()
	return l.collator.CompareString(a, b)
}

// SelectCategory records the user's current category selection for a kind.
// In-flight stream loads for other categories abandon their render.
func (l *Loader) SelectCategory(kind models.ContentKind, categoryID string) {
	l.mu.Lock()
	l.selected[kind] = categoryID
	l.mu.Unlock()
}

// SelectedCategory returns the current selection for a kind.
func (l *Loader) SelectedCategory(kind models.ContentKind) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected[kind]
}

// BumpFilterEpoch invalidates in-flight filter/search renders and returns
// the new epoch.
func (l *Loader) BumpFilterEpoch() uint64 {
	return l.filterEpoch.Add(1)
}

// FilterEpochCurrent reports whether epoch is still the newest.
func (l *Loader) FilterEpochCurrent(epoch uint64) bool {
	return l.filterEpoch.Load() == epoch
}

func categoriesKey(kind models.ContentKind) string {
	return string(kind) + "_categories"
}

func streamsKey(kind models.ContentKind, categoryID string) string {
	if categoryID == "" {
		if kind == models.KindLive {
			return models.KeyAllStreams
		}
		return "all_" + string(kind)
	}
	if kind == models.KindLive {
		return models.CategoryKey(categoryID)
	}
	return string(kind) + "_" + models.CategoryKey(categoryID)
}

func seriesInfoKey(seriesID string) string {
	return "series_info_" + seriesID
}

// LoadCategories loads the category list for a kind.
func (l *Loader) LoadCategories(ctx context.Context, kind models.ContentKind, forceRefresh bool) error {
	myEpoch := l.categoriesEpoch.Add(1)
	l.sink.ShowLoading(kind)

	key := categoriesKey(kind)
	if !forceRefresh {
		var cached []models.Category
		if ok := l.readCache(ctx, models.StoreCategories, key, &cached); ok {
			l.renderCategories(kind, myEpoch, cached)
			return nil
		}
	}

	raw, err := l.fetchCategories(ctx, kind)
	if err != nil {
		return fmt.Errorf("loading %s categories: %w", kind, err)
	}

	categories := toCategories(raw, kind)
	l.sortCategories(categories)

	// The cache write is unconditional; only rendering is epoch-gated.
	l.writeCache(ctx, models.StoreCategories, key, categories)
	l.renderCategories(kind, myEpoch, categories)
	return nil
}

func (l *Loader) fetchCategories(ctx context.Context, kind models.ContentKind) ([]xtream.Category, error) {
	switch kind {
	case models.KindLive:
		return l.provider.GetLiveCategories(ctx)
	case models.KindVOD:
		return l.provider.GetVODCategories(ctx)
	case models.KindSeries:
		return l.provider.GetSeriesCategories(ctx)
	}
	return nil, fmt.Errorf("unknown catalog kind: %s", kind)
}

func (l *Loader) renderCategories(kind models.ContentKind, myEpoch uint64, categories []models.Category) {
	if l.categoriesEpoch.Load() != myEpoch {
		return
	}
	l.sink.ShowCategories(kind, categories)
}

// LoadLiveStreams loads the live channels of one category (or all channels
// when categoryID is empty).
func (l *Loader) LoadLiveStreams(ctx context.Context, categoryID string, forceRefresh bool) error {
	myEpoch := l.streamsEpoch.Add(1)
	l.sink.ShowLoading(models.KindLive)

	key := streamsKey(models.KindLive, categoryID)
	if !forceRefresh {
		var cached []models.LiveStream
		if ok := l.readCache(ctx, models.StoreStreams, key, &cached); ok {
			l.renderLive(myEpoch, categoryID, cached)
			return nil
		}
	}

	raw, err := l.provider.GetLiveStreams(ctx, streamsOptions(categoryID))
	if err != nil {
		return fmt.Errorf("loading live streams: %w", err)
	}

	streams := toLiveStreams(raw)
	l.sortLive(streams)
	l.writeCache(ctx, models.StoreStreams, key, streams)
	l.renderLive(myEpoch, categoryID, streams)
	return nil
}

func (l *Loader) renderLive(myEpoch uint64, categoryID string, streams []models.LiveStream) {
	if !l.renderable(models.KindLive, myEpoch, categoryID) {
		return
	}
	l.sink.ShowLiveStreams(categoryID, streams)
}

// LoadMovies loads the movie list of one category.
func (l *Loader) LoadMovies(ctx context.Context, categoryID string, forceRefresh bool) error {
	myEpoch := l.streamsEpoch.Add(1)
	l.sink.ShowLoading(models.KindVOD)

	key := streamsKey(models.KindVOD, categoryID)
	if !forceRefresh {
		var cached []models.Movie
		if ok := l.readCache(ctx, models.StoreStreams, key, &cached); ok {
			l.renderMovies(myEpoch, categoryID, cached)
			return nil
		}
	}

	raw, err := l.provider.GetVODStreams(ctx, streamsOptions(categoryID))
	if err != nil {
		return fmt.Errorf("loading movies: %w", err)
	}

	movies := toMovies(raw)
	l.sortMovies(movies)
	l.writeCache(ctx, models.StoreStreams, key, movies)
	l.renderMovies(myEpoch, categoryID, movies)
	return nil
}

func (l *Loader) renderMovies(myEpoch uint64, categoryID string, movies []models.Movie) {
	if !l.renderable(models.KindVOD, myEpoch, categoryID) {
		return
	}
	l.sink.ShowMovies(categoryID, movies)
}

// LoadSeries loads the series list of one category.
func (l *Loader) LoadSeries(ctx context.Context, categoryID string, forceRefresh bool) error {
	myEpoch := l.streamsEpoch.Add(1)
	l.sink.ShowLoading(models.KindSeries)

	key := streamsKey(models.KindSeries, categoryID)
	if !forceRefresh {
		var cached []models.Series
		if ok := l.readCache(ctx, models.StoreStreams, key, &cached); ok {
			l.renderSeries(myEpoch, categoryID, cached)
			return nil
		}
	}

	raw, err := l.provider.GetSeries(ctx, streamsOptions(categoryID))
	if err != nil {
		return fmt.Errorf("loading series: %w", err)
	}

	series := toSeriesList(raw)
	l.sortSeries(series)
	l.writeCache(ctx, models.StoreStreams, key, series)
	l.renderSeries(myEpoch, categoryID, series)
	return nil
}

func (l *Loader) renderSeries(myEpoch uint64, categoryID string, series []models.Series) {
	if !l.renderable(models.KindSeries, myEpoch, categoryID) {
		return
	}
	l.sink.ShowSeries(categoryID, series)
}

// LoadEpisodes loads a series' season/episode tree.
func (l *Loader) LoadEpisodes(ctx context.Context, seriesID string, forceRefresh bool) error {
	myEpoch := l.streamsEpoch.Add(1)

	key := seriesInfoKey(seriesID)
	if !forceRefresh {
		var cached []models.Season
		if ok := l.readCache(ctx, models.StoreStreams, key, &cached); ok {
			if l.streamsEpoch.Load() == myEpoch {
				l.sink.ShowEpisodes(seriesID, cached)
			}
			return nil
		}
	}

	info, err := l.provider.GetSeriesInfo(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("loading series %s: %w", seriesID, err)
	}

	seasons := toSeasons(info)
	l.writeCache(ctx, models.StoreStreams, key, seasons)
	if l.streamsEpoch.Load() == myEpoch {
		l.sink.ShowEpisodes(seriesID, seasons)
	}
	return nil
}

// BackfillStreamCount fetches a category's streams in the background to
// patch its stream count. The fetch and both cache writes are
// epoch-independent; only the category re-render is gated. Network errors
// are logged and dropped.
func (l *Loader) BackfillStreamCount(ctx context.Context, category models.Category) {
	if category.StreamCount != nil {
		return
	}
	myEpoch := l.categoriesEpoch.Load()

	count, ok := l.fetchAndCacheCount(ctx, category)
	if !ok {
		return
	}

	key := categoriesKey(category.Kind)
	var categories []models.Category
	if ok := l.readCache(ctx, models.StoreCategories, key, &categories); !ok {
		return
	}
	for i := range categories {
		if categories[i].ID == category.ID {
			categories[i].StreamCount = &count
			break
		}
	}
	// Counts do not change the ordering; the list is not re-sorted.
	l.writeCache(ctx, models.StoreCategories, key, categories)

	if l.categoriesEpoch.Load() == myEpoch {
		l.sink.ShowCategories(category.Kind, categories)
	}
}

func (l *Loader) fetchAndCacheCount(ctx context.Context, category models.Category) (int, bool) {
	key := streamsKey(category.Kind, category.ID)

	switch category.Kind {
	case models.KindLive:
		raw, err := l.provider.GetLiveStreams(ctx, streamsOptions(category.ID))
		if err != nil {
			l.logger.Warn("count backfill failed", "category", category.ID, "error", err)
			return 0, false
		}
		streams := toLiveStreams(raw)
		l.sortLive(streams)
		l.writeCache(ctx, models.StoreStreams, key, streams)
		return len(streams), true

	case models.KindVOD:
		raw, err := l.provider.GetVODStreams(ctx, streamsOptions(category.ID))
		if err != nil {
			l.logger.Warn("count backfill failed", "category", category.ID, "error", err)
			return 0, false
		}
		movies := toMovies(raw)
		l.sortMovies(movies)
		l.writeCache(ctx, models.StoreStreams, key, movies)
		return len(movies), true

	case models.KindSeries:
		raw, err := l.provider.GetSeries(ctx, streamsOptions(category.ID))
		if err != nil {
			l.logger.Warn("count backfill failed", "category", category.ID, "error", err)
			return 0, false
		}
		series := toSeriesList(raw)
		l.sortSeries(series)
		l.writeCache(ctx, models.StoreStreams, key, series)
		return len(series), true
	}
	return 0, false
}

// renderable gates a stream-list render: the epoch must be current and the
// user must still have the originating category selected.
func (l *Loader) renderable(kind models.ContentKind, myEpoch uint64, categoryID string) bool {
	if l.streamsEpoch.Load() != myEpoch {
		return false
	}
	l.mu.Lock()
	selected := l.selected[kind]
	l.mu.Unlock()
	return selected == categoryID
}

// readCache is a soft cache read: storage failures degrade to a miss.
func (l *Loader) readCache(ctx context.Context, storeName, key string, target any) bool {
	if l.store == nil {
		return false
	}
	ok, err := l.store.GetValue(ctx, storeName, key, target)
	if err != nil {
		l.logger.Debug("cache read failed", "store", storeName, "key", key, "error", err)
		return false
	}
	return ok
}

// writeCache is a soft cache write: failures log and move on.
func (l *Loader) writeCache(ctx context.Context, storeName, key string, value any) {
	if l.store == nil {
		return
	}
	if err := l.store.Put(ctx, storeName, key, value); err != nil {
		l.logger.Warn("cache write failed", "store", storeName, "key", key, "error", err)
	}
}

func (l *Loader) sortCategories(categories []models.Category) {
	sortSlice(categories, func(c models.Category) string { return c.DisplayName }, l.compare)
}

func (l *Loader) sortLive(streams []models.LiveStream) {
	sortSlice(streams, func(s models.LiveStream) string { return s.Name }, l.compare)
}

func (l *Loader) sortMovies(movies []models.Movie) {
	sortSlice(movies, func(m models.Movie) string { return m.Name }, l.compare)
}

func (l *Loader) sortSeries(series []models.Series) {
	sortSlice(series, func(s models.Series) string { return s.Name }, l.compare)
}

func streamsOptions(categoryID string) *xtream.StreamsOptions {
	if categoryID == "" {
		return nil
	}
	return &xtream.StreamsOptions{CategoryID: categoryID}
}
