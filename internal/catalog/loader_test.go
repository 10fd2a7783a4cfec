package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/database"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/store"
	"github.com/tvdeck/tvdeck/pkg/xtream"
)

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

// fakeProvider serves canned responses, optionally blocking per category to
// control completion order in race tests.
type fakeProvider struct {
	mu         sync.Mutex
	categories map[models.ContentKind][]xtream.Category
	live       map[string][]xtream.Stream
	vod        map[string][]xtream.VODStream
	series     map[string][]xtream.Series
	seriesInfo map[string]*xtream.SeriesInfo
	gates      map[string]chan struct{}
	err        error

	liveCalls []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		categories: make(map[models.ContentKind][]xtream.Category),
		live:       make(map[string][]xtream.Stream),
		vod:        make(map[string][]xtream.VODStream),
		series:     make(map[string][]xtream.Series),
		seriesInfo: make(map[string]*xtream.SeriesInfo),
		gates:      make(map[string]chan struct{}),
	}
}

func (f *fakeProvider) gate(categoryID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[categoryID] = ch
	return ch
}

func (f *fakeProvider) waitGate(categoryID string) {
	f.mu.Lock()
	ch := f.gates[categoryID]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeProvider) GetLiveCategories(ctx context.Context) ([]xtream.Category, error) {
	return f.categories[models.KindLive], f.err
}

func (f *fakeProvider) GetVODCategories(ctx context.Context) ([]xtream.Category, error) {
	return f.categories[models.KindVOD], f.err
}

func (f *fakeProvider) GetSeriesCategories(ctx context.Context) ([]xtream.Category, error) {
	return f.categories[models.KindSeries], f.err
}

func (f *fakeProvider) GetLiveStreams(ctx context.Context, opts *xtream.StreamsOptions) ([]xtream.Stream, error) {
	categoryID := ""
	if opts != nil {
		categoryID = opts.CategoryID
	}
	f.mu.Lock()
	f.liveCalls = append(f.liveCalls, categoryID)
	f.mu.Unlock()
	f.waitGate(categoryID)
	return f.live[categoryID], f.err
}

func (f *fakeProvider) GetVODStreams(ctx context.Context, opts *xtream.StreamsOptions) ([]xtream.VODStream, error) {
	categoryID := ""
	if opts != nil {
		categoryID = opts.CategoryID
	}
	return f.vod[categoryID], f.err
}

func (f *fakeProvider) GetSeries(ctx context.Context, opts *xtream.StreamsOptions) ([]xtream.Series, error) {
	categoryID := ""
	if opts != nil {
		categoryID = opts.CategoryID
	}
	return f.series[categoryID], f.err
}

func (f *fakeProvider) GetSeriesInfo(ctx context.Context, seriesID string) (*xtream.SeriesInfo, error) {
	return f.seriesInfo[seriesID], f.err
}

// recordingSink records every render it receives.
type recordingSink struct {
	mu         sync.Mutex
	loading    []models.ContentKind
	categories map[models.ContentKind][][]models.Category
	liveShows  [][]models.LiveStream
	liveCats   []string
	movieShows [][]models.Movie
	seriesSh   [][]models.Series
	episodes   map[string][]models.Season
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		categories: make(map[models.ContentKind][][]models.Category),
		episodes:   make(map[string][]models.Season),
	}
}

func (r *recordingSink) ShowLoading(kind models.ContentKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, kind)
}

func (r *recordingSink) ShowCategories(kind models.ContentKind, categories []models.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[kind] = append(r.categories[kind], categories)
}

func (r *recordingSink) ShowLiveStreams(categoryID string, streams []models.LiveStream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveShows = append(r.liveShows, streams)
	r.liveCats = append(r.liveCats, categoryID)
}

func (r *recordingSink) ShowMovies(categoryID string, movies []models.Movie) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movieShows = append(r.movieShows, movies)
}

func (r *recordingSink) ShowSeries(categoryID string, series []models.Series) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seriesSh = append(r.seriesSh, series)
}

func (r *recordingSink) ShowEpisodes(seriesID string, seasons []models.Season) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes[seriesID] = seasons
}

func setupLoader(t *testing.T) (*Loader, *fakeProvider, *recordingSink, *store.Store) {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{DSN: ":memory:", LogLevel: "silent"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db, nil)
	require.NoError(t, st.Open(context.Background()))

	provider := newFakeProvider()
	sink := newRecordingSink()
	return New(provider, st, sink, nil), provider, sink, st
}

func TestLoader_LoadCategories_SortedAndCached(t *testing.T) {
	loader, provider, sink, st := setupLoader(t)
	ctx := context.Background()

	provider.categories[models.KindLive] = []xtream.Category{
		{CategoryID: "2", CategoryName: "zebra"},
		{CategoryID: "1", CategoryName: "Alpha"},
		{CategoryID: "3", CategoryName: "beta"},
	}

	require.NoError(t, loader.LoadCategories(ctx, models.KindLive, false))

	renders := sink.categories[models.KindLive]
	require.Len(t, renders, 1)
	got := renders[0]
	require.Len(t, got, 3)
	assert.Equal(t, "Alpha", got[0].DisplayName)
	assert.Equal(t, "beta", got[1].DisplayName)
	assert.Equal(t, "zebra", got[2].DisplayName)

	var cached []models.Category
	ok, err := st.GetValue(ctx, models.StoreCategories, "live_categories", &cached)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cached, 3)
}

func TestLoader_LoadCategories_CacheHitSkipsNetwork(t *testing.T) {
	loader, _, sink, st := setupLoader(t)
	ctx := context.Background()

	cached := []models.Category{{ID: "1", DisplayName: "Cached", Kind: models.KindVOD}}
	require.NoError(t, st.Put(ctx, models.StoreCategories, "vod_categories", cached))

	// Provider would return nothing; a network fetch would render empty.
	require.NoError(t, loader.LoadCategories(ctx, models.KindVOD, false))

	renders := sink.categories[models.KindVOD]
	require.Len(t, renders, 1)
	assert.Equal(t, "Cached", renders[0][0].DisplayName)
}

func TestLoader_LoadCategories_ForceRefreshBypassesCache(t *testing.T) {
	loader, provider, sink, st := setupLoader(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, models.StoreCategories, "live_categories",
		[]models.Category{{ID: "1", DisplayName: "Stale"}}))
	provider.categories[models.KindLive] = []xtream.Category{
		{CategoryID: "1", CategoryName: "Fresh"},
	}

	require.NoError(t, loader.LoadCategories(ctx, models.KindLive, true))

	renders := sink.categories[models.KindLive]
	require.Len(t, renders, 1)
	assert.Equal(t, "Fresh", renders[0][0].DisplayName)
}

// Scenario: loadStreams(catA) immediately followed by loadStreams(catB),
// with catA resolving last. The panel must show catB's list, and catA's
// result must still land in the cache.
func TestLoader_RaceCancellation(t *testing.T) {
	loader, provider, sink, st := setupLoader(t)
	ctx := context.Background()

	provider.live["A"] = []xtream.Stream{{StreamID: 1, Name: "A One", CategoryID: "A"}}
	provider.live["B"] = []xtream.Stream{{StreamID: 2, Name: "B One", CategoryID: "B"}}
	gateA := provider.gate("A")

	loader.SelectCategory(models.KindLive, "A")
	done := make(chan error, 1)
	go func() {
		done <- loader.LoadLiveStreams(ctx, "A", false)
	}()

	// Wait until A's fetch is in flight, then supersede it with B.
	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return len(provider.liveCalls) == 1
	}, testWait, testTick)

	loader.SelectCategory(models.KindLive, "B")
	require.NoError(t, loader.LoadLiveStreams(ctx, "B", false))

	// Release A; it completes last.
	close(gateA)
	require.NoError(t, <-done)

	sink.mu.Lock()
	liveShows := sink.liveShows
	liveCats := sink.liveCats
	sink.mu.Unlock()

	require.Len(t, liveShows, 1, "the superseded load must not render")
	assert.Equal(t, "B", liveCats[0])
	assert.Equal(t, "B One", liveShows[0][0].Name)

	// Both results are cached regardless of who rendered.
	var cachedA []models.LiveStream
	ok, err := st.GetValue(ctx, models.StoreStreams, models.CategoryKey("A"), &cachedA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A One", cachedA[0].Name)
}

func TestLoader_SelectionChangeAbandonsRender(t *testing.T) {
	loader, provider, sink, _ := setupLoader(t)
	ctx := context.Background()

	provider.live["A"] = []xtream.Stream{{StreamID: 1, Name: "A One", CategoryID: "A"}}
	gateA := provider.gate("A")

	loader.SelectCategory(models.KindLive, "A")
	done := make(chan error, 1)
	go func() {
		done <- loader.LoadLiveStreams(ctx, "A", false)
	}()

	require.Eventually(t, func() bool {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		return len(provider.liveCalls) == 1
	}, testWait, testTick)

	// Selection moves on without a competing load; same epoch, different
	// category.
	loader.SelectCategory(models.KindLive, "B")
	close(gateA)
	require.NoError(t, <-done)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Empty(t, sink.liveShows)
}

func TestLoader_LoadMoviesAndSeries(t *testing.T) {
	loader, provider, sink, _ := setupLoader(t)
	ctx := context.Background()

	provider.vod["5"] = []xtream.VODStream{
		{StreamID: 20, Name: "zeta", ContainerExtension: "mp4", CategoryID: "5"},
		{StreamID: 21, Name: "Alpha", ContainerExtension: "mkv", CategoryID: "5"},
	}
	provider.series["6"] = []xtream.Series{
		{SeriesID: 30, Name: "Show", CategoryID: "6"},
	}

	loader.SelectCategory(models.KindVOD, "5")
	require.NoError(t, loader.LoadMovies(ctx, "5", false))
	loader.SelectCategory(models.KindSeries, "6")
	require.NoError(t, loader.LoadSeries(ctx, "6", false))

	require.Len(t, sink.movieShows, 1)
	assert.Equal(t, "Alpha", sink.movieShows[0][0].Name)
	require.Len(t, sink.seriesSh, 1)
	assert.Equal(t, "Show", sink.seriesSh[0][0].Name)
}

func TestLoader_LoadEpisodes(t *testing.T) {
	loader, provider, sink, _ := setupLoader(t)
	ctx := context.Background()

	provider.seriesInfo["42"] = &xtream.SeriesInfo{
		Seasons: []xtream.SeasonInfo{{SeasonNumber: 1, Name: "Season One"}},
		Episodes: map[string][]xtream.Episode{
			"1": {
				{ID: "102", EpisodeNum: 2, Title: "Two", ContainerExtension: "mkv"},
				{ID: "101", EpisodeNum: 1, Title: "One", ContainerExtension: "mkv"},
			},
		},
	}

	require.NoError(t, loader.LoadEpisodes(ctx, "42", false))

	seasons := sink.episodes["42"]
	require.Len(t, seasons, 1)
	assert.Equal(t, "Season One", seasons[0].Name)
	require.Len(t, seasons[0].Episodes, 2)
	assert.Equal(t, "One", seasons[0].Episodes[0].Title)
	assert.Equal(t, "Two", seasons[0].Episodes[1].Title)
}

func TestLoader_BackfillStreamCount(t *testing.T) {
	loader, provider, sink, st := setupLoader(t)
	ctx := context.Background()

	provider.categories[models.KindLive] = []xtream.Category{
		{CategoryID: "A", CategoryName: "Sports"},
	}
	provider.live["A"] = []xtream.Stream{
		{StreamID: 11, Name: "One", CategoryID: "A"},
		{StreamID: 12, Name: "Two", CategoryID: "A"},
	}

	require.NoError(t, loader.LoadCategories(ctx, models.KindLive, false))
	category := sink.categories[models.KindLive][0][0]
	require.Nil(t, category.StreamCount)

	loader.BackfillStreamCount(ctx, category)

	renders := sink.categories[models.KindLive]
	require.Len(t, renders, 2, "backfill re-renders the category list")
	require.NotNil(t, renders[1][0].StreamCount)
	assert.Equal(t, 2, *renders[1][0].StreamCount)

	// The streams fetched for the count are cached for the next selection.
	var cached []models.LiveStream
	ok, err := st.GetValue(ctx, models.StoreStreams, models.CategoryKey("A"), &cached)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cached, 2)
}

func TestLoader_BackfillSkipsKnownCount(t *testing.T) {
	loader, provider, _, _ := setupLoader(t)

	two := 2
	loader.BackfillStreamCount(context.Background(), models.Category{
		ID: "A", Kind: models.KindLive, StreamCount: &two,
	})

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Empty(t, provider.liveCalls)
}

func TestLoader_FilterEpoch(t *testing.T) {
	loader, _, _, _ := setupLoader(t)

	e1 := loader.BumpFilterEpoch()
	assert.True(t, loader.FilterEpochCurrent(e1))

	e2 := loader.BumpFilterEpoch()
	assert.False(t, loader.FilterEpochCurrent(e1))
	assert.True(t, loader.FilterEpochCurrent(e2))
}
