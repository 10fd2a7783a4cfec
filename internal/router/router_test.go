package router

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     Route
	}{
		{
			name:     "empty fragment",
			fragment: "",
			want:     Route{View: models.KindLive},
		},
		{
			name:     "bare live",
			fragment: "#/live",
			want:     Route{View: models.KindLive},
		},
		{
			name:     "unknown view falls back to live",
			fragment: "#/settings",
			want:     Route{View: models.KindLive},
		},
		{
			name:     "live with category and stream",
			fragment: "#/live/category/10/stream/77",
			want:     Route{View: models.KindLive, CategoryID: "10", StreamID: "77"},
		},
		{
			name:     "series with episode",
			fragment: "#/series/42/episode/7",
			want:     Route{View: models.KindSeries, ContentID: "42", EpisodeID: "7"},
		},
		{
			name:     "series with category only",
			fragment: "#/series/category/3",
			want:     Route{View: models.KindSeries, CategoryID: "3"},
		},
		{
			name:     "movie playing",
			fragment: "#/movies/99/playing",
			want:     Route{View: models.KindVOD, ContentID: "99", Playing: true},
		},
		{
			name:     "vod accepted as movies alias",
			fragment: "#/vod/99/playing",
			want:     Route{View: models.KindVOD, ContentID: "99", Playing: true},
		},
		{
			name:     "trailing noise skipped",
			fragment: "#/movies/99/banana",
			want:     Route{View: models.KindVOD, ContentID: "99"},
		},
		{
			name:     "double slashes tolerated",
			fragment: "#//live//category//5",
			want:     Route{View: models.KindLive, CategoryID: "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.fragment))
		})
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		route Route
		want  string
	}{
		{"home", Route{View: models.KindLive}, "#/live"},
		{
			"live stream",
			Route{View: models.KindLive, CategoryID: "10", StreamID: "77"},
			"#/live/category/10/stream/77",
		},
		{
			"series episode",
			Route{View: models.KindSeries, ContentID: "42", EpisodeID: "7"},
			"#/series/42/episode/7",
		},
		{
			"movie playing",
			Route{View: models.KindVOD, ContentID: "99", Playing: true},
			"#/movies/99/playing",
		},
		{
			"invalid view normalised",
			Route{View: "bogus"},
			"#/live",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.route))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	fragments := []string{
		"#/live",
		"#/live/category/10",
		"#/live/category/10/stream/77",
		"#/series/42",
		"#/series/42/episode/7",
		"#/series/category/3",
		"#/movies/99",
		"#/movies/99/playing",
		"#/movies/category/8/99/playing",
	}
	for _, fragment := range fragments {
		assert.Equal(t, fragment, Build(Parse(fragment)), "fragment %q", fragment)
	}
}

func newTestRouter(debounce time.Duration) (*Router, *MemoryHistory) {
	h := NewMemoryHistory()
	r := New(h, config.RouterConfig{Debounce: debounce}, nil)
	return r, h
}

func TestRouter_NavigatePushAndReplace(t *testing.T) {
	r, h := newTestRouter(time.Millisecond)
	defer r.Close()

	r.Navigate(Route{View: models.KindLive}, false)
	r.Navigate(Route{View: models.KindSeries}, false)
	assert.Equal(t, "#/series", h.Fragment())
	assert.Equal(t, 3, h.Depth())

	r.Navigate(Route{View: models.KindVOD}, true)
	assert.Equal(t, "#/movies", h.Fragment())
	assert.Equal(t, 3, h.Depth(), "replace must not grow the stack")
}

func TestRouter_NavigateIdenticalIsNoop(t *testing.T) {
	r, h := newTestRouter(time.Millisecond)
	defer r.Close()

	r.Navigate(Route{View: models.KindLive, CategoryID: "1"}, false)
	depth := h.Depth()
	r.Navigate(Route{View: models.KindLive, CategoryID: "1"}, false)
	assert.Equal(t, depth, h.Depth())
}

func TestRouter_DebounceCollapsesBurst(t *testing.T) {
	r, _ := newTestRouter(20 * time.Millisecond)
	defer r.Close()

	var mu sync.Mutex
	var got []Route
	r.Subscribe(func(route Route) {
		mu.Lock()
		got = append(got, route)
		mu.Unlock()
	})

	r.HandleFragmentChange("#/live")
	r.HandleFragmentChange("#/series/1")
	r.HandleFragmentChange("#/series/42/episode/7")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, time.Second, time.Millisecond)

	// A further tick would have fired by now if extra dispatches were queued.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1, "burst must collapse to a single dispatch")
	assert.Equal(t, Route{View: models.KindSeries, ContentID: "42", EpisodeID: "7"}, got[0])
}

func TestRouter_RestorationSuppressesOutboundWrites(t *testing.T) {
	r, h := newTestRouter(time.Millisecond)
	defer r.Close()

	done := make(chan struct{})
	r.Subscribe(func(route Route) {
		// Reacting to an inbound change must not write the URL back.
		r.Navigate(route, false)
		close(done)
	})

	r.HandleFragmentChange("#/series/42")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener never dispatched")
	}

	assert.Equal(t, "", h.Fragment(), "restoration must not touch history")
	assert.Equal(t, 1, h.Depth())

	// Outside restoration the same navigation goes through.
	r.Navigate(Route{View: models.KindSeries, ContentID: "42"}, false)
	assert.Equal(t, "#/series/42", h.Fragment())
}

func TestRouter_Unsubscribe(t *testing.T) {
	r, _ := newTestRouter(time.Millisecond)
	defer r.Close()

	var mu sync.Mutex
	calls := 0
	id := r.Subscribe(func(Route) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	r.Unsubscribe(id)

	r.HandleFragmentChange("#/live")
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}
