package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/models"
)

// fakeEngine records loads and lets tests drive engine events.
type fakeEngine struct {
	mu      sync.Mutex
	events  EngineEvents
	loaded  []string
	stopped int
	loadErr error
}

func (f *fakeEngine) Load(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, url)
	return f.loadErr
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeEngine) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// transitionRecorder captures every state transition.
type transitionRecorder struct {
	mu     sync.Mutex
	states []State
	errs   []*models.PlaybackError
}

func (r *transitionRecorder) listen(state State, err *models.PlaybackError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	r.errs = append(r.errs, err)
}

func (r *transitionRecorder) last() (State, *models.PlaybackError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return "", nil
	}
	return r.states[len(r.states)-1], r.errs[len(r.errs)-1]
}

func newTestController(t *testing.T, cfg config.PlaybackConfig, opts ...Option) (*Controller, *fakeEngine, *transitionRecorder) {
	t.Helper()
	engine := &fakeEngine{}
	factory := func(_ EngineConfig, events EngineEvents) Engine {
		engine.mu.Lock()
		engine.events = events
		engine.mu.Unlock()
		return engine
	}
	c := NewController(cfg, nil, append([]Option{WithEngineFactory(factory)}, opts...)...)
	rec := &transitionRecorder{}
	c.SetListener(rec.listen)
	t.Cleanup(c.Stop)
	return c, engine, rec
}

func TestController_LoadingToPlaying(t *testing.T) {
	c, engine, rec := newTestController(t, config.PlaybackConfig{})

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))
	assert.Equal(t, StateLoading, c.State())

	engine.events.Playing()
	assert.Equal(t, StatePlaying, c.State())

	engine.events.Stalled()
	assert.Equal(t, StateStalled, c.State())

	engine.events.Playing()
	assert.Equal(t, StatePlaying, c.State())

	states, _ := rec.last()
	assert.Equal(t, StatePlaying, states)
}

// Scenario: a live channel goes offline mid-playback and the provider swaps
// in the black.ts sentinel playlist. The controller must land in Ended with
// the stream-ended classification.
func TestController_OfflineSentinelEndsStream(t *testing.T) {
	c, engine, rec := newTestController(t, config.PlaybackConfig{})

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))
	engine.events.Playing()

	engine.events.ManifestLoaded("http://host/live/u/p/1.m3u8",
		manifest([]string{"black.ts", "black.ts", "black.ts"}, true))

	assert.Equal(t, StateEnded, c.State())
	_, err := rec.last()
	require.NotNil(t, err)
	assert.Equal(t, models.PlaybackStreamEnded, err.Kind)
	assert.True(t, err.Retryable)
}

func TestController_HealthyManifestKeepsPlaying(t *testing.T) {
	c, engine, _ := newTestController(t, config.PlaybackConfig{})

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))
	engine.events.Playing()
	engine.events.ManifestLoaded("http://host/live/u/p/1.m3u8",
		manifest([]string{"s0.ts", "s1.ts"}, false))

	assert.Equal(t, StatePlaying, c.State())
}

func TestController_WatchdogFiresWhenNeverPlaying(t *testing.T) {
	c, _, rec := newTestController(t, config.PlaybackConfig{StreamWatchdog: 20 * time.Millisecond})

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))

	require.Eventually(t, func() bool { return c.State() == StateError }, time.Second, time.Millisecond)
	_, err := rec.last()
	require.NotNil(t, err)
	assert.Equal(t, models.PlaybackSlowOrOffline, err.Kind)
}

func TestController_WatchdogDisarmedByPlaying(t *testing.T) {
	c, engine, _ := newTestController(t, config.PlaybackConfig{StreamWatchdog: 20 * time.Millisecond})

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))
	engine.events.Playing()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatePlaying, c.State())
}

func TestController_OfflineProbeSurfacesError(t *testing.T) {
	c, _, rec := newTestController(t,
		config.PlaybackConfig{StreamWatchdog: time.Minute, OnlinePollInterval: 5 * time.Millisecond},
		WithOnlineProbe(func() bool { return false }))

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))

	require.Eventually(t, func() bool { return c.State() == StateError }, time.Second, time.Millisecond)
	_, err := rec.last()
	require.NotNil(t, err)
	assert.Equal(t, models.PlaybackSlowOrOffline, err.Kind)
}

func TestController_SwitchingSourcesStopsPriorEngine(t *testing.T) {
	c, engine, _ := newTestController(t, config.PlaybackConfig{})
	ctx := context.Background()

	require.NoError(t, c.Play(ctx, LiveSource("http://host/live/u/p/1.m3u8", "One")))
	require.NoError(t, c.Play(ctx, LiveSource("http://host/live/u/p/2.m3u8", "Two")))

	assert.Equal(t, 1, engine.stopCount())
	assert.Equal(t, "http://host/live/u/p/2.m3u8", c.Source().URL)
}

func TestController_FatalEngineError(t *testing.T) {
	c, engine, rec := newTestController(t, config.PlaybackConfig{})

	require.NoError(t, c.Play(context.Background(), LiveSource("http://host/live/u/p/1.m3u8", "One")))
	engine.events.Error(EngineErrorNetwork, false, errors.New("fragment timeout"))
	assert.Equal(t, StateLoading, c.State(), "recoverable errors do not change state")

	engine.events.Error(EngineErrorNetwork, true, errors.New("manifest unreachable"))
	assert.Equal(t, StateError, c.State())
	_, err := rec.last()
	require.NotNil(t, err)
	assert.Equal(t, models.PlaybackSlowOrOffline, err.Kind)
}

// stubPlayer completes immediately, or fails with a fixed error.
type stubPlayer struct {
	err    error
	played []Source
}

func (p *stubPlayer) Play(_ context.Context, source Source) error {
	p.played = append(p.played, source)
	return p.err
}
func (p *stubPlayer) Name() string    { return "stub" }
func (p *stubPlayer) Available() bool { return true }

func TestController_ProgressivePath(t *testing.T) {
	player := &stubPlayer{}
	c := NewController(config.PlaybackConfig{}, nil, WithPlayer(player))
	rec := &transitionRecorder{}
	c.SetListener(rec.listen)

	source := MovieSource("http://host/movie/u/p/9.mkv", models.Movie{Name: "Nine"})
	assert.Equal(t, "video/mp4", source.MIME, "container is declared mp4 regardless of extension")

	require.NoError(t, c.Play(context.Background(), source))
	require.Len(t, player.played, 1)
	assert.Equal(t, StateEnded, c.State())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      models.PlaybackErrorKind
		retryable bool
	}{
		{"autoplay blocked", errors.New("NotAllowedError: play() failed"), models.PlaybackAutoplayBlocked, true},
		{"user activation", errors.New("play() requires user activation"), models.PlaybackAutoplayBlocked, true},
		{"format unsupported", errors.New("NotSupportedError: no decoder"), models.PlaybackFormatUnsupported, false},
		{"aborted", errors.New("AbortError: load interrupted"), models.PlaybackMediaInterrupted, true},
		{"generic", errors.New("something broke"), models.PlaybackMediaInterrupted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := Classify(tt.err)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.retryable, pe.Retryable)
			assert.ErrorIs(t, pe, tt.err)
		})
	}
}
