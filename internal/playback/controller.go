// Package playback owns the playback state machine: source selection,
// engine lifecycle, the offline-stream sentinel, and error classification.
package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/models"
)

// State is the playback controller state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StateStalled State = "stalled"
	StateEnded   State = "ended"
	StateError   State = "error"
)

// StateListener observes controller transitions. err is non-nil for
// StateError and for the offline-sentinel Ended transition.
type StateListener func(state State, err *models.PlaybackError)

// Controller drives at most one playback at a time. It is the single owner
// of the engine: switching sources always stops the prior engine first.
type Controller struct {
	cfg     config.PlaybackConfig
	logger  *slog.Logger
	factory EngineFactory
	player  Player

	// online reports current connectivity; polled while loading.
	online func() bool

	mu       sync.Mutex
	state    State
	source   Source
	engine   Engine
	listener StateListener
	watchdog *time.Timer
	pollStop chan struct{}
	cancel   context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithEngineFactory sets the HLS engine factory.
func WithEngineFactory(factory EngineFactory) Option {
	return func(c *Controller) { c.factory = factory }
}

// WithPlayer sets the progressive-path player.
func WithPlayer(player Player) Option {
	return func(c *Controller) { c.player = player }
}

// WithOnlineProbe sets the connectivity probe used by the loading poller.
func WithOnlineProbe(probe func() bool) Option {
	return func(c *Controller) { c.online = probe }
}

// NewController creates an idle controller.
func NewController(cfg config.PlaybackConfig, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:    cfg,
		logger: logger.With("component", "playback"),
		state:  StateIdle,
		online: func() bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetListener registers the single transition observer.
func (c *Controller) SetListener(fn StateListener) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Source returns the current source.
func (c *Controller) Source() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Play switches to a new source. The prior engine is stopped before
// anything else happens.
func (c *Controller) Play(ctx context.Context, source Source) error {
	c.stopCurrent()

	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.source = source
	c.cancel = cancel
	c.mu.Unlock()

	c.transition(StateLoading, nil)
	c.armWatchdog()
	c.startOnlinePoller()

	switch source.Kind {
	case SourceProgressive:
		return c.playProgressive(ctx, source)
	default:
		return c.playHLS(ctx, source)
	}
}

// Stop tears down the current playback and returns to idle.
func (c *Controller) Stop() {
	c.stopCurrent()
	c.transition(StateIdle, nil)
}

func (c *Controller) playHLS(ctx context.Context, source Source) error {
	if c.factory == nil {
		err := Classify(errEngineUnavailable)
		c.transition(StateError, err)
		return err
	}

	engine := c.factory(DefaultEngineConfig(), EngineEvents{
		ManifestLoaded: func(manifestURL string, raw []byte) {
			if StreamEnded(manifestURL, raw) {
				c.logger.Info("offline sentinel detected", "url", manifestURL)
				c.ended()
			}
		},
		Playing: c.playing,
		Stalled: c.stalled,
		Ended:   c.ended,
		Error:   c.engineError,
	})

	c.mu.Lock()
	c.engine = engine
	c.mu.Unlock()

	if err := engine.Load(ctx, source.URL); err != nil {
		if models.IsCancelled(err) {
			return err
		}
		pe := Classify(err)
		c.transition(StateError, pe)
		return pe
	}
	return nil
}

func (c *Controller) playProgressive(ctx context.Context, source Source) error {
	if c.player == nil {
		err := Classify(errPlayerUnavailable)
		c.transition(StateError, err)
		return err
	}

	c.playing()
	err := c.player.Play(ctx, source)
	c.disarm()
	if err != nil {
		if models.IsCancelled(err) {
			c.transition(StateIdle, nil)
			return err
		}
		pe := Classify(err)
		c.transition(StateError, pe)
		return pe
	}
	c.transition(StateEnded, nil)
	return nil
}

// playing handles the first (or resumed) playing event.
func (c *Controller) playing() {
	c.disarm()
	c.transition(StatePlaying, nil)
}

func (c *Controller) stalled() {
	c.mu.Lock()
	fromPlaying := c.state == StatePlaying
	c.mu.Unlock()
	if fromPlaying {
		c.transition(StateStalled, nil)
	}
}

func (c *Controller) ended() {
	c.disarm()
	c.transition(StateEnded, &models.PlaybackError{
		Kind:      models.PlaybackStreamEnded,
		Message:   "Stream has ended or is offline",
		Retryable: true,
	})
}

func (c *Controller) engineError(kind EngineErrorKind, fatal bool, err error) {
	if !fatal {
		c.logger.Debug("recoverable engine error", "kind", kind, "error", err)
		return
	}
	c.disarm()
	pe := classifyEngine(kind, err)
	c.transition(StateError, pe)
}

// armWatchdog starts the loading deadline: if playback never reaches
// playing in time, surface slow-or-offline.
func (c *Controller) armWatchdog() {
	deadline := c.cfg.StreamWatchdog
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	c.mu.Lock()
	c.watchdog = time.AfterFunc(deadline, func() {
		c.mu.Lock()
		loading := c.state == StateLoading
		c.mu.Unlock()
		if !loading {
			return
		}
		c.transition(StateError, &models.PlaybackError{
			Kind:      models.PlaybackSlowOrOffline,
			Message:   "Stream is taking too long to start. Connection may be slow or offline.",
			Retryable: true,
		})
	})
	c.mu.Unlock()
}

// startOnlinePoller polls connectivity while loading and surfaces offline
// immediately instead of waiting for the watchdog.
func (c *Controller) startOnlinePoller() {
	interval := c.cfg.OnlinePollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	stop := make(chan struct{})
	c.mu.Lock()
	c.pollStop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				loading := c.state == StateLoading || c.state == StateStalled
				c.mu.Unlock()
				if loading && !c.online() {
					c.transition(StateError, &models.PlaybackError{
						Kind:      models.PlaybackSlowOrOffline,
						Message:   "You appear to be offline.",
						Retryable: true,
					})
					return
				}
			}
		}
	}()
}

// disarm stops the watchdog and poller once a terminal or playing state is
// reached.
func (c *Controller) disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

// stopCurrent releases the engine and timers of the in-flight playback.
func (c *Controller) stopCurrent() {
	c.disarm()
	c.mu.Lock()
	engine := c.engine
	cancel := c.cancel
	c.engine = nil
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if engine != nil {
		engine.Stop()
	}
}

func (c *Controller) transition(state State, err *models.PlaybackError) {
	c.mu.Lock()
	if c.state == state && err == nil {
		c.mu.Unlock()
		return
	}
	c.state = state
	listener := c.listener
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("playback state", "state", state, "kind", err.Kind, "error", err.Message)
	} else {
		c.logger.Debug("playback state", "state", state)
	}
	if listener != nil {
		listener(state, err)
	}
}

// isAutoplayRejection matches the activation-gated play() rejections that
// need a distinct message instead of a retry suggestion.
func isAutoplayRejection(msg string) bool {
	return strings.Contains(msg, "NotAllowedError") ||
		strings.Contains(msg, "user activation") ||
		strings.Contains(msg, "user gesture")
}

// Classify maps a raw playback failure to its operator-facing shape.
func Classify(err error) *models.PlaybackError {
	msg := err.Error()
	switch {
	case isAutoplayRejection(msg):
		return &models.PlaybackError{
			Kind:      models.PlaybackAutoplayBlocked,
			Message:   "Playback needs an explicit start. Press play to begin.",
			Retryable: true,
			Cause:     err,
		}
	case strings.Contains(msg, "NotSupportedError") || strings.Contains(msg, "unsupported"):
		return &models.PlaybackError{
			Kind:      models.PlaybackFormatUnsupported,
			Message:   "This format cannot be played here. Try the direct link in an external player.",
			Retryable: false,
			Cause:     err,
		}
	case strings.Contains(msg, "AbortError"):
		return &models.PlaybackError{
			Kind:      models.PlaybackMediaInterrupted,
			Message:   "Playback was interrupted.",
			Retryable: true,
			Cause:     err,
		}
	default:
		return &models.PlaybackError{
			Kind:      models.PlaybackMediaInterrupted,
			Message:   "Playback failed. Retrying may help.",
			Retryable: true,
			Cause:     err,
		}
	}
}

func classifyEngine(kind EngineErrorKind, err error) *models.PlaybackError {
	if kind == EngineErrorNetwork {
		return &models.PlaybackError{
			Kind:      models.PlaybackSlowOrOffline,
			Message:   "Network error while loading the stream.",
			Retryable: true,
			Cause:     err,
		}
	}
	return &models.PlaybackError{
		Kind:      models.PlaybackFormatUnsupported,
		Message:   "The stream could not be decoded.",
		Retryable: false,
		Cause:     err,
	}
}
