package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tvdeck/tvdeck/internal/config"
)

// Listener receives the decoded route after a debounced fragment change.
type Listener func(route Route)

// Router keeps the fragment and the navigation state in sync without
// feedback loops: outbound writes go through Navigate, inbound changes
// arrive via HandleFragmentChange and are dispatched after a debounce
// window, with outbound writes suppressed while listeners run.
type Router struct {
	history  History
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.Mutex
	listeners map[string]Listener
	timer     *time.Timer
	pending   string
	restoring bool
	closed    bool
}

// New creates a Router over the given history surface.
func New(history History, cfg config.RouterConfig, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	return &Router{
		history:   history,
		logger:    logger.With("component", "router"),
		debounce:  debounce,
		listeners: make(map[string]Listener),
	}
}

// Subscribe registers a listener for debounced route changes and returns
// its subscription id.
func (r *Router) Subscribe(fn Listener) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.listeners[id] = fn
	return id
}

// Unsubscribe removes a listener.
func (r *Router) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, id)
}

// Current returns the route decoded from the current fragment.
func (r *Router) Current() Route {
	return Parse(r.history.Fragment())
}

// Navigate writes the route to the history surface. An identical fragment
// is a no-op, and writes are suppressed while listeners are reacting to an
// inbound change.
func (r *Router) Navigate(route Route, replace bool) {
	fragment := Build(route)

	r.mu.Lock()
	restoring := r.restoring
	r.mu.Unlock()
	if restoring {
		r.logger.Debug("suppressing navigation during restoration", "fragment", fragment)
		return
	}

	if fragment == r.history.Fragment() {
		return
	}
	if replace {
		r.history.Replace(fragment)
	} else {
		r.history.Push(fragment)
	}
	r.logger.Debug("navigated", "fragment", fragment, "replace", replace)
}

// HandleFragmentChange feeds an inbound fragment change into the debounce
// window. Bursty changes collapse into a single dispatch of the last one.
func (r *Router) HandleFragmentChange(fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = fragment
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.dispatch)
}

// dispatch fires after the debounce window: it decodes the pending fragment
// and runs the listeners in restoration mode.
func (r *Router) dispatch() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	fragment := r.pending
	r.restoring = true
	listeners := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	route := Parse(fragment)
	for _, fn := range listeners {
		fn(route)
	}

	r.mu.Lock()
	r.restoring = false
	r.mu.Unlock()
}

// Close stops any pending dispatch.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
