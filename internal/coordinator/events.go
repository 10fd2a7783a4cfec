package coordinator

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tvdeck/tvdeck/internal/favorites"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/playback"
	"github.com/tvdeck/tvdeck/internal/router"
)

// Event is a typed application event delivered through the Bus.
type Event interface{ isEvent() }

// CategoryChanged fires when the selected category of a view changes.
type CategoryChanged struct {
	Kind       models.ContentKind
	CategoryID string
}

// FavoriteToggled fires when favorites membership changes. ID is empty when
// a whole kind was cleared.
type FavoriteToggled struct {
	Kind   favorites.Kind
	ID     string
	Member bool
}

// PlaybackStateChanged mirrors controller transitions onto the bus.
type PlaybackStateChanged struct {
	State playback.State
	Err   *models.PlaybackError
}

// RouteChanged fires after a debounced inbound navigation was applied.
type RouteChanged struct {
	Route router.Route
}

func (CategoryChanged) isEvent()      {}
func (FavoriteToggled) isEvent()      {}
func (PlaybackStateChanged) isEvent() {}
func (RouteChanged) isEvent()         {}

// Bus is the in-process pub/sub surface between the coordinator and the
// rest of the application. Delivery is synchronous, in subscriber order is
// unspecified.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]func(Event))}
}

// Subscribe registers a handler and returns its subscription id.
func (b *Bus) Subscribe(fn func(Event)) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.subscribers[id] = fn
	return id
}

// Unsubscribe removes a handler.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subscribers := make([]func(Event), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subscribers = append(subscribers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subscribers {
		fn(event)
	}
}
