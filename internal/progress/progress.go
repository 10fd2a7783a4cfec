// Package progress provides real-time progress tracking for long-running
// operations such as EPG ingestion and catalog refreshes.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// State represents the current state of an operation.
type State string

const (
	// StateIdle indicates the operation has not started.
	StateIdle State = "idle"
	// StateFetching indicates the operation is downloading data.
	StateFetching State = "fetching"
	// StateProcessing indicates the operation is processing data.
	StateProcessing State = "processing"
	// StateSaving indicates the operation is saving results.
	StateSaving State = "saving"
	// StateCompleted indicates the operation completed successfully.
	StateCompleted State = "completed"
	// StateError indicates the operation failed with an error.
	StateError State = "error"
	// StateCancelled indicates the operation was cancelled.
	StateCancelled State = "cancelled"
)

// IsTerminal returns true for completed, error, or cancelled.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateError || s == StateCancelled
}

// OperationType identifies the type of operation being tracked.
type OperationType string

const (
	// OpEPGIngestion is a guide refresh.
	OpEPGIngestion OperationType = "epg_ingestion"
	// OpCatalogLoad is a category or stream list load.
	OpCatalogLoad OperationType = "catalog_load"
)

// Update is a progress snapshot: which stage an operation is in, what it is
// doing, and how far along it is.
type Update struct {
	OperationID string        `json:"operation_id"`
	Type        OperationType `json:"operation_type"`
	State       State         `json:"state"`
	Stage       string        `json:"stage"`
	Message     string        `json:"message"`
	Percent     float64       `json:"percent"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Service tracks operations and fans updates out to subscribers.
type Service struct {
	mu          sync.RWMutex
	operations  map[string]*Update
	subscribers map[string]func(Update)
}

// NewService creates a progress Service.
func NewService() *Service {
	return &Service{
		operations:  make(map[string]*Update),
		subscribers: make(map[string]func(Update)),
	}
}

// StartOperation registers a new operation and returns its Tracker.
func (s *Service) StartOperation(opType OperationType) *Tracker {
	now := time.Now()
	update := &Update{
		OperationID: ulid.Make().String(),
		Type:        opType,
		State:       StateIdle,
		StartedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.operations[update.OperationID] = update
	s.mu.Unlock()

	return &Tracker{service: s, operationID: update.OperationID}
}

// GetOperation returns a snapshot of an operation.
func (s *Service) GetOperation(operationID string) (Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operations[operationID]
	if !ok {
		return Update{}, fmt.Errorf("operation not found: %s", operationID)
	}
	return *op, nil
}

// Subscribe registers a callback for every update and returns the
// subscriber id for Unsubscribe.
func (s *Service) Subscribe(fn func(Update)) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.subscribers[id] = fn
	s.mu.Unlock()
	return id
}

// Unsubscribe removes a subscriber.
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

func (s *Service) update(operationID string, fn func(*Update)) {
	s.mu.Lock()
	op, ok := s.operations[operationID]
	if !ok {
		s.mu.Unlock()
		return
	}
	fn(op)
	op.UpdatedAt = time.Now()
	snapshot := *op
	subs := make([]func(Update), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Tracker updates one operation's progress.
type Tracker struct {
	service     *Service
	operationID string
}

// OperationID returns the tracked operation's id.
func (t *Tracker) OperationID() string {
	return t.operationID
}

// SetStage moves the operation to a named stage.
func (t *Tracker) SetStage(state State, stage, message string) {
	t.service.update(t.operationID, func(u *Update) {
		u.State = state
		u.Stage = stage
		u.Message = message
	})
}

// SetPercent updates completion within the current stage.
func (t *Tracker) SetPercent(percent float64, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.service.update(t.operationID, func(u *Update) {
		u.Percent = percent
		if message != "" {
			u.Message = message
		}
	})
}

// Complete marks the operation finished.
func (t *Tracker) Complete(message string) {
	t.service.update(t.operationID, func(u *Update) {
		u.State = StateCompleted
		u.Percent = 100
		u.Message = message
	})
}

// Fail marks the operation failed.
func (t *Tracker) Fail(err error) {
	t.service.update(t.operationID, func(u *Update) {
		u.State = StateError
		u.Error = err.Error()
	})
}

// Cancel marks the operation cancelled.
func (t *Tracker) Cancel() {
	t.service.update(t.operationID, func(u *Update) {
		u.State = StateCancelled
	})
}
