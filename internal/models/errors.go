package models

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds shared across components. Callers classify with errors.Is.
var (
	// ErrNetwork indicates a transport failure or non-2xx provider response.
	ErrNetwork = errors.New("network error")

	// ErrStorageUnavailable indicates the storage engine is not initialized.
	// Callers treat this as soft and fall through to a network fetch.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorage indicates an I/O failure inside the storage engine.
	// Soft, like ErrStorageUnavailable.
	ErrStorage = errors.New("storage error")

	// ErrEPGParse indicates the XMLTV document could not be parsed.
	// Any previously cached guide stays intact.
	ErrEPGParse = errors.New("epg parse error")

	// ErrStreamResolution indicates every stream-URL probe failed and no
	// canonical URL could be synthesized.
	ErrStreamResolution = errors.New("stream resolution failed")

	// ErrFormat indicates input that does not match an expected grammar.
	ErrFormat = errors.New("format error")
)

// IsCancelled reports whether the error denotes a cooperatively cancelled
// request. Originators absorb these; they are never surfaced as failures.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// PlaybackErrorKind classifies playback failures for the operator-facing
// message and the retry affordance.
type PlaybackErrorKind string

const (
	// PlaybackAutoplayBlocked means the player refused to start without
	// explicit user activation.
	PlaybackAutoplayBlocked PlaybackErrorKind = "autoplay-blocked"
	// PlaybackFormatUnsupported means the container or codec cannot play.
	PlaybackFormatUnsupported PlaybackErrorKind = "format-unsupported"
	// PlaybackMediaInterrupted means playback was aborted mid-flight.
	PlaybackMediaInterrupted PlaybackErrorKind = "media-interrupted"
	// PlaybackStreamEnded means the provider's offline sentinel was detected.
	PlaybackStreamEnded PlaybackErrorKind = "stream-ended"
	// PlaybackSlowOrOffline means the stream never reached playing in time
	// or the network reports disconnection.
	PlaybackSlowOrOffline PlaybackErrorKind = "slow-or-offline"
)

// PlaybackError is a classified playback failure. Message is user-facing;
// Retryable drives whether the retry action is offered.
type PlaybackError struct {
	Kind      PlaybackErrorKind
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("playback error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("playback error (%s): %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

// AsPlaybackError extracts a PlaybackError from an error chain.
func AsPlaybackError(err error) (*PlaybackError, bool) {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
