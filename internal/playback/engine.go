package playback

import (
	"context"
	"time"
)

// EngineConfig carries the HLS engine tuning applied on attach. The zero
// value is not useful; start from DefaultEngineConfig.
type EngineConfig struct {
	EnableWorker            bool
	LowLatencyMode          bool
	BackBufferLength        time.Duration
	MaxBufferLength         time.Duration
	FragLoadingTimeout      time.Duration
	ManifestLoadingTimeout  time.Duration
	FragLoadingMaxRetry     int
	ManifestLoadingMaxRetry int
}

// DefaultEngineConfig returns the live-playback engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		EnableWorker:            true,
		LowLatencyMode:          true,
		BackBufferLength:        90 * time.Second,
		MaxBufferLength:         30 * time.Second,
		FragLoadingTimeout:      20 * time.Second,
		ManifestLoadingTimeout:  10 * time.Second,
		FragLoadingMaxRetry:     2,
		ManifestLoadingMaxRetry: 1,
	}
}

// EngineErrorKind splits engine failures the way the classifier needs them.
type EngineErrorKind string

const (
	// EngineErrorNetwork covers manifest and fragment transport failures.
	EngineErrorNetwork EngineErrorKind = "network"
	// EngineErrorMedia covers demux and decode failures.
	EngineErrorMedia EngineErrorKind = "media"
)

// EngineEvents is the callback surface an engine drives while attached.
// All callbacks are invoked from the engine's goroutine.
type EngineEvents struct {
	// ManifestLoaded fires with every fetched media playlist, before
	// playback proceeds. The controller runs sentinel detection here.
	ManifestLoaded func(manifestURL string, raw []byte)
	// Playing fires when playback actually starts or resumes.
	Playing func()
	// Stalled fires when the buffer underruns.
	Stalled func()
	// Ended fires when the engine reaches the end of a finished stream.
	Ended func()
	// Error fires on engine failures; fatal errors tear playback down.
	Error func(kind EngineErrorKind, fatal bool, err error)
}

// Engine is an attached HLS playback engine. The controller is the single
// owner: it always stops the previous engine before attaching a new one.
type Engine interface {
	// Load starts fetching and playing the manifest at url.
	Load(ctx context.Context, url string) error
	// Stop detaches and releases the engine.
	Stop()
}

// EngineFactory builds an engine bound to a config and event sink.
type EngineFactory func(cfg EngineConfig, events EngineEvents) Engine
