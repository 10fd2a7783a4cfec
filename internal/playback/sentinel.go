package playback

import (
	"strings"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

// offlineSegmentMarker is the path fragment the provider substitutes into a
// playlist when a live channel goes offline.
const offlineSegmentMarker = "black.ts"

// StreamEnded reports whether a fetched manifest is the provider's offline
// sentinel: a short, finished playlist pointing at black filler segments.
// Any one of the rules suffices.
func StreamEnded(manifestURL string, raw []byte) bool {
	if strings.Contains(manifestURL, offlineSegmentMarker) {
		return true
	}

	if pl, err := playlist.Unmarshal(raw); err == nil {
		if media, ok := pl.(*playlist.Media); ok && mediaEnded(media) {
			return true
		}
	}

	// Raw-text fallback for manifests gohlslib rejects.
	text := string(raw)
	return strings.Contains(text, "#EXT-X-ENDLIST") && strings.Contains(text, offlineSegmentMarker)
}

func mediaEnded(media *playlist.Media) bool {
	if !media.Endlist || len(media.Segments) == 0 {
		return false
	}

	total := len(media.Segments)
	black := 0
	for _, seg := range media.Segments {
		if strings.Contains(seg.URI, offlineSegmentMarker) {
			black++
		}
	}
	if black == 0 {
		return false
	}

	switch {
	case black == total:
		return true
	case total <= 5 && black*2 >= total:
		return true
	case black == 1:
		return true
	}
	return false
}
