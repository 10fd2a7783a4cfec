// Package router translates navigation state to and from URL fragments and
// dispatches debounced change events to listeners.
package router

import (
	"strings"

	"github.com/tvdeck/tvdeck/internal/models"
)

// Route is the decoded navigation state carried by a fragment.
type Route struct {
	View       models.ContentKind `json:"view"`
	CategoryID string             `json:"categoryId,omitempty"`
	// StreamID carries the playing channel on the live view.
	StreamID string `json:"streamId,omitempty"`
	// ContentID is the series or movie id on the other views.
	ContentID string `json:"contentId,omitempty"`
	EpisodeID string `json:"episodeId,omitempty"`
	// Playing marks a movie route as actively playing.
	Playing bool `json:"playing,omitempty"`
}

// Home is the route every unknown fragment falls back to.
func Home() Route {
	return Route{View: models.KindLive}
}

// movieViewToken is the fragment spelling of the movie view. The catalog
// keeps the provider's "vod" naming; fragments use "movies", with "vod"
// accepted as an alias on parse.
const movieViewToken = "movies"

func viewFromToken(token string) models.ContentKind {
	if token == movieViewToken {
		return models.KindVOD
	}
	view := models.ContentKind(token)
	if !view.Valid() {
		return models.KindLive
	}
	return view
}

func viewToken(view models.ContentKind) string {
	if view == models.KindVOD {
		return movieViewToken
	}
	return string(view)
}

// Parse decodes a fragment of the form
//
//	#/<view>[/category/<id>][/stream/<id>|/<seriesId>[/episode/<id>]|/<movieId>[/playing]]
//
// Unknown views map to live; unrecognised segments are skipped.
func Parse(fragment string) Route {
	fragment = strings.TrimPrefix(fragment, "#")
	segments := splitSegments(fragment)
	if len(segments) == 0 {
		return Home()
	}

	route := Route{View: viewFromToken(segments[0])}

	rest := segments[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "category":
			if i+1 < len(rest) {
				route.CategoryID = rest[i+1]
				i++
			}
		case "stream":
			if i+1 < len(rest) {
				route.StreamID = rest[i+1]
				i++
			}
		case "episode":
			if i+1 < len(rest) {
				route.EpisodeID = rest[i+1]
				i++
			}
		case "playing":
			route.Playing = true
		default:
			// First bare segment is the content id; anything after is noise.
			if route.ContentID == "" && route.View != models.KindLive {
				route.ContentID = rest[i]
			}
		}
	}
	return route
}

// Build encodes a route back into its fragment. Build and Parse are
// inverses for routes in normal form.
func Build(route Route) string {
	view := route.View
	if !view.Valid() {
		view = models.KindLive
	}

	var b strings.Builder
	b.WriteString("#/")
	b.WriteString(viewToken(view))

	if route.CategoryID != "" {
		b.WriteString("/category/")
		b.WriteString(route.CategoryID)
	}

	switch view {
	case models.KindLive:
		if route.StreamID != "" {
			b.WriteString("/stream/")
			b.WriteString(route.StreamID)
		}
	case models.KindSeries:
		if route.ContentID != "" {
			b.WriteString("/")
			b.WriteString(route.ContentID)
			if route.EpisodeID != "" {
				b.WriteString("/episode/")
				b.WriteString(route.EpisodeID)
			}
		}
	case models.KindVOD:
		if route.ContentID != "" {
			b.WriteString("/")
			b.WriteString(route.ContentID)
			if route.Playing {
				b.WriteString("/playing")
			}
		}
	}
	return b.String()
}

func splitSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
