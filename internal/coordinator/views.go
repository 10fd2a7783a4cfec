package coordinator

import (
	"strings"

	"github.com/tvdeck/tvdeck/internal/favorites"
	"github.com/tvdeck/tvdeck/internal/models"
)

// viewState is the per-view slice of coordinator state: the selection, the
// active filters, and the last full (unfiltered) list received from the
// loader.
type viewState struct {
	categoryID    string
	search        string
	favoritesOnly bool
	playingID     string

	live    []models.LiveStream
	movies  []models.Movie
	series  []models.Series
	seasons []models.Season
}

func matchName(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// filterLive applies the marker filter, the search query, and the
// favorites-only toggle, preserving list order.
func (c *Coordinator) filterLive(state *viewState, streams []models.LiveStream) []models.LiveStream {
	hideMarkers := c.prefs.GetBool(models.PrefFilterMarkers)
	out := make([]models.LiveStream, 0, len(streams))
	for _, s := range streams {
		if hideMarkers && s.IsMarker() {
			continue
		}
		if !matchName(s.Name, state.search) {
			continue
		}
		out = append(out, s)
	}
	if state.favoritesOnly {
		out = favorites.Filter(c.favorites, favorites.KindStreams, out,
			func(s models.LiveStream) string { return s.ID })
	}
	return out
}

func (c *Coordinator) filterMovies(state *viewState, movies []models.Movie) []models.Movie {
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if matchName(m.Name, state.search) {
			out = append(out, m)
		}
	}
	if state.favoritesOnly {
		out = favorites.Filter(c.favorites, favorites.KindVOD, out,
			func(m models.Movie) string { return m.ID })
	}
	return out
}

func (c *Coordinator) filterSeries(state *viewState, series []models.Series) []models.Series {
	out := make([]models.Series, 0, len(series))
	for _, s := range series {
		if matchName(s.Name, state.search) {
			out = append(out, s)
		}
	}
	if state.favoritesOnly {
		out = favorites.Filter(c.favorites, favorites.KindSeries, out,
			func(s models.Series) string { return s.ID })
	}
	return out
}
