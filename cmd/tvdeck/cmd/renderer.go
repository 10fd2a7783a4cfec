package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/playback"
)

// consoleRenderer prints view updates as plain text tables.
type consoleRenderer struct {
	out io.Writer
}

func newConsoleRenderer(out io.Writer) *consoleRenderer {
	return &consoleRenderer{out: out}
}

func (r *consoleRenderer) ShowView(view models.ContentKind) {
	fmt.Fprintf(r.out, "\n== %s ==\n", view)
}

func (r *consoleRenderer) ShowLogin(message string) {
	if message != "" {
		fmt.Fprintln(r.out, message)
	}
	fmt.Fprintln(r.out, "Not signed in. Run: tvdeck login --server <url> --username <user> --password <pass>")
}

func (r *consoleRenderer) ShowLoading(kind models.ContentKind) {
	fmt.Fprintf(r.out, "loading %s...\n", kind)
}

func (r *consoleRenderer) ShowCategories(kind models.ContentKind, categories []models.Category) {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCATEGORY\tCOUNT\n")
	for _, c := range categories {
		count := "-"
		if c.StreamCount != nil {
			count = fmt.Sprintf("%d", *c.StreamCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.DisplayName, count)
	}
	_ = w.Flush()
}

func (r *consoleRenderer) ShowLiveStreams(categoryID string, streams []models.LiveStream) {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCHANNEL\tARCHIVE\n")
	for _, s := range streams {
		archive := ""
		if s.TVArchive {
			archive = fmt.Sprintf("%dd", s.TVArchiveDuration)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, archive)
	}
	_ = w.Flush()
}

func (r *consoleRenderer) ShowMovies(categoryID string, movies []models.Movie) {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tYEAR\tRATING\n")
	for _, m := range movies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\n", m.ID, m.Name, m.Year, m.Rating)
	}
	_ = w.Flush()
}

func (r *consoleRenderer) ShowSeries(categoryID string, series []models.Series) {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tYEAR\tRATING\n")
	for _, s := range series {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\n", s.ID, s.Name, s.Year, s.Rating)
	}
	_ = w.Flush()
}

func (r *consoleRenderer) ShowEpisodes(seriesID string, seasons []models.Season) {
	for _, season := range seasons {
		fmt.Fprintf(r.out, "Season %d %s\n", season.Number, season.Name)
		for _, ep := range season.Episodes {
			fmt.Fprintf(r.out, "  %2d. %s\n", ep.EpisodeNum, ep.Title)
		}
	}
}

func (r *consoleRenderer) ShowPlayback(state playback.State, err *models.PlaybackError) {
	if err != nil {
		fmt.Fprintf(r.out, "playback: %s (%s)\n", state, err.Message)
		return
	}
	fmt.Fprintf(r.out, "playback: %s\n", state)
}
