package playback

import "github.com/tvdeck/tvdeck/internal/models"

// SourceKind selects the playback path.
type SourceKind string

const (
	// SourceHLS is the live path: an HLS engine attached to the manifest.
	SourceHLS SourceKind = "hls"
	// SourceProgressive is the direct-file path for movies and episodes.
	SourceProgressive SourceKind = "progressive"
)

// progressiveMIME is declared for every progressive source regardless of
// the real container, so the player sniffs the format itself. This is what
// lets MKV files play where the decoder supports them.
const progressiveMIME = "video/mp4"

// Source is a resolved playable input.
type Source struct {
	Kind  SourceKind `json:"kind"`
	URL   string     `json:"url"`
	MIME  string     `json:"mime,omitempty"`
	Title string     `json:"title,omitempty"`
}

// LiveSource builds the HLS source for a live channel.
func LiveSource(url, title string) Source {
	return Source{Kind: SourceHLS, URL: url, Title: title}
}

// MovieSource builds the progressive source for a movie.
func MovieSource(url string, movie models.Movie) Source {
	return Source{Kind: SourceProgressive, URL: url, MIME: progressiveMIME, Title: movie.Name}
}

// EpisodeSource builds the progressive source for an episode.
func EpisodeSource(url, title string) Source {
	return Source{Kind: SourceProgressive, URL: url, MIME: progressiveMIME, Title: title}
}
