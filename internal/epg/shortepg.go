package epg

import (
	"time"

	"github.com/tvdeck/tvdeck/pkg/xtream"
)

// ShortProgramme is a per-stream guide entry from get_simple_data_table.
type ShortProgramme struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartMs     int64  `json:"startEpochMs"`
	StopMs      int64  `json:"stopEpochMs"`
	IsCurrent   bool   `json:"isCurrent"`
}

// ProjectListings converts provider listings into programmes. Titles and
// descriptions may arrive base64-encoded and are decoded here. IsCurrent is
// set on the entry whose interval contains now; the provider's now_playing
// flag breaks ties between overlapping intervals.
func ProjectListings(listings []xtream.EPGListing, now time.Time) []ShortProgramme {
	out := make([]ShortProgramme, 0, len(listings))
	currentIdx := -1

	for _, listing := range listings {
		p := ShortProgramme{
			Title:       xtream.DecodeEPGText(listing.Title),
			Description: xtream.DecodeEPGText(listing.Description),
			StartMs:     listing.StartTime().UnixMilli(),
			StopMs:      listing.EndTime().UnixMilli(),
		}

		nowMs := now.UnixMilli()
		if nowMs >= p.StartMs && nowMs < p.StopMs {
			if currentIdx == -1 || listing.NowPlaying.Int() == 1 {
				currentIdx = len(out)
			}
		}
		out = append(out, p)
	}

	if currentIdx >= 0 {
		out[currentIdx].IsCurrent = true
	}
	return out
}

// CurrentProgramme returns the entry covering now, if any.
func CurrentProgramme(listings []xtream.EPGListing, now time.Time) (ShortProgramme, bool) {
	for _, p := range ProjectListings(listings, now) {
		if p.IsCurrent {
			return p, true
		}
	}
	return ShortProgramme{}, false
}
