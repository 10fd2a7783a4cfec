// Package models defines the domain entities shared across tvdeck components.
package models

import (
	"strings"
	"time"
)

// ContentKind identifies which of the three catalogs an entity belongs to.
type ContentKind string

const (
	// KindLive is the live-channel catalog.
	KindLive ContentKind = "live"
	// KindVOD is the movie catalog.
	KindVOD ContentKind = "vod"
	// KindSeries is the series catalog.
	KindSeries ContentKind = "series"
)

// Valid reports whether the kind is one of the three known catalogs.
func (k ContentKind) Valid() bool {
	return k == KindLive || k == KindVOD || k == KindSeries
}

// Credentials is the provider identity triple. It is created at login,
// persisted to the preferences surface, and cleared on logout.
type Credentials struct {
	ServerBaseURL string `json:"serverBaseUrl"`
	Username      string `json:"username"`
	Password      string `json:"password"`
}

// IsComplete reports whether all three fields are present.
func (c Credentials) IsComplete() bool {
	return c.ServerBaseURL != "" && c.Username != "" && c.Password != ""
}

// Equal reports whether two credential triples denote the same identity.
func (c Credentials) Equal(other Credentials) bool {
	return c.ServerBaseURL == other.ServerBaseURL &&
		c.Username == other.Username &&
		c.Password == other.Password
}

// categoryGroupSeparator splits a raw category name into a group prefix and
// a display name, e.g. "UK | Sports" -> prefix "UK", display "Sports".
const categoryGroupSeparator = "|"

// Category is a catalog category. RawName is the provider's name verbatim;
// Prefix and DisplayName are derived by splitting on a single "|".
type Category struct {
	ID          string      `json:"id"`
	RawName     string      `json:"rawName"`
	DisplayName string      `json:"displayName"`
	Prefix      string      `json:"prefix,omitempty"`
	StreamCount *int        `json:"streamCount,omitempty"`
	Kind        ContentKind `json:"kind"`
}

// NewCategory builds a Category from a provider id/name pair, deriving the
// group prefix and display name.
func NewCategory(id, rawName string, kind ContentKind) Category {
	c := Category{ID: id, RawName: rawName, DisplayName: rawName, Kind: kind}
	if before, after, ok := strings.Cut(rawName, categoryGroupSeparator); ok {
		c.Prefix = strings.TrimSpace(before)
		c.DisplayName = strings.TrimSpace(after)
	}
	return c
}

// markerPrefix marks catalog entries that are visual separators rather than
// playable channels.
const markerPrefix = "###"

// LiveStream is a live channel.
type LiveStream struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IconURL           string `json:"iconUrl,omitempty"`
	EPGChannelID      string `json:"epgChannelId,omitempty"`
	CategoryID        string `json:"categoryId"`
	TVArchive         bool   `json:"tvArchive,omitempty"`
	TVArchiveDuration int    `json:"tvArchiveDuration,omitempty"`
}

// IsMarker reports whether the stream is a "###" separator entry.
func (s LiveStream) IsMarker() bool {
	return strings.HasPrefix(s.Name, markerPrefix)
}

// Movie is a VOD item.
type Movie struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	CoverURL           string  `json:"coverUrl,omitempty"`
	Rating             float64 `json:"rating,omitempty"`
	Year               string  `json:"year,omitempty"`
	Plot               string  `json:"plot,omitempty"`
	ContainerExtension string  `json:"containerExtension"`
	CategoryID         string  `json:"categoryId"`
}

// Series is a multi-season show. Seasons are populated by get_series_info
// and are absent on the listing shape.
type Series struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CoverURL   string   `json:"coverUrl,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	Year       string   `json:"year,omitempty"`
	Plot       string   `json:"plot,omitempty"`
	CategoryID string   `json:"categoryId"`
	Seasons    []Season `json:"seasons,omitempty"`
}

// Season groups the episodes of one season, ordered by episode number.
type Season struct {
	Number   int       `json:"number"`
	Name     string    `json:"name,omitempty"`
	Episodes []Episode `json:"episodes"`
}

// Episode is a single playable episode.
type Episode struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Season             int        `json:"season"`
	EpisodeNum         int        `json:"episodeNum"`
	ContainerExtension string     `json:"containerExtension"`
	Plot               string     `json:"plot,omitempty"`
	DurationSecs       int        `json:"durationSecs,omitempty"`
	Audio              AudioTrack `json:"audio,omitempty"`
}

// AudioTrack carries the audio metadata the provider attaches to episodes.
type AudioTrack struct {
	Codec      string `json:"codec,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	SampleRate string `json:"sampleRate,omitempty"`
}

// EPGChannel is a guide channel joined to a live stream. Only channels
// matchable via epg_channel_id survive projection; orphans are discarded.
type EPGChannel struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IconURL     string `json:"iconUrl,omitempty"`
	StreamID    string `json:"streamId"`
	StreamName  string `json:"streamName"`
	CategoryID  string `json:"categoryId"`
}

// Programme is one guide entry. Within a channel, programmes are kept in
// non-decreasing StartMs order.
type Programme struct {
	ChannelID   string `json:"channelId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartMs     int64  `json:"startEpochMs"`
	StopMs      int64  `json:"stopEpochMs"`
	RawStart    string `json:"rawStart,omitempty"`
	RawStop     string `json:"rawStop,omitempty"`
}

// Contains reports whether the instant falls inside the programme interval.
func (p Programme) Contains(t time.Time) bool {
	ms := t.UnixMilli()
	return ms >= p.StartMs && ms < p.StopMs
}

// Guide is the persisted product of one EPG ingestion run, stored as the
// single record under epg/epg_data.
type Guide struct {
	Channels               []EPGChannel           `json:"channels"`
	Programmes             map[string][]Programme `json:"programmes"`
	LastUpdated            time.Time              `json:"lastUpdated"`
	LatestProgrammeEndTime int64                  `json:"latestProgrammeEndTime"`
}

// ChannelByID returns the guide channel with the given id, if retained.
func (g *Guide) ChannelByID(id string) (EPGChannel, bool) {
	for _, ch := range g.Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return EPGChannel{}, false
}

// NowAndNext returns the programme covering now and its successor for a
// channel. Either result may be zero when the guide has no coverage.
func (g *Guide) NowAndNext(channelID string, now time.Time) (current, next Programme, ok bool) {
	progs := g.Programmes[channelID]
	for i, p := range progs {
		if p.Contains(now) {
			current = p
			if i+1 < len(progs) {
				next = progs[i+1]
			}
			return current, next, true
		}
	}
	return Programme{}, Programme{}, false
}
