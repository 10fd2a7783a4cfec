package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tvdeck/tvdeck/internal/models"
)

// urlFieldNames lists the JSON fields, in priority order, that providers
// have been observed to return stream URLs under.
var urlFieldNames = []string{"url", "stream_url", "link", "playlist_url", "m3u8_url"}

// probeActions lists the API actions tried, in order, when resolving a
// live stream URL. Providers differ in which of these return anything
// useful, so each one is tried and its response scanned.
var probeActions = []string{
	actionGetSimpleDataTable,
	actionGetStreamURL,
	actionGetStreamInfo,
}

// ResolveLiveStreamURL determines the playable URL for a live stream.
//
// The canonical /live/<user>/<pass>/<id>.m3u8 form works on most panels,
// but some only hand out tokenised URLs through the API. Each probe action
// is tried in order and its JSON response scanned for something that looks
// like a URL; the canonical form is the fallback when every probe comes up
// empty. The returned URL is always non-empty. The error is non-nil only
// when the context was cancelled or every avenue, including the fallback,
// failed to produce a URL.
func (c *Client) ResolveLiveStreamURL(ctx context.Context, streamID string) (string, error) {
	log := slog.Default().With("component", "xtream", "stream_id", streamID)

	for _, action := range probeActions {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		raw, err := c.doRaw(ctx, c.apiURL(action, map[string]string{paramStreamID: streamID}))
		if err != nil {
			if models.IsCancelled(err) {
				return "", err
			}
			log.Debug("stream URL probe failed", "action", action, "error", err)
			continue
		}

		if url := extractStreamURL(raw); url != "" {
			log.Debug("stream URL resolved via probe", "action", action)
			return url, nil
		}
	}

	if c.BaseURL != "" && c.Username != "" && c.Password != "" && streamID != "" {
		return c.LiveStreamURL(streamID, ""), nil
	}

	return "", fmt.Errorf("resolving stream %s: %w", streamID, models.ErrStreamResolution)
}

// extractStreamURL scans a provider response for a stream URL. The payload
// may be a bare JSON string, an object, or an array of objects.
func extractStreamURL(raw []byte) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if looksLikeStreamURL(s) {
			return s
		}
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return urlFromObject(obj)
	}

	var arr []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			if url := urlFromObject(item); url != "" {
				return url
			}
		}
	}

	return ""
}

func urlFromObject(obj map[string]json.RawMessage) string {
	for _, field := range urlFieldNames {
		rawField, ok := obj[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(rawField, &s); err != nil {
			continue
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func looksLikeStreamURL(s string) bool {
	return strings.Contains(s, "http") || strings.Contains(s, "m3u8")
}
