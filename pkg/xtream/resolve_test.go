package xtream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tvdeck/tvdeck/internal/models"
)

func TestResolveLiveStreamURL_BareString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "get_simple_data_table" {
			// Only the first probe should be needed.
			t.Errorf("unexpected action: %s", r.URL.Query().Get("action"))
		}
		w.Write([]byte(`"http://cdn.example.com/token/1001.m3u8"`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "user", "pass")
	url, err := client.ResolveLiveStreamURL(context.Background(), "1001")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "http://cdn.example.com/token/1001.m3u8" {
		t.Errorf("unexpected URL: %q", url)
	}
}

func TestResolveLiveStreamURL_ObjectField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "get_simple_data_table":
			w.Write([]byte(`{"epg_listings":[]}`))
		case "get_stream_url":
			w.Write([]byte(`{"stream_url":"http://cdn.example.com/s/1001.m3u8"}`))
		default:
			t.Errorf("probe should have stopped at get_stream_url, saw %s", r.URL.Query().Get("action"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "user", "pass")
	url, err := client.ResolveLiveStreamURL(context.Background(), "1001")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "http://cdn.example.com/s/1001.m3u8" {
		t.Errorf("unexpected URL: %q", url)
	}
}

func TestResolveLiveStreamURL_ArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "get_simple_data_table", "get_stream_url":
			w.WriteHeader(http.StatusNotFound)
		case "get_stream_info":
			w.Write([]byte(`[{"title":"irrelevant"},{"link":"http://cdn.example.com/l/1001.ts"}]`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "user", "pass")
	url, err := client.ResolveLiveStreamURL(context.Background(), "1001")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "http://cdn.example.com/l/1001.ts" {
		t.Errorf("unexpected URL: %q", url)
	}
}

func TestResolveLiveStreamURL_CanonicalFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "user", "pass")
	url, err := client.ResolveLiveStreamURL(context.Background(), "1001")

	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	want := server.URL + "/live/user/pass/1001.m3u8"
	if url != want {
		t.Errorf("got %q, want %q", url, want)
	}
}

func TestResolveLiveStreamURL_TotalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// No username means the canonical fallback cannot be built either.
	client := NewClient(server.URL, "", "")
	_, err := client.ResolveLiveStreamURL(context.Background(), "1001")

	if !errors.Is(err, models.ErrStreamResolution) {
		t.Errorf("expected ErrStreamResolution, got %v", err)
	}
}

func TestResolveLiveStreamURL_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "user", "pass")
	_, err := client.ResolveLiveStreamURL(ctx, "1001")

	if !models.IsCancelled(err) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestExtractStreamURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare http string", `"http://example.com/x"`, "http://example.com/x"},
		{"bare m3u8 path", `"/hls/1001.m3u8"`, "/hls/1001.m3u8"},
		{"plain string is not a URL", `"Not Found"`, ""},
		{"url field", `{"url":"http://example.com/a"}`, "http://example.com/a"},
		{"field priority", `{"playlist_url":"http://example.com/b","url":"http://example.com/a"}`, "http://example.com/a"},
		{"empty object", `{}`, ""},
		{"null", `null`, ""},
		{"garbage", `<html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractStreamURL([]byte(tt.raw)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
