package xtream

import (
	"encoding/json"
	"testing"
)

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int64
	}{
		{"number", `42`, 42},
		{"string", `"42"`, 42},
		{"empty string", `""`, 0},
		{"garbage string", `"abc"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt
			if err := json.Unmarshal([]byte(tt.json), &f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Int() != tt.want {
				t.Errorf("got %d, want %d", f.Int(), tt.want)
			}
		})
	}
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var f FlexString
	if err := json.Unmarshal([]byte(`123`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.String() != "123" {
		t.Errorf("expected '123', got %q", f.String())
	}

	if err := json.Unmarshal([]byte(`"abc"`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.String() != "abc" {
		t.Errorf("expected 'abc', got %q", f.String())
	}
}

func TestDecodeEPGText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"base64", "TW9ybmluZyBOZXdz", "Morning News"},
		{"plain with spaces", "Morning News", "Morning News"},
		{"empty", "", ""},
		{"not multiple of four", "abc", "abc"},
		// Decodes as base64 but to non-UTF-8 bytes.
		{"uppercase hexish", "TESTTEST", "TESTTEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeEPGText(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEPGListing_Times(t *testing.T) {
	l := EPGListing{
		Start:          "2026-01-02 09:00:00",
		End:            "2026-01-02 10:00:00",
		StartTimestamp: 0,
		StopTimestamp:  0,
	}
	start, end := l.StartTime(), l.EndTime()
	if start.IsZero() || end.IsZero() {
		t.Fatal("expected parsed fallback times")
	}
	if !end.After(start) {
		t.Errorf("end %v not after start %v", end, start)
	}

	// Epoch timestamps take priority over the formatted strings.
	l.StartTimestamp = 1000
	if l.StartTime().Unix() != 1000 {
		t.Errorf("expected timestamp priority, got %v", l.StartTime())
	}
}
