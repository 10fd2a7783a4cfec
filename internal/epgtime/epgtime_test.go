package epgtime

import (
	"errors"
	"testing"
	"time"

	"github.com/tvdeck/tvdeck/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "utc offset",
			in:   "20260102090000 +0000",
			want: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "positive offset",
			in:   "20260102090000 +0200",
			want: time.Date(2026, 1, 2, 7, 0, 0, 0, time.UTC),
		},
		{
			name: "negative offset",
			in:   "20260102090000 -0500",
			want: time.Date(2026, 1, 2, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "no offset defaults to UTC",
			in:   "20260102090000",
			want: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace",
			in:   "  20260102090000 +0000  ",
			want: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		},
		{name: "empty", in: "", wantErr: true},
		{name: "too short", in: "2026010209", wantErr: true},
		{name: "letters", in: "2026010209000a +0000", wantErr: true},
		{name: "month out of range", in: "20261302090000 +0000", wantErr: true},
		{name: "hour out of range", in: "20260102250000 +0000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, models.ErrFormat) {
					t.Fatalf("expected ErrFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"20260102090000 +0000",
		"20260102090000 +0530",
		"20261231235959 -0800",
	}
	for _, in := range inputs {
		parsed, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		again, err := Parse(Format(parsed))
		if err != nil {
			t.Fatalf("re-Parse(Format(%q)): %v", in, err)
		}
		if !again.Equal(parsed) {
			t.Errorf("round trip of %q changed instant: %v vs %v", in, parsed, again)
		}
	}
}

func TestParseMs(t *testing.T) {
	ms, err := ParseMs("20260102090000 +0000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC).UnixMilli()
	if ms != want {
		t.Errorf("got %d, want %d", ms, want)
	}
}

func TestFormatter(t *testing.T) {
	ms := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC).UnixMilli()

	utc := NewFormatter("")
	if got := utc.ShortTime(ms); got != "09:30" {
		t.Errorf("ShortTime = %q, want 09:30", got)
	}
	if got := utc.ShortDate(ms); got != "Jan 2" {
		t.Errorf("ShortDate = %q, want Jan 2", got)
	}

	// Unknown zone names fall back to UTC rather than failing.
	bogus := NewFormatter("Not/AZone")
	if got := bogus.ShortTime(ms); got != "09:30" {
		t.Errorf("fallback ShortTime = %q, want 09:30", got)
	}

	ny := NewFormatter("America/New_York")
	if got := ny.ShortTime(ms); got != "04:30" {
		t.Errorf("New York ShortTime = %q, want 04:30", got)
	}
}
