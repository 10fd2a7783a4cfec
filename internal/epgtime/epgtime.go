// Package epgtime parses XMLTV timestamps and renders guide times in a
// user-chosen display timezone.
package epgtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tvdeck/tvdeck/internal/models"
)

// timestampPattern matches the XMLTV timestamp grammar
// "YYYYMMDDhhmmss ±ZZZZ" with the offset optional.
var timestampPattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})(?:\s*([+-])(\d{2})(\d{2}))?$`)

// Parse converts an XMLTV timestamp to an absolute instant. The wall-clock
// fields are interpreted at the stated offset; a missing offset means UTC.
// Input that does not match the grammar fails with models.ErrFormat.
func Parse(s string) (time.Time, error) {
	m := timestampPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", models.ErrFormat, s)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: timestamp %q out of range", models.ErrFormat, s)
	}

	loc := time.UTC
	if m[7] != "" {
		offsetHours, _ := strconv.Atoi(m[8])
		offsetMinutes, _ := strconv.Atoi(m[9])
		offset := (offsetHours*60 + offsetMinutes) * 60
		if m[7] == "-" {
			offset = -offset
		}
		loc = time.FixedZone(m[7]+m[8]+m[9], offset)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
}

// ParseMs is Parse returning epoch milliseconds.
func ParseMs(s string) (int64, error) {
	t, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return EpochMs(t), nil
}

// EpochMs returns t as Unix epoch milliseconds.
func EpochMs(t time.Time) int64 {
	return t.UnixMilli()
}

// Format renders t back into the XMLTV grammar with an explicit offset.
func Format(t time.Time) string {
	return t.Format("20060102150405 -0700")
}

// Formatter renders instants in a display timezone. The zone name is a user
// preference ("epg_timezone"); the zero value renders in UTC.
type Formatter struct {
	loc *time.Location
}

// NewFormatter creates a Formatter for the named IANA timezone.
// An empty or unknown name falls back to UTC.
func NewFormatter(zone string) *Formatter {
	if zone == "" {
		return &Formatter{loc: time.UTC}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return &Formatter{loc: time.UTC}
	}
	return &Formatter{loc: loc}
}

// Location returns the display location.
func (f *Formatter) Location() *time.Location {
	if f == nil || f.loc == nil {
		return time.UTC
	}
	return f.loc
}

// ShortTime renders the time-of-day, e.g. "09:30".
func (f *Formatter) ShortTime(ms int64) string {
	return time.UnixMilli(ms).In(f.Location()).Format("15:04")
}

// ShortDate renders the month and day, e.g. "Jan 2".
func (f *Formatter) ShortDate(ms int64) string {
	return time.UnixMilli(ms).In(f.Location()).Format("Jan 2")
}
