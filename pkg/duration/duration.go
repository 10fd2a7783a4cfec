// Package duration provides human-readable duration parsing and
// formatting. It extends time.ParseDuration with day, week, month, and
// year units and accepts spelled-out unit names ("30 minutes", "2 weeks").
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Day represents 24 hours.
	Day = 24 * time.Hour
	// Week represents 7 days.
	Week = 7 * Day
	// Month represents 30 days (approximate).
	Month = 30 * Day
	// Year represents 365 days (approximate).
	Year = 365 * Day
)

// extendedHours maps units above hours to their hour multiplier. Hours are
// the largest unit time.ParseDuration understands, so everything bigger is
// folded into hours before delegating.
var extendedHours = map[string]int64{
	"y": 365 * 24, "yr": 365 * 24, "yrs": 365 * 24, "year": 365 * 24, "years": 365 * 24,
	"mo": 30 * 24, "mos": 30 * 24, "month": 30 * 24, "months": 30 * 24,
	"w": 7 * 24, "wk": 7 * 24, "wks": 7 * 24, "week": 7 * 24, "weeks": 7 * 24,
	"d": 24, "day": 24, "days": 24,
}

// wordUnits rewrites spelled-out standard units to the short forms
// time.ParseDuration accepts.
var wordUnits = map[string]string{
	"hour": "h", "hours": "h", "hr": "h", "hrs": "h",
	"minute": "m", "minutes": "m", "min": "m", "mins": "m",
	"second": "s", "seconds": "s", "sec": "s", "secs": "s",
	"millisecond": "ms", "milliseconds": "ms", "millis": "ms",
	"microsecond": "us", "microseconds": "us", "micros": "us",
	"nanosecond": "ns", "nanoseconds": "ns", "nanos": "ns",
}

var (
	extendedPattern = regexp.MustCompile(`(?i)(\d+)\s*(years?|yrs?|y|months?|mos?|mo|weeks?|wks?|w|days?|d)`)
	wordPattern     = regexp.MustCompile(`(?i)(\d+)\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?|milliseconds?|millis?|microseconds?|micros?|nanoseconds?|nanos?)`)
)

// Parse parses a human-readable duration string. Units d/w/mo/y extend the
// standard set; whitespace between number and unit is optional, so "30d",
// "30 days", and "1w2d12h" all parse.
func Parse(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("duration: empty string")
	}
	s = strings.TrimSpace(s)

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	var extraHours int64
	remaining := extendedPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := extendedPattern.FindStringSubmatch(match)
		value, _ := strconv.ParseInt(parts[1], 10, 64)
		if mult, ok := extendedHours[strings.ToLower(parts[2])]; ok {
			extraHours += value * mult
		}
		return ""
	})

	remaining = wordPattern.ReplaceAllStringFunc(remaining, func(match string) string {
		parts := wordPattern.FindStringSubmatch(match)
		if short, ok := wordUnits[strings.ToLower(parts[2])]; ok {
			return parts[1] + short
		}
		return match
	})

	// time.ParseDuration rejects spaces between components.
	remaining = strings.Join(strings.Fields(remaining), "")

	combined := remaining
	if extraHours > 0 {
		combined = fmt.Sprintf("%dh%s", extraHours, remaining)
	}
	if combined == "" {
		combined = "0s"
	}

	d, err := time.ParseDuration(combined)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	if negative {
		d = -d
	}
	return d, nil
}

// MustParse is like Parse but panics on error. Use only for constants.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders a duration using the largest fitting units, omitting zero
// components: 90 minutes becomes "1h30m", 8 days becomes "1w1d".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	negative := d < 0
	if negative {
		d = -d
	}

	var b strings.Builder
	for _, step := range []struct {
		unit time.Duration
		name string
	}{
		{Year, "y"}, {Month, "mo"}, {Week, "w"}, {Day, "d"},
		{time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"},
		{time.Millisecond, "ms"}, {time.Microsecond, "µs"}, {time.Nanosecond, "ns"},
	} {
		if n := d / step.unit; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, step.name)
			d -= n * step.unit
		}
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
