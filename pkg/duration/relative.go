package duration

import "time"

// FormatRelative formats a time relative to now: "in 12m", "2h ago".
func FormatRelative(t time.Time) string {
	return FormatRelativeFrom(t, time.Now())
}

// FormatRelativeFrom formats a time relative to the given anchor. Times are
// truncated to whole seconds so output stays readable.
func FormatRelativeFrom(t time.Time, anchor time.Time) string {
	diff := t.Sub(anchor).Truncate(time.Second)
	if diff == 0 {
		return "now"
	}
	if diff < 0 {
		return Format(-diff) + " ago"
	}
	return "in " + Format(diff)
}
