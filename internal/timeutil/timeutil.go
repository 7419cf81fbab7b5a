package timeutil

import (
	"time"
)

var defaultLocation = time.UTC

// DefaultWindow is used when a time range is empty or not recognized
const DefaultWindow = "7d"

var windows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// ResolveLocation returns the location for timezone with UTC fallback.
// The bool reports whether the fallback was used.
func ResolveLocation(timezone string) (*time.Location, bool) {
	if timezone == "" {
		return defaultLocation, true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return defaultLocation, true
	}
	return loc, false
}

// ParseWindow maps a time range label (24h, 7d, 30d, 90d) to its duration.
// Unknown labels fall back to DefaultWindow; the returned label is the one applied.
func ParseWindow(label string) (string, time.Duration) {
	if d, ok := windows[label]; ok {
		return label, d
	}
	return DefaultWindow, windows[DefaultWindow]
}

// DayKey is the calendar date of t in loc, formatted as YYYY-MM-DD
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = defaultLocation
	}
	return t.In(loc).Format("2006-01-02")
}

// Midpoint splits the window [start, end) in two equal halves
func Midpoint(start, end time.Time) time.Time {
	return start.Add(end.Sub(start) / 2)
}
