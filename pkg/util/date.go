package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, a plain date and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// AlignRange rounds the time range to bar boundaries for a candle resolution.
// Minute resolutions are given in minutes ("1", "5", "60"); "D" and "W" align to the UTC day.
func AlignRange(from, to time.Time, resolution string) (time.Time, time.Time) {
	var d time.Duration
	switch resolution {
	case "D", "W":
		d = 24 * time.Hour
	default:
		n, err := strconv.Atoi(resolution)
		if err != nil || n <= 0 {
			n = 1
		}
		d = time.Duration(n) * time.Minute
	}
	return from.UTC().Truncate(d), to.UTC().Truncate(d)
}
