package util

import (
	"strconv"
	"time"
)

// ParseTime accepts RFC3339, RFC3339Nano, a plain date or unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignRange widens [from, to) to whole buckets: "hour", "day" or minutes otherwise.
func AlignRange(from, to time.Time, bucket string) (time.Time, time.Time) {
	var d time.Duration
	switch bucket {
	case "hour":
		d = time.Hour
	case "day":
		d = 24 * time.Hour
	default:
		d = time.Minute
	}
	from = from.Truncate(d)
	if t := to.Truncate(d); !t.Equal(to) {
		to = t.Add(d)
	}
	return from, to
}

// MinutesSince returns the elapsed minutes between then and now, never negative.
func MinutesSince(then, now time.Time) float64 {
	if then.IsZero() || now.Before(then) {
		return 0
	}
	return now.Sub(then).Minutes()
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
