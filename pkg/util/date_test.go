package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-03-09")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Day() != 9 || got.Month() != time.March {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	if got := ParseTimeDefault("not-a-time", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignRangeHour(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC)
	f, e := AlignRange(from, to, "hour")
	if f.Hour() != 10 || f.Minute() != 0 {
		t.Fatalf("unexpected from %v", f)
	}
	if e.Hour() != 13 || e.Minute() != 0 {
		t.Fatalf("unexpected to %v", e)
	}
}

func TestMinutesSince(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := MinutesSince(now.Add(-90*time.Minute), now); got != 90 {
		t.Fatalf("expected 90, got %v", got)
	}
	if got := MinutesSince(now.Add(time.Minute), now); got != 0 {
		t.Fatalf("future timestamp should give 0, got %v", got)
	}
}

func TestIsWeekend(t *testing.T) {
	sat := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	mon := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	if !IsWeekend(sat) || IsWeekend(mon) {
		t.Fatalf("weekend detection wrong")
	}
}
