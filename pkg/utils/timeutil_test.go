package utils

import (
	"testing"
	"time"
)

func TestFormatISO(t *testing.T) {
	ts := time.Date(2026, 3, 2, 14, 5, 0, 123, time.UTC)
	if got := FormatISO(ts); got != "2026-03-02T14:05:00Z" {
		t.Errorf("FormatISO = %q", got)
	}

	// Non-UTC input is converted.
	ist := time.FixedZone("IST", 5*60*60+30*60)
	ts = time.Date(2026, 3, 2, 19, 35, 0, 0, ist)
	if got := FormatISO(ts); got != "2026-03-02T14:05:00Z" {
		t.Errorf("FormatISO(IST) = %q", got)
	}
}

func TestNowUTC(t *testing.T) {
	now := NowUTC()
	if now.Location() != time.UTC {
		t.Errorf("NowUTC location = %v, want UTC", now.Location())
	}
	if now.Nanosecond() != 0 {
		t.Errorf("NowUTC should be truncated to seconds, got %d ns", now.Nanosecond())
	}
}

func TestWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"now", now, true},
		{"future", now.Add(time.Hour), true},
		{"9d23h", now.Add(-(9*Day + 23*time.Hour)), true},
		{"exactly 10d", now.Add(-10 * Day), true},
		{"10d1s", now.Add(-(10*Day + time.Second)), false},
		{"30d", now.Add(-30 * Day), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinWindow(tt.ts, now, 10); got != tt.want {
				t.Errorf("WithinWindow(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestParseFeedTime(t *testing.T) {
	want := time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)
	tests := []struct {
		input string
		ok    bool
	}{
		{"Mon, 02 Mar 2026 14:05:00 +0000", true},
		{"Mon, 02 Mar 2026 14:05:00 GMT", true},
		{"Mon, 2 Mar 2026 09:05:00 -0500", true},
		{"2026-03-02T14:05:00Z", true},
		{"2026-03-02 14:05:00", true},
		{"", false},
		{"yesterday", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseFeedTime(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseFeedTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Errorf("ParseFeedTime(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"weekend", time.Date(2026, 3, 7, 11, 0, 0, 0, ET), "CLOSED (Weekend)"},
		{"holiday", time.Date(2026, 12, 25, 11, 0, 0, 0, ET), "CLOSED (Christmas Day)"},
		{"overnight", time.Date(2026, 3, 4, 2, 0, 0, 0, ET), "CLOSED"},
		{"pre-market", time.Date(2026, 3, 4, 8, 0, 0, 0, ET), "PRE-MARKET"},
		{"open", time.Date(2026, 3, 4, 10, 0, 0, 0, ET), "OPEN"},
		{"after-hours", time.Date(2026, 3, 4, 17, 0, 0, 0, ET), "AFTER-HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketStatusAt(tt.ts); got != tt.want {
				t.Errorf("MarketStatusAt = %q, want %q", got, tt.want)
			}
		})
	}
}
