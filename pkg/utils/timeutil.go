package utils

import (
	"strings"
	"time"
)

// ET is the US Eastern time zone used for NYSE/Nasdaq session hours.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST if the tz database is not available
		ET = time.FixedZone("EST", -5*60*60)
	}
}

// Day is a calendar day as used by the recency window.
const Day = 24 * time.Hour

// NowUTC returns the current time in UTC truncated to whole seconds.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FormatISO formats t as ISO-8601 UTC with a trailing "Z",
// e.g. "2026-03-02T14:05:00Z".
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// WindowStart returns the earliest instant still inside a lookback window of
// the given number of days ending at now.
func WindowStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * Day)
}

// WithinWindow reports whether t is not earlier than WindowStart(now, days).
// The boundary instant itself is inside the window.
func WithinWindow(t, now time.Time, days int) bool {
	return !t.Before(WindowStart(now, days))
}

// feedTimeLayouts are tried in order by ParseFeedTime.
var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339Nano,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFeedTime parses a timestamp string as found in RSS/Atom feeds.
// Layouts without a zone are interpreted as UTC.
func ParseFeedTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// US market holidays for 2026 (NYSE calendar, update annually).
var nyseHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// IsTradingHoliday checks if the given date is a US exchange holiday.
func IsTradingHoliday(t time.Time) bool {
	_, ok := nyseHolidays2026[t.In(ET).Format("2006-01-02")]
	return ok
}

// MarketStatusAt returns the US equity session status at t.
func MarketStatusAt(t time.Time) string {
	t = t.In(ET)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if holiday, ok := nyseHolidays2026[t.Format("2006-01-02")]; ok {
		return "CLOSED (" + holiday + ")"
	}

	preOpen := time.Date(t.Year(), t.Month(), t.Day(), 4, 0, 0, 0, ET)
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, ET)
	close := time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, ET)

	switch {
	case t.Before(preOpen):
		return "CLOSED"
	case t.Before(open):
		return "PRE-MARKET"
	case t.Before(close):
		return "OPEN"
	default:
		return "AFTER-HOURS"
	}
}

// MarketStatus returns the current US equity session status.
func MarketStatus() string {
	return MarketStatusAt(time.Now())
}
