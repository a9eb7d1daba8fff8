// Package headlines turns raw feed entries from several sources into one
// cleaned, recent, de-duplicated and capped list of headlines.
package headlines

import (
	"strings"
	"time"

	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// DefaultWindowDays is the recency window applied by Normalize.
const DefaultWindowDays = 10

// Rejection tells why a raw entry was not turned into a headline.
type Rejection int

const (
	Accepted Rejection = iota
	RejectEmptyTitle
	RejectStale
)

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectEmptyTitle:
		return "empty title"
	case RejectStale:
		return "outside recency window"
	default:
		return "unknown"
	}
}

// CleanTitle collapses every run of whitespace to one space and trims the
// result.
func CleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize cleans raw using the default 10-day window.
func Normalize(raw models.RawHeadline, now time.Time) (models.Headline, Rejection) {
	return NormalizeWithin(raw, now, DefaultWindowDays)
}

// NormalizeWithin cleans raw and applies a recency window of windowDays
// ending at now. It never fails: a timestamp that cannot be resolved is
// replaced by now.
func NormalizeWithin(raw models.RawHeadline, now time.Time, windowDays int) (models.Headline, Rejection) {
	title := CleanTitle(raw.Title)
	if title == "" {
		return models.Headline{}, RejectEmptyTitle
	}

	published := resolveTime(raw, now)
	if !utils.WithinWindow(published, now, windowDays) {
		return models.Headline{}, RejectStale
	}

	return models.Headline{
		Title:       title,
		Link:        strings.TrimSpace(raw.Link),
		Source:      CleanTitle(raw.Source),
		Summary:     CleanTitle(raw.Summary),
		PublishedAt: published.UTC().Truncate(time.Second),
	}, Accepted
}

// resolveTime picks the first usable timestamp: published, then updated,
// then now.
func resolveTime(raw models.RawHeadline, now time.Time) time.Time {
	if raw.Published != nil && !raw.Published.IsZero() {
		return *raw.Published
	}
	if t, ok := utils.ParseFeedTime(raw.PublishedText); ok {
		return t
	}
	if raw.Updated != nil && !raw.Updated.IsZero() {
		return *raw.Updated
	}
	if t, ok := utils.ParseFeedTime(raw.UpdatedText); ok {
		return t
	}
	return now
}
