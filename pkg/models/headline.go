// Package models defines the core data structures used throughout tickerpulse.
package models

import "time"

// RawHeadline is a feed entry as delivered by a headline source, before any
// cleaning. It only lives for the duration of one request.
type RawHeadline struct {
	Title   string
	Link    string
	Source  string
	Summary string

	// Parsed timestamps, when the transport could parse them.
	Published *time.Time
	Updated   *time.Time

	// Unparsed timestamp strings as they appeared in the feed.
	PublishedText string
	UpdatedText   string
}

// Headline is a cleaned feed entry that passed the recency window.
type Headline struct {
	Title       string    `json:"title"`
	Link        string    `json:"link,omitempty"`
	Source      string    `json:"source,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published"` // UTC, second precision
}

// AnalyzedHeadline is a Headline together with its classified sentiment.
type AnalyzedHeadline struct {
	Headline   string    `json:"headline"`
	Sentiment  Label     `json:"sentiment"`
	Confidence float64   `json:"confidence"` // 0.0 to 1.0
	Link       string    `json:"link,omitempty"`
	Published  time.Time `json:"published"`
	Source     string    `json:"source,omitempty"`
	Summary    string    `json:"summary,omitempty"`
}

// Analyze attaches a classifier result to the headline.
func (h Headline) Analyze(r SentimentResult) AnalyzedHeadline {
	return AnalyzedHeadline{
		Headline:   h.Title,
		Sentiment:  r.Label,
		Confidence: r.Score,
		Link:       h.Link,
		Published:  h.PublishedAt,
		Source:     h.Source,
		Summary:    h.Summary,
	}
}
