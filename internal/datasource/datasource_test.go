package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/config"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test feed</title>
  <item>
    <title>Apple surges on record iPhone sales</title>
    <link>https://example.com/a</link>
    <description>&lt;p&gt;Shares &lt;b&gt;jumped&lt;/b&gt; today&lt;/p&gt;</description>
    <pubDate>Mon, 05 Jan 2026 14:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Apple faces antitrust inquiry</title>
    <link>https://example.com/b</link>
    <pubDate>not a date</pubDate>
  </item>
</channel>
</rss>`

func TestExpandURL(t *testing.T) {
	tests := []struct {
		tmpl, symbol, want string
	}{
		{"https://x/rss?s={symbol}", "AAPL", "https://x/rss?s=AAPL"},
		{"https://x/rss?s={symbol}", "^GSPC", "https://x/rss?s=%5EGSPC"},
		{"https://x/{symbol}/{symbol}", "MSFT", "https://x/MSFT/MSFT"},
	}
	for _, tc := range tests {
		if got := ExpandURL(tc.tmpl, tc.symbol); got != tc.want {
			t.Errorf("ExpandURL(%q, %q) = %q, want %q", tc.tmpl, tc.symbol, got, tc.want)
		}
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Shares <b>jumped</b>\n today</p>", "Shares jumped today"},
	}
	for _, tc := range tests {
		if got := cleanHTML(tc.in); got != tc.want {
			t.Errorf("cleanHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRSSSourceFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("s")
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	src := NewRSSSource("Test", srv.URL+"/rss?s={symbol}", RSSOptions{Client: srv.Client()})
	items, err := src.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "AAPL" {
		t.Errorf("query symbol: got %q", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}

	first := items[0]
	if first.Title != "Apple surges on record iPhone sales" {
		t.Errorf("title: got %q", first.Title)
	}
	if first.Source != "Test" {
		t.Errorf("source: got %q", first.Source)
	}
	if first.Summary != "Shares jumped today" {
		t.Errorf("summary: got %q", first.Summary)
	}
	if first.Published == nil || !first.Published.Equal(time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("published: got %v", first.Published)
	}

	second := items[1]
	if second.Published != nil {
		t.Errorf("unparsable date should leave Published nil, got %v", second.Published)
	}
	if second.PublishedText != "not a date" {
		t.Errorf("PublishedText: got %q", second.PublishedText)
	}
}

const publisherRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Aggregated</title>
  <item>
    <title>Apple beats estimates - Reuters</title>
    <link>https://news.example.com/1</link>
    <pubDate>Mon, 05 Jan 2026 14:00:00 +0000</pubDate>
    <source url="https://www.reuters.com">Reuters</source>
  </item>
  <item>
    <title>Apple supplier outlook</title>
    <link>https://news.example.com/2</link>
    <pubDate>Mon, 05 Jan 2026 15:00:00 +0000</pubDate>
    <source url="https://blank.example.com">  </source>
  </item>
  <item>
    <title>Apple event date set</title>
    <link>https://news.example.com/3</link>
    <pubDate>Mon, 05 Jan 2026 16:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

func TestRSSSourceFetchKeepsPublisher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, publisherRSS)
	}))
	defer srv.Close()

	src := NewRSSSource("Google News", srv.URL+"?q={symbol}", RSSOptions{Client: srv.Client()})
	items, err := src.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items: got %d, want 3", len(items))
	}
	want := []string{"Reuters", "Google News", "Google News"}
	for i, w := range want {
		if items[i].Source != w {
			t.Errorf("item %d source: got %q, want %q", i, items[i].Source, w)
		}
	}
}

func TestRSSSourceFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewRSSSource("Broken", srv.URL+"?s={symbol}", RSSOptions{Client: srv.Client()})
	if _, err := src.Fetch(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error from failing feed")
	}
}

func TestFinnhubToRaw(t *testing.T) {
	headline, link, publisher := "Apple beats estimates", "https://example.com/f", "Reuters"
	ts := int64(1767621600) // 2026-01-05T14:00:00Z
	items := []finnhub.CompanyNews{
		{Headline: &headline, Url: &link, Source: &publisher, Datetime: &ts},
		{},
	}

	raw := finnhubToRaw(items)
	if len(raw) != 2 {
		t.Fatalf("got %d items, want 2", len(raw))
	}
	if raw[0].Title != headline || raw[0].Link != link || raw[0].Source != publisher {
		t.Errorf("first: got %+v", raw[0])
	}
	if raw[0].Published == nil || raw[0].Published.Unix() != ts {
		t.Errorf("published: got %v", raw[0].Published)
	}
	if raw[1].Source != FinnhubName || raw[1].Published != nil {
		t.Errorf("empty item: got %+v", raw[1])
	}
}

func TestNewFinnhubSourceRequiresKey(t *testing.T) {
	if _, err := NewFinnhubSource("", 10); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
}

func TestNewHeadlineSources(t *testing.T) {
	cfg := config.FeedsConfig{
		TimeoutSec:  5,
		RecencyDays: 10,
		Sources: []config.FeedSourceConfig{
			{Name: "Yahoo Finance", URL: config.YahooHeadlineURL},
			{Name: "Google News", URL: config.GoogleNewsURL},
		},
	}
	sources := NewHeadlineSources(cfg, zap.NewNop())
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Name() != "Yahoo Finance" || sources[1].Name() != "Google News" {
		t.Errorf("order: got %s, %s", sources[0].Name(), sources[1].Name())
	}

	cfg.FinnhubKey = "test-key"
	sources = NewHeadlineSources(cfg, zap.NewNop())
	if len(sources) != 3 || sources[2].Name() != FinnhubName {
		t.Fatalf("finnhub should be appended last, got %d sources", len(sources))
	}
}
