package datasource

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// RSSOptions tunes an RSSSource.
type RSSOptions struct {
	Client    *http.Client
	UserAgent string
	Limiter   *infra.RateLimiter // nil means unlimited
}

// RSSSource fetches ticker headlines from an RSS/Atom feed whose URL is a
// template containing "{symbol}".
type RSSSource struct {
	name     string
	template string
	limiter  *infra.RateLimiter
	parser   *gofeed.Parser
}

// NewRSSSource creates a feed source.
func NewRSSSource(name, urlTemplate string, opts RSSOptions) *RSSSource {
	p := gofeed.NewParser()
	p.RSSTranslator = &publisherTranslator{}
	if opts.Client != nil {
		p.Client = opts.Client
	}
	if opts.UserAgent != "" {
		p.UserAgent = opts.UserAgent
	}
	return &RSSSource{
		name:     name,
		template: urlTemplate,
		limiter:  opts.Limiter,
		parser:   p,
	}
}

// Name returns the source name.
func (s *RSSSource) Name() string { return s.name }

// URL returns the feed URL for symbol.
func (s *RSSSource) URL(symbol string) string { return ExpandURL(s.template, symbol) }

// Fetch parses the feed for symbol and returns its entries in feed order.
func (s *RSSSource) Fetch(ctx context.Context, symbol string) ([]models.RawHeadline, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := s.parser.ParseURLWithContext(s.URL(symbol), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", s.name, err)
	}

	out := make([]models.RawHeadline, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		out = append(out, rawFromItem(item, s.name))
	}
	return out, nil
}

// publisherKey is the gofeed Item.Custom key holding the RSS <source> title.
const publisherKey = "publisher"

// publisherTranslator keeps the per-item RSS <source> element, which names
// the original publisher on aggregator feeds such as Google News. The
// universal gofeed item drops it.
type publisherTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *publisherTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	rf, ok := feed.(*rss.Feed)
	if !ok || len(rf.Items) != len(out.Items) {
		return out, nil
	}
	for i, it := range rf.Items {
		if it.Source == nil {
			continue
		}
		name := strings.TrimSpace(it.Source.Title)
		if name == "" {
			continue
		}
		custom := maps.Clone(out.Items[i].Custom)
		if custom == nil {
			custom = make(map[string]string, 1)
		}
		custom[publisherKey] = name
		out.Items[i].Custom = custom
	}
	return out, nil
}

// rawFromItem converts a gofeed item, keeping both the parsed timestamps and
// the raw strings so the normalizer can retry parsing. The item's publisher
// wins over the feed name when the feed carries one.
func rawFromItem(item *gofeed.Item, feedName string) models.RawHeadline {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	source := feedName
	if pub := item.Custom[publisherKey]; pub != "" {
		source = pub
	}
	return models.RawHeadline{
		Title:         item.Title,
		Link:          item.Link,
		Source:        source,
		Summary:       cleanHTML(summary),
		Published:     item.PublishedParsed,
		Updated:       item.UpdatedParsed,
		PublishedText: item.Published,
		UpdatedText:   item.Updated,
	}
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
