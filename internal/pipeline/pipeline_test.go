package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seenimoa/tickerpulse/internal/analysis/market"
	"github.com/seenimoa/tickerpulse/internal/analysis/sentiment"
	"github.com/seenimoa/tickerpulse/internal/datasource"
	"github.com/seenimoa/tickerpulse/internal/headlines"
	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

var fixedNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	name  string
	items []models.RawHeadline
	err   error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(context.Context, string) ([]models.RawHeadline, error) {
	return s.items, s.err
}

// labelClassifier returns a fixed label per title prefix and fails on
// titles containing "FAIL".
type labelClassifier struct{ fail bool }

func (*labelClassifier) Name() string { return "stub" }

func (c *labelClassifier) Classify(_ context.Context, text string) (models.SentimentResult, error) {
	switch {
	case c.fail || strings.Contains(text, "FAIL"):
		return models.SentimentResult{}, errors.New("model offline")
	case strings.HasPrefix(text, "up"):
		return models.SentimentResult{Label: models.LabelPositive, Score: 0.9}, nil
	case strings.HasPrefix(text, "down"):
		return models.SentimentResult{Label: models.LabelNegative, Score: 0.7}, nil
	default:
		return models.SentimentResult{Label: models.LabelNeutral, Score: 0.5}, nil
	}
}

type fakeQuotes struct {
	q   *models.Quote
	err error
}

func (f *fakeQuotes) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := *f.q
	q.Symbol = symbol
	return &q, nil
}

func raw(title string, age time.Duration) models.RawHeadline {
	ts := fixedNow.Add(-age)
	return models.RawHeadline{Title: title, Published: &ts}
}

func newTestPipeline(clf *labelClassifier, sources ...headlines.Source) *Pipeline {
	agg := headlines.NewAggregator(sources, headlines.Options{Now: func() time.Time { return fixedNow }})
	return New(Deps{
		News:         agg,
		Classifier:   clf,
		Market:       &fakeQuotes{q: &models.Quote{}},
		Placeholders: market.NewPlaceholders(rand.NewPCG(1, 1)),
		Now:          func() time.Time { return fixedNow },
	})
}

func TestNewsOrderAndDedupe(t *testing.T) {
	p := newTestPipeline(&labelClassifier{},
		&fakeSource{name: "a", items: []models.RawHeadline{
			raw("up Apple surges", time.Hour),
			raw("up Apple  surges", time.Hour),
		}},
		&fakeSource{name: "b", items: []models.RawHeadline{
			raw("down Supplier cuts guidance", 2*time.Hour),
			raw("old news", 11*utils.Day),
		}},
	)

	r, err := p.News(context.Background(), " aapl ")
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if r.Symbol != "AAPL" {
		t.Errorf("symbol: got %q", r.Symbol)
	}
	if r.Count != 2 || len(r.Items) != 2 {
		t.Fatalf("count: got %d items %d", r.Count, len(r.Items))
	}
	if r.Items[0].Headline != "up Apple surges" || r.Items[0].Sentiment != models.LabelPositive {
		t.Errorf("item 0: %+v", r.Items[0])
	}
	if r.Items[1].Source != "b" || r.Items[1].Sentiment != models.LabelNegative {
		t.Errorf("item 1: %+v", r.Items[1])
	}
	if !r.AsOf.Equal(fixedNow) {
		t.Errorf("as_of: got %v", r.AsOf)
	}
}

func TestNewsSourceFailureIsolated(t *testing.T) {
	p := newTestPipeline(&labelClassifier{},
		&fakeSource{name: "down", err: errors.New("connection refused")},
		&fakeSource{name: "ok", items: []models.RawHeadline{raw("flat day", time.Hour)}},
	)
	r, err := p.News(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if r.Count != 1 {
		t.Errorf("count: got %d", r.Count)
	}
	if len(r.SourceErrors) != 1 || r.SourceErrors[0].Source != "down" {
		t.Errorf("source errors: %+v", r.SourceErrors)
	}
}

func TestNewsSkipsFailedItems(t *testing.T) {
	p := newTestPipeline(&labelClassifier{},
		&fakeSource{name: "a", items: []models.RawHeadline{
			raw("up one", time.Hour),
			raw("FAIL two", time.Hour),
			raw("down three", time.Hour),
		}},
	)
	r, err := p.News(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if r.Count != 2 || r.Skipped != 1 {
		t.Errorf("count %d skipped %d", r.Count, r.Skipped)
	}
}

func TestNewsClassifierUnavailable(t *testing.T) {
	p := newTestPipeline(&labelClassifier{fail: true},
		&fakeSource{name: "a", items: []models.RawHeadline{raw("up one", time.Hour)}},
	)
	r, err := p.News(context.Background(), "AAPL")
	if !errors.Is(err, ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
	if r == nil || len(r.Items) != 0 || r.Skipped != 1 {
		t.Errorf("report: %+v", r)
	}
}

func TestNewsNoHeadlinesIsNotAnError(t *testing.T) {
	p := newTestPipeline(&labelClassifier{fail: true}, &fakeSource{name: "empty"})
	r, err := p.News(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if r.Items == nil || r.Count != 0 {
		t.Errorf("expected empty non-nil items, got %+v", r)
	}
}

func TestNewsInvalidSymbol(t *testing.T) {
	p := newTestPipeline(&labelClassifier{})
	if _, err := p.News(context.Background(), "   "); !errors.Is(err, utils.ErrInvalidTicker) {
		t.Errorf("expected ErrInvalidTicker, got %v", err)
	}
}

func TestAnalyzeWithoutUserText(t *testing.T) {
	p := newTestPipeline(&labelClassifier{},
		&fakeSource{name: "a", items: []models.RawHeadline{
			raw("up a", time.Hour), raw("up b", time.Hour), raw("down c", time.Hour),
		}},
	)
	r, err := p.Analyze(context.Background(), "aapl", "   ")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.UserSentiment != models.LabelNeutral || r.UserScore != 0.5 {
		t.Errorf("user defaults: %q %v", r.UserSentiment, r.UserScore)
	}
	if r.Tally.Positive != 2 || r.Tally.Negative != 1 || r.Tilt != models.TiltPositive {
		t.Errorf("tally: %+v tilt %q", r.Tally, r.Tilt)
	}
	if len(r.Summary) != 4 {
		t.Errorf("summary sentences: got %d, want 4", len(r.Summary))
	}
	if r.Summary[0] != "In the last 10 days, news flow for AAPL appears overall leaning positive." {
		t.Errorf("sentence 1: %q", r.Summary[0])
	}
	if r.SummaryText != strings.Join(r.Summary, " ") {
		t.Error("plain text should join the sentences")
	}
	if r.ID == "" {
		t.Error("analysis id should be set")
	}
}

func TestAnalyzeWithUserText(t *testing.T) {
	p := newTestPipeline(&labelClassifier{},
		&fakeSource{name: "a", items: []models.RawHeadline{raw("down a", time.Hour)}},
	)
	r, err := p.Analyze(context.Background(), "TSLA", "up  record deliveries")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.UserSentiment != models.LabelPositive || r.UserScore != 0.9 {
		t.Errorf("user: %q %v", r.UserSentiment, r.UserScore)
	}
	if len(r.Summary) != 5 {
		t.Fatalf("summary sentences: got %d, want 5", len(r.Summary))
	}
	if !strings.HasPrefix(r.Summary[3], "User-provided news tone is positive (confidence 90.0%).") {
		t.Errorf("user sentence: %q", r.Summary[3])
	}
	if r.Summary[4] != sentiment.Disclaimer {
		t.Errorf("last sentence: %q", r.Summary[4])
	}
}

func TestAnalyzeUserTextFailureAnnotated(t *testing.T) {
	p := newTestPipeline(&labelClassifier{},
		&fakeSource{name: "a", items: []models.RawHeadline{raw("up a", time.Hour)}},
	)
	r, err := p.Analyze(context.Background(), "AAPL", "FAIL this")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.UserSentimentError == "" {
		t.Error("user_sentiment_error should be set")
	}
	if r.UserSentiment != models.LabelNeutral || r.UserScore != 0.5 {
		t.Errorf("user defaults on failure: %q %v", r.UserSentiment, r.UserScore)
	}
	if len(r.Summary) != 5 || !strings.HasPrefix(r.Summary[3], "Could not analyze user text: ") {
		t.Errorf("summary: %q", r.Summary)
	}
}

func TestSentiment(t *testing.T) {
	p := newTestPipeline(&labelClassifier{})

	r, err := p.Sentiment(context.Background(), "", "down sharply")
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if r.Symbol != DefaultSymbol || r.Sentiment != models.LabelNegative || r.Score != 0.7 {
		t.Errorf("report: %+v", r)
	}

	if _, err := p.Sentiment(context.Background(), "AAPL", " \t "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if _, err := p.Sentiment(context.Background(), "AAPL", "FAIL"); !errors.Is(err, ErrClassifierUnavailable) {
		t.Errorf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestStock(t *testing.T) {
	price, beta := 190.123, 1.3
	p := New(Deps{
		Market:       &fakeQuotes{q: &models.Quote{LastPrice: &price, Beta: &beta}},
		Placeholders: market.NewPlaceholders(rand.NewPCG(3, 4)),
		Now:          func() time.Time { return fixedNow },
	})
	s, err := p.Stock(context.Background(), "nvda")
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if s.Symbol != "NVDA" || s.SentimentImpact != 100 || *s.LivePrice != 190.12 {
		t.Errorf("snapshot: %+v", s)
	}
	if !s.AsOf.Equal(fixedNow) {
		t.Errorf("as_of: %v", s.AsOf)
	}
}

func TestStockErrors(t *testing.T) {
	p := New(Deps{Market: &fakeQuotes{err: datasource.ErrTickerNotFound}})
	if _, err := p.Stock(context.Background(), "ZZZZ"); !errors.Is(err, datasource.ErrTickerNotFound) {
		t.Errorf("expected ErrTickerNotFound, got %v", err)
	}

	p = New(Deps{Market: &fakeQuotes{err: errors.New("503 from upstream")}})
	if _, err := p.Stock(context.Background(), "AAPL"); !errors.Is(err, ErrMarketData) {
		t.Errorf("expected ErrMarketData, got %v", err)
	}

	p = New(Deps{})
	if _, err := p.Stock(context.Background(), "AAPL"); !errors.Is(err, ErrMarketData) {
		t.Errorf("expected ErrMarketData without provider, got %v", err)
	}
}

func TestStockConcurrent(t *testing.T) {
	price, beta := 101.5, 0.8
	p := New(Deps{
		Market:       &fakeQuotes{q: &models.Quote{LastPrice: &price, Beta: &beta}},
		Placeholders: market.NewPlaceholders(rand.NewPCG(5, 6)),
		Now:          func() time.Time { return fixedNow },
	})

	const workers, calls = 8, 100
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				s, err := p.Stock(context.Background(), "AAPL")
				if err != nil {
					errs <- err
					return
				}
				if s.IdiosyncraticRisk < 0.01 || s.IdiosyncraticRisk > 0.05 {
					errs <- fmt.Errorf("risk out of range: %v", s.IdiosyncraticRisk)
					return
				}
				tr := s.Trend
				if tr.Bullish+tr.Bearish+tr.Neutral != 10 {
					errs <- fmt.Errorf("trend does not sum to 10: %+v", tr)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
