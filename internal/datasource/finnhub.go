package datasource

import (
	"context"
	"fmt"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// FinnhubName is the source name reported for Finnhub headlines.
const FinnhubName = "Finnhub"

// finnhubDateLayout is the date format of the company-news query.
const finnhubDateLayout = "2006-01-02"

// FinnhubSource fetches company news from Finnhub.
type FinnhubSource struct {
	client  *finnhub.DefaultApiService
	days    int
	limiter *infra.RateLimiter
	now     func() time.Time
}

// NewFinnhubSource creates a Finnhub source that asks for the last days of
// company news.
func NewFinnhubSource(apiKey string, days int) (*FinnhubSource, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	return &FinnhubSource{
		client:  finnhub.NewAPIClient(cfg).DefaultApi,
		days:    days,
		limiter: infra.NewRateLimiter(30, time.Second), // Finnhub caps clients at 30 calls/s
		now:     time.Now,
	}, nil
}

// Name returns the source name.
func (f *FinnhubSource) Name() string { return FinnhubName }

// Fetch returns company news for symbol, newest first as Finnhub orders it.
func (f *FinnhubSource) Fetch(ctx context.Context, symbol string) ([]models.RawHeadline, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	to := f.now().UTC()
	from := to.AddDate(0, 0, -f.days)

	res, _, err := f.client.CompanyNews(ctx).
		Symbol(symbol).
		From(from.Format(finnhubDateLayout)).
		To(to.Format(finnhubDateLayout)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub company news %s: %w", symbol, err)
	}
	return finnhubToRaw(res), nil
}

func finnhubToRaw(items []finnhub.CompanyNews) []models.RawHeadline {
	out := make([]models.RawHeadline, 0, len(items))
	for _, n := range items {
		r := models.RawHeadline{Source: FinnhubName}
		if n.Headline != nil {
			r.Title = *n.Headline
		}
		if n.Url != nil {
			r.Link = *n.Url
		}
		if n.Summary != nil {
			r.Summary = *n.Summary
		}
		if n.Source != nil && *n.Source != "" {
			r.Source = *n.Source
		}
		if n.Datetime != nil && *n.Datetime > 0 {
			t := time.Unix(*n.Datetime, 0).UTC()
			r.Published = &t
		}
		out = append(out, r)
	}
	return out
}
