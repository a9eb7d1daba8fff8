// Package datasource provides the outbound clients tickerpulse reads from:
// RSS headline feeds, Finnhub company news, and Yahoo Finance market data.
package datasource

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/internal/logging"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a provider has no data for a ticker.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrNoAPIKey is returned when a keyed source is built without a key.
var ErrNoAPIKey = errors.New("api key not configured")

// symbolPlaceholder is replaced in feed URL templates.
const symbolPlaceholder = "{symbol}"

// ExpandURL substitutes the query-escaped symbol into a feed URL template.
func ExpandURL(template, symbol string) string {
	return strings.ReplaceAll(template, symbolPlaceholder, url.QueryEscape(symbol))
}

// HeadlineSource is implemented by every headline provider in this package.
type HeadlineSource interface {
	Name() string
	Fetch(ctx context.Context, symbol string) ([]models.RawHeadline, error)
}

// NewHeadlineSources builds the configured feed sources in order: every
// RSS template from cfg.Sources, then Finnhub when a key is present.
func NewHeadlineSources(cfg config.FeedsConfig, logger *zap.Logger) []HeadlineSource {
	logger = logging.OrNop(logger)
	client := infra.NewHTTPClient(cfg.Timeout())
	sources := make([]HeadlineSource, 0, len(cfg.Sources)+1)
	for _, s := range cfg.Sources {
		sources = append(sources, NewRSSSource(s.Name, s.URL, RSSOptions{
			Client:    client,
			UserAgent: cfg.UserAgent,
		}))
	}
	if cfg.FinnhubKey != "" {
		fh, err := NewFinnhubSource(cfg.FinnhubKey, cfg.RecencyDays)
		if err != nil {
			logger.Warn("finnhub source disabled", zap.Error(err))
		} else {
			sources = append(sources, fh)
		}
	}
	return sources
}
