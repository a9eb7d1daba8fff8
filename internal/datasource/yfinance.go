package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// DefaultYahooBaseURL is the Yahoo Finance query host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YFinanceOptions tunes a YFinance client.
type YFinanceOptions struct {
	BaseURL  string
	Client   *http.Client
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// YFinance reads last close and beta from the Yahoo Finance JSON API.
type YFinance struct {
	baseURL string
	client  *http.Client
	cache   *infra.Cache[*models.Quote]
	limiter *infra.RateLimiter
	log     *zap.Logger
}

// NewYFinance creates a new Yahoo Finance market-data client.
func NewYFinance(opts YFinanceOptions) *YFinance {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultYahooBaseURL
	}
	if opts.Client == nil {
		opts.Client = infra.NewHTTPClient(15 * time.Second)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &YFinance{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.Client,
		cache:   infra.NewCache[*models.Quote](opts.CacheTTL),
		limiter: infra.NewRateLimiter(5, time.Second), // 5 req/s
		log:     opts.Logger,
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type yfIndicators struct {
	Quote []struct {
		Close []*float64 `json:"close"`
	} `json:"quote"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail        *yfBetaModule `json:"summaryDetail"`
			DefaultKeyStatistics *yfBetaModule `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yfError `json:"error"`
	} `json:"quoteSummary"`
}

type yfBetaModule struct {
	Beta *yfRaw `json:"beta"`
}

type yfRaw struct {
	Raw *float64 `json:"raw"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetQuote returns the last close over the past five trading days and the
// beta for symbol. A missing beta is not an error; Beta stays nil.
func (y *YFinance) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return y.cache.GetOrLoad("quote:"+symbol, func() (*models.Quote, error) {
		price, currency, err := y.lastClose(ctx, symbol)
		if err != nil {
			return nil, err
		}
		beta, err := y.beta(ctx, symbol)
		if err != nil {
			y.log.Debug("beta unavailable", zap.String("symbol", symbol), zap.Error(err))
		}
		return &models.Quote{
			Symbol:    symbol,
			LastPrice: price,
			Beta:      beta,
			Currency:  currency,
			FetchedAt: time.Now().UTC(),
		}, nil
	})
}

func (y *YFinance) lastClose(ctx context.Context, symbol string) (*float64, string, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", y.baseURL, url.PathEscape(symbol))
	var resp yfChartResponse
	if err := y.getJSON(ctx, u, &resp); err != nil {
		var he *infra.HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
			return nil, "", fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, "", fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, "", fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, "", fmt.Errorf("yfinance chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	result := resp.Chart.Result[0]
	return lastNonNil(result), result.Meta.Currency, nil
}

func (y *YFinance) beta(ctx context.Context, symbol string) (*float64, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics",
		y.baseURL, url.PathEscape(symbol))
	var resp yfSummaryResponse
	if err := y.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("yfinance summary %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yfinance summary error: %s", resp.QuoteSummary.Error.Description)
	}
	for _, r := range resp.QuoteSummary.Result {
		for _, m := range []*yfBetaModule{r.SummaryDetail, r.DefaultKeyStatistics} {
			if m != nil && m.Beta != nil && m.Beta.Raw != nil {
				return m.Beta.Raw, nil
			}
		}
	}
	return nil, nil
}

func (y *YFinance) getJSON(ctx context.Context, u string, out any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}
	data, err := infra.DoGet(ctx, y.client, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// --- Helpers ---

// lastNonNil returns the most recent non-null close, or nil.
func lastNonNil(result yfChartResult) *float64 {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			v := *closes[i]
			return &v
		}
	}
	return nil
}
