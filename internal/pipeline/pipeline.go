// Package pipeline runs the per-request flows behind every endpoint:
// collect headlines, classify them, tally and narrate, or look up a quote.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/analysis/market"
	"github.com/seenimoa/tickerpulse/internal/analysis/sentiment"
	"github.com/seenimoa/tickerpulse/internal/classifier"
	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/datasource"
	"github.com/seenimoa/tickerpulse/internal/headlines"
	"github.com/seenimoa/tickerpulse/internal/logging"
	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

var (
	// ErrClassifierUnavailable means every headline failed classification.
	ErrClassifierUnavailable = errors.New("sentiment classifier unavailable")

	// ErrEmptyText is returned by Sentiment when there is nothing to classify.
	ErrEmptyText = errors.New("text is required")

	// ErrMarketData wraps failures of the market-data provider.
	ErrMarketData = errors.New("market data unavailable")
)

// Collector gathers normalized headlines for a symbol.
type Collector interface {
	Collect(ctx context.Context, symbol string) headlines.Result
}

// QuoteProvider returns price and beta for a symbol.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Deps wires a Pipeline. Zero values fall back to defaults where one exists.
type Deps struct {
	News         Collector
	Classifier   classifier.Classifier
	Market       QuoteProvider
	Placeholders *market.Placeholders
	Concurrency  int
	WindowDays   int
	Logger       *zap.Logger
	Now          func() time.Time
}

// Pipeline is safe for concurrent use. Its only mutable state is the
// placeholder generator, which serializes access internally.
type Pipeline struct {
	news         Collector
	clf          classifier.Classifier
	market       QuoteProvider
	placeholders *market.Placeholders
	concurrency  int
	windowDays   int
	log          *zap.Logger
	now          func() time.Time
}

// New creates a pipeline from d.
func New(d Deps) *Pipeline {
	p := &Pipeline{
		news:         d.News,
		clf:          d.Classifier,
		market:       d.Market,
		placeholders: d.Placeholders,
		concurrency:  d.Concurrency,
		windowDays:   d.WindowDays,
		log:          d.Logger,
		now:          d.Now,
	}
	if p.clf == nil {
		p.clf = classifier.NewKeyword()
	}
	if p.placeholders == nil {
		p.placeholders = market.NewPlaceholders(nil)
	}
	if p.concurrency <= 0 {
		p.concurrency = classifier.DefaultConcurrency
	}
	if p.windowDays <= 0 {
		p.windowDays = headlines.DefaultWindowDays
	}
	p.log = logging.OrNop(p.log)
	if p.now == nil {
		p.now = utils.NowUTC
	}
	return p
}

// NewFromConfig builds the production pipeline: configured feed sources,
// the configured classifier backend and Yahoo Finance market data.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	logger = logging.OrNop(logger)
	clf, err := classifier.New(cfg.Classifier, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	var sources []headlines.Source
	for _, s := range datasource.NewHeadlineSources(cfg.Feeds, logger) {
		sources = append(sources, s)
	}
	agg := headlines.NewAggregator(sources, headlines.Options{
		WindowDays:    cfg.Feeds.RecencyDays,
		MaxHeadlines:  cfg.Feeds.MaxHeadlines,
		SourceTimeout: cfg.Feeds.Timeout(),
		Logger:        logger.Named("headlines"),
	})

	yf := datasource.NewYFinance(datasource.YFinanceOptions{
		BaseURL:  cfg.Market.BaseURL,
		CacheTTL: cfg.Market.CacheTTL(),
		Logger:   logger.Named("market"),
	})

	return New(Deps{
		News:        agg,
		Classifier:  clf,
		Market:      yf,
		Concurrency: cfg.Classifier.Concurrency,
		WindowDays:  cfg.Feeds.RecencyDays,
		Logger:      logger.Named("pipeline"),
	}), nil
}

// ClassifierName reports the active classifier backend.
func (p *Pipeline) ClassifierName() string { return p.clf.Name() }

// NewsReport is the payload of the news endpoint.
type NewsReport struct {
	Symbol       string                    `json:"symbol"`
	Items        []models.AnalyzedHeadline `json:"items"`
	Count        int                       `json:"count"`
	Skipped      int                       `json:"skipped"`
	SourceErrors []headlines.SourceError   `json:"source_errors,omitempty"`
	AsOf         time.Time                 `json:"as_of"`
}

// News collects and classifies recent headlines for symbol. When every
// collected headline fails classification the (empty) report is returned
// together with ErrClassifierUnavailable.
func (p *Pipeline) News(ctx context.Context, symbol string) (*NewsReport, error) {
	symbol, err := utils.ValidateTicker(symbol)
	if err != nil {
		return nil, err
	}
	batch, res, err := p.collectAndClassify(ctx, symbol)
	report := &NewsReport{
		Symbol:       symbol,
		Items:        batch.Items,
		Count:        len(batch.Items),
		Skipped:      batch.Skipped,
		SourceErrors: res.SourceErrors,
		AsOf:         p.now(),
	}
	return report, err
}

// AnalysisReport is the payload of the analyze endpoint.
type AnalysisReport struct {
	ID                 string                    `json:"id"`
	Symbol             string                    `json:"symbol"`
	UserSentiment      models.Label              `json:"user_sentiment"`
	UserScore          float64                   `json:"user_score"`
	UserSentimentError string                    `json:"user_sentiment_error,omitempty"`
	News               []models.AnalyzedHeadline `json:"last_10d_news"`
	Tally              models.Tally              `json:"tally"`
	Tilt               models.Tilt               `json:"tilt"`
	Summary            []string                  `json:"impact_summary"`
	SummaryText        string                    `json:"impact_summary_plain_english"`
	Skipped            int                       `json:"skipped"`
	SourceErrors       []headlines.SourceError   `json:"source_errors,omitempty"`
	AsOf               time.Time                 `json:"as_of"`
}

// Analyze collects and classifies headlines for symbol, classifies the
// optional user text once, and renders the narrative. A user-text failure
// is annotated in the report rather than failing the request.
func (p *Pipeline) Analyze(ctx context.Context, symbol, text string) (*AnalysisReport, error) {
	symbol, err := utils.ValidateTicker(symbol)
	if err != nil {
		return nil, err
	}
	batch, res, collectErr := p.collectAndClassify(ctx, symbol)
	tally := sentiment.TallyHeadlines(batch.Items)

	report := &AnalysisReport{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		UserSentiment: models.LabelNeutral,
		UserScore:     0.5,
		News:          batch.Items,
		Tally:         tally,
		Tilt:          tally.Tilt(),
		Skipped:       batch.Skipped,
		SourceErrors:  res.SourceErrors,
	}

	in := sentiment.NarrativeInput{Symbol: symbol, Tally: tally, WindowDays: p.windowDays}
	if text = headlines.CleanTitle(text); text != "" {
		user := &sentiment.UserSentiment{}
		user.Result, user.Err = classifier.ClassifyText(ctx, p.clf, text)
		if user.Err != nil {
			p.log.Warn("user text classification failed",
				zap.String("symbol", symbol), zap.Error(user.Err))
			report.UserSentimentError = user.Err.Error()
		} else {
			report.UserSentiment = user.Result.Label
			report.UserScore = user.Result.Score
		}
		in.User = user
	}

	narrative := sentiment.Summarize(in)
	report.Summary = narrative
	report.SummaryText = narrative.Text()
	report.AsOf = p.now()

	p.log.Info("analysis complete",
		zap.String("id", report.ID),
		zap.String("symbol", symbol),
		zap.Int("headlines", len(batch.Items)),
		zap.String("tilt", string(report.Tilt)))
	return report, collectErr
}

// SentimentReport is the payload of the sentiment endpoint.
type SentimentReport struct {
	Symbol    string       `json:"symbol"`
	Sentiment models.Label `json:"sentiment"`
	Score     float64      `json:"score"`
	AsOf      time.Time    `json:"as_of"`
}

// Sentiment classifies text on its own. symbol only labels the report and
// defaults to AAPL.
func (p *Pipeline) Sentiment(ctx context.Context, symbol, text string) (*SentimentReport, error) {
	if strings.TrimSpace(symbol) == "" {
		symbol = DefaultSymbol
	}
	symbol, err := utils.ValidateTicker(symbol)
	if err != nil {
		return nil, err
	}
	text = headlines.CleanTitle(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	res, err := classifier.ClassifyText(ctx, p.clf, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	return &SentimentReport{
		Symbol:    symbol,
		Sentiment: res.Label,
		Score:     res.Score,
		AsOf:      p.now(),
	}, nil
}

// Stock returns price, beta and the illustrative placeholders for symbol.
func (p *Pipeline) Stock(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	symbol, err := utils.ValidateTicker(symbol)
	if err != nil {
		return nil, err
	}
	if p.market == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrMarketData)
	}
	q, err := p.market.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, datasource.ErrTickerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrMarketData, err)
	}
	return p.placeholders.Snapshot(q, p.now()), nil
}

// DefaultSymbol labels requests that carry no symbol.
const DefaultSymbol = "AAPL"

func (p *Pipeline) collectAndClassify(ctx context.Context, symbol string) (classifier.Batch, headlines.Result, error) {
	var res headlines.Result
	if p.news != nil {
		res = p.news.Collect(ctx, symbol)
	}
	batch := classifier.AnalyzeHeadlines(ctx, p.clf, res.Headlines, p.concurrency, p.log)
	if len(res.Headlines) > 0 && len(batch.Items) == 0 {
		p.log.Error("every headline failed classification",
			zap.String("symbol", symbol),
			zap.Int("headlines", len(res.Headlines)),
			zap.Error(batch.LastErr))
		if batch.LastErr != nil {
			return batch, res, fmt.Errorf("%w: %w", ErrClassifierUnavailable, batch.LastErr)
		}
		return batch, res, ErrClassifierUnavailable
	}
	return batch, res, nil
}
