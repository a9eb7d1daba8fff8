package models

import "time"

// Quote is the subset of market data the service needs for a ticker.
type Quote struct {
	Symbol    string    `json:"symbol"`
	LastPrice *float64  `json:"last_price"` // nil when no recent close is available
	Beta      *float64  `json:"beta"`       // nil when the provider has no beta
	Currency  string    `json:"currency,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SentimentTrend is an illustrative 10-day bullish/bearish split.
type SentimentTrend struct {
	Bullish  int    `json:"bullish"`
	Bearish  int    `json:"bearish"`
	Neutral  int    `json:"neutral"`
	Dominant string `json:"dominant_sentiment"` // "bullish", "bearish" or "neutral"
}

// StockSnapshot is the payload of the stock endpoint. IdiosyncraticRisk and
// Trend are placeholders and carry no statistical meaning.
type StockSnapshot struct {
	Symbol            string         `json:"symbol"`
	LivePrice         *float64       `json:"live_price"`
	Beta              *float64       `json:"beta"`
	IdiosyncraticRisk float64        `json:"idiosyncratic_risk"`
	SentimentImpact   int            `json:"sentiment_impact"`
	Notes             string         `json:"notes"`
	Trend             SentimentTrend `json:"sentiment_trend_10_day"`
	AsOf              time.Time      `json:"as_of"`
}
