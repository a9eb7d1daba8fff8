// Package market turns a quote into the beta commentary and the
// illustrative placeholder figures served by the stock endpoint.
package market

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

const (
	noteNoBeta    = "Beta unavailable. Volatility vs market cannot be inferred."
	noteVolatile  = "More volatile than the market. A 1% move in the market may lead to >1% move in this stock."
	noteDefensive = "Less volatile than the market. A 1% move in the market may lead to <1% move in this stock."
	noteInLine    = "Moves roughly in line with the market on average."
)

// Notes describes what beta says about volatility relative to the market.
func Notes(beta *float64) string {
	switch {
	case beta == nil:
		return noteNoBeta
	case *beta > 1:
		return noteVolatile
	case *beta < 1:
		return noteDefensive
	default:
		return noteInLine
	}
}

// SentimentImpact is 100 for high-beta names and 50 otherwise, including
// when beta is unknown.
func SentimentImpact(beta *float64) int {
	if beta != nil && *beta > 1 {
		return 100
	}
	return 50
}

// Placeholders produces figures that only illustrate the response shape.
// They are random and carry no statistical meaning. A Placeholders is safe
// for concurrent use.
type Placeholders struct {
	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewPlaceholders uses src, or a time-seeded PCG source when src is nil.
func NewPlaceholders(src rand.Source) *Placeholders {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Placeholders{rng: rand.New(src)}
}

// IdiosyncraticRisk returns a value in [0.01, 0.05] rounded to 4 decimals.
func (p *Placeholders) IdiosyncraticRisk() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return round(0.01+p.rng.Float64()*0.04, 4)
}

// Trend returns a 10-day bullish/bearish/neutral split.
func (p *Placeholders) Trend() models.SentimentTrend {
	p.mu.Lock()
	bull := p.rng.IntN(6)
	bear := p.rng.IntN(6)
	p.mu.Unlock()

	t := models.SentimentTrend{
		Bullish: bull,
		Bearish: bear,
		Neutral: max(0, 10-bull-bear),
	}
	switch {
	case bull > bear:
		t.Dominant = "bullish"
	case bear > bull:
		t.Dominant = "bearish"
	default:
		t.Dominant = "neutral"
	}
	return t
}

// Snapshot assembles the stock payload from q. Price is rounded to 2
// decimals and beta to 3.
func (p *Placeholders) Snapshot(q *models.Quote, asOf time.Time) *models.StockSnapshot {
	beta := roundPtr(q.Beta, 3)
	return &models.StockSnapshot{
		Symbol:            q.Symbol,
		LivePrice:         roundPtr(q.LastPrice, 2),
		Beta:              beta,
		IdiosyncraticRisk: p.IdiosyncraticRisk(),
		SentimentImpact:   SentimentImpact(beta),
		Notes:             Notes(beta),
		Trend:             p.Trend(),
		AsOf:              asOf,
	}
}

func round(v float64, places int) float64 {
	pow := math.Pow10(places)
	return math.Round(v*pow) / pow
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}
