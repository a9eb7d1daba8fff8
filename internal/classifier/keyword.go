package classifier

import (
	"context"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

// Keyword-based sentiment classifier (offline, no LLM needed). Keywords
// are stems: a keyword matches where a word starts with it, so "surge"
// matches "surges" and "surged" but "cut" does not match "execute".

var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "upbeat": 0.5,
	"positive": 0.4, "growth": 0.4, "upgrade": 0.6, "outperform": 0.6,
	"buy": 0.5, "strong": 0.4, "recover": 0.5, "breakout": 0.6,
	"record high": 0.7, "all-time high": 0.7, "beat": 0.5,
	"exceed": 0.5, "expansion": 0.4, "soar": 0.7, "jump": 0.5,
	"gain": 0.4, "rise": 0.3, "profit": 0.3, "dividend": 0.4,
	"boost": 0.4, "optimis": 0.5, "approv": 0.4, "raises guidance": 0.6,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell-off": 0.7, "selloff": 0.7, "weak": 0.4, "decline": 0.5,
	"loss": 0.4, "fall": 0.4, "fell": 0.4, "drop": 0.5, "tumble": 0.6,
	"slide": 0.4, "correction": 0.5, "fraud": 0.8, "inquiry": 0.5,
	"investigation": 0.5, "lawsuit": 0.5, "antitrust": 0.5, "recall": 0.5,
	"layoff": 0.5, "cut": 0.3, "misses": 0.5, "missed": 0.5, "warn": 0.5, "concern": 0.3,
	"bankrupt": 0.8, "pessimis": 0.5,
}

// Thresholds on the net score that separate the labels.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1

	// noSignalConfidence is reported when no keyword matched.
	noSignalConfidence = 0.5
)

// Keyword is a deterministic lexicon classifier.
type Keyword struct{}

// NewKeyword returns the keyword classifier.
func NewKeyword() *Keyword { return &Keyword{} }

func (*Keyword) Name() string { return BackendKeyword }

// Classify labels text by its net bullish/bearish keyword weight.
func (k *Keyword) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}
	clean, err := cleanText(text)
	if err != nil {
		return models.SentimentResult{}, err
	}

	score, matches := ScoreText(clean)
	if matches == 0 {
		return models.SentimentResult{Label: models.LabelNeutral, Score: noSignalConfidence}, nil
	}

	label := models.LabelNeutral
	switch {
	case score > positiveThreshold:
		label = models.LabelPositive
	case score < negativeThreshold:
		label = models.LabelNegative
	}
	return models.SentimentResult{
		Label: label,
		Score: math.Min(float64(matches)*0.15+0.2, 0.85),
	}, nil
}

// ScoreText returns the net keyword score in [-1, 1] and the number of
// keywords that matched.
func ScoreText(text string) (score float64, matches int) {
	lower := strings.ToLower(text)

	bull, bear := 0.0, 0.0
	for word, weight := range bullishWords {
		if hasStem(lower, word) {
			bull += weight
			matches++
		}
	}
	for word, weight := range bearishWords {
		if hasStem(lower, word) {
			bear += weight
			matches++
		}
	}

	total := bull + bear
	if total == 0 {
		return 0, matches
	}
	return (bull - bear) / total, matches
}

// hasStem reports whether stem occurs in s at the start of a word.
func hasStem(s, stem string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], stem)
		if j < 0 {
			return false
		}
		pos := i + j
		if pos == 0 {
			return true
		}
		if prev, _ := utf8.DecodeLastRuneInString(s[:pos]); !isWordRune(prev) {
			return true
		}
		i = pos + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
