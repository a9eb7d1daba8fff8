package models

// Label is a categorical sentiment produced by a classifier.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Labels lists every valid label in reporting order.
var Labels = []Label{LabelPositive, LabelNegative, LabelNeutral}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNegative, LabelNeutral:
		return true
	}
	return false
}

// SentimentResult is the output of a single classification.
type SentimentResult struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"` // confidence, 0.0 to 1.0
}

// Tally holds per-label counts and the mean confidence over a set of
// analyzed headlines.
type Tally struct {
	Positive          int     `json:"positive"`
	Negative          int     `json:"negative"`
	Neutral           int     `json:"neutral"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Total returns the number of headlines counted.
func (t Tally) Total() int { return t.Positive + t.Negative + t.Neutral }

// Tilt is the categorical summary of a Tally.
type Tilt string

const (
	TiltPositive Tilt = "leaning positive"
	TiltNegative Tilt = "leaning negative"
	TiltBalanced Tilt = "balanced/neutral"
)

// Tilt classifies the tally. Ties, including all zero, are balanced.
func (t Tally) Tilt() Tilt {
	switch {
	case t.Positive > t.Negative:
		return TiltPositive
	case t.Negative > t.Positive:
		return TiltNegative
	default:
		return TiltBalanced
	}
}
