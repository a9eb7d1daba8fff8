// Package sentiment reduces classified headlines to a tally and renders
// the plain-English narrative built on it. Everything here is pure.
package sentiment

import "github.com/seenimoa/tickerpulse/pkg/models"

// TallyHeadlines counts labels and averages confidence over items. The
// average of an empty list is 0.
func TallyHeadlines(items []models.AnalyzedHeadline) models.Tally {
	var t models.Tally
	sum := 0.0
	for _, it := range items {
		switch it.Sentiment {
		case models.LabelPositive:
			t.Positive++
		case models.LabelNegative:
			t.Negative++
		case models.LabelNeutral:
			t.Neutral++
		}
		sum += it.Confidence
	}
	t.AverageConfidence = sum / float64(max(1, len(items)))
	return t
}
