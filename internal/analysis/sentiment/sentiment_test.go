package sentiment

import (
	"errors"
	"strings"
	"testing"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

func analyzed(labels ...models.Label) []models.AnalyzedHeadline {
	out := make([]models.AnalyzedHeadline, len(labels))
	for i, l := range labels {
		out[i] = models.AnalyzedHeadline{Headline: "h", Sentiment: l, Confidence: 0.8}
	}
	return out
}

func repeat(l models.Label, n int) []models.Label {
	out := make([]models.Label, n)
	for i := range out {
		out[i] = l
	}
	return out
}

// ── TallyHeadlines / Tilt ──

func TestTallyEmpty(t *testing.T) {
	tally := TallyHeadlines(nil)
	if tally.Total() != 0 || tally.AverageConfidence != 0 {
		t.Errorf("got %+v", tally)
	}
	if tally.Tilt() != models.TiltBalanced {
		t.Errorf("Tilt: got %q", tally.Tilt())
	}
}

func TestTallyCountsAndAverage(t *testing.T) {
	items := []models.AnalyzedHeadline{
		{Sentiment: models.LabelPositive, Confidence: 0.9},
		{Sentiment: models.LabelNegative, Confidence: 0.6},
		{Sentiment: models.LabelNeutral, Confidence: 0.3},
		{Sentiment: models.LabelPositive, Confidence: 0.6},
	}
	tally := TallyHeadlines(items)
	if tally.Positive != 2 || tally.Negative != 1 || tally.Neutral != 1 {
		t.Errorf("counts: got %+v", tally)
	}
	if got := Percent(tally.AverageConfidence); got != "60.0" {
		t.Errorf("average: got %s%%, want 60.0%%", got)
	}
}

func TestTiltTieBreaks(t *testing.T) {
	tests := []struct {
		name         string
		pos, neg, nu int
		want         models.Tilt
	}{
		{"3/3/1 balanced", 3, 3, 1, models.TiltBalanced},
		{"4/1 positive", 4, 1, 0, models.TiltPositive},
		{"1/4 negative", 1, 4, 0, models.TiltNegative},
		{"all zero balanced", 0, 0, 0, models.TiltBalanced},
		{"neutral only balanced", 0, 0, 5, models.TiltBalanced},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var labels []models.Label
			labels = append(labels, repeat(models.LabelPositive, tc.pos)...)
			labels = append(labels, repeat(models.LabelNegative, tc.neg)...)
			labels = append(labels, repeat(models.LabelNeutral, tc.nu)...)
			if got := TallyHeadlines(analyzed(labels...)).Tilt(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// ── Percent ──

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "100.0"},
		{0.35, "35.0"},
		{0.8767, "87.7"},
		{0.12345, "12.3"},
		{0.9999, "100.0"},
		// exact halves round away from zero
		{0.8125, "81.3"},
		{0.0625, "6.3"},
	}
	for _, tc := range tests {
		if got := Percent(tc.in); got != tc.want {
			t.Errorf("Percent(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

// ── Summarize ──

func TestSummarizeWithoutUserText(t *testing.T) {
	n := Summarize(NarrativeInput{
		Symbol:     "aapl",
		Tally:      models.Tally{Positive: 3, Negative: 1, Neutral: 2, AverageConfidence: 0.8767},
		WindowDays: 10,
	})
	want := Narrative{
		"In the last 10 days, news flow for AAPL appears overall leaning positive.",
		"Observed headlines: 3 positive, 1 negative, 2 neutral with average confidence around 87.7%.",
		"This may support a constructive short-term outlook.",
		Disclaimer,
	}
	if len(n) != 4 {
		t.Fatalf("got %d sentences, want 4", len(n))
	}
	for i := range want {
		if n[i] != want[i] {
			t.Errorf("sentence %d:\n got %q\nwant %q", i+1, n[i], want[i])
		}
	}
}

func TestSummarizeDirectionalSentence(t *testing.T) {
	tests := []struct {
		tally models.Tally
		want  string
	}{
		{models.Tally{Positive: 1, Negative: 2}, "This may indicate short-term downside pressure or uncertainty."},
		{models.Tally{Positive: 2, Negative: 1}, "This may support a constructive short-term outlook."},
		{models.Tally{Positive: 1, Negative: 1, Neutral: 4}, "Signals are mixed; consider waiting for clearer catalysts."},
		{models.Tally{}, "Signals are mixed; consider waiting for clearer catalysts."},
	}
	for _, tc := range tests {
		n := Summarize(NarrativeInput{Symbol: "MSFT", Tally: tc.tally})
		if n[2] != tc.want {
			t.Errorf("tally %+v: got %q", tc.tally, n[2])
		}
	}
}

func TestSummarizeEmptyTally(t *testing.T) {
	n := Summarize(NarrativeInput{Symbol: "TSLA", WindowDays: 10})
	if n[0] != "In the last 10 days, news flow for TSLA appears overall balanced/neutral." {
		t.Errorf("sentence 1: %q", n[0])
	}
	if n[1] != "Observed headlines: 0 positive, 0 negative, 0 neutral with average confidence around 0.0%." {
		t.Errorf("sentence 2: %q", n[1])
	}
}

func TestSummarizeWithUserText(t *testing.T) {
	tests := []struct {
		label models.Label
		want  string
	}{
		{models.LabelPositive, "User-provided news tone is positive (confidence 91.2%). This could strengthen the positive bias if seen elsewhere."},
		{models.LabelNegative, "User-provided news tone is negative (confidence 91.2%). This could increase short-term downside risk if confirmed."},
		{models.LabelNeutral, "User-provided news tone is neutral (confidence 91.2%). The user update is neutral and does not change bias."},
	}
	for _, tc := range tests {
		n := Summarize(NarrativeInput{
			Symbol: "AAPL",
			Tally:  models.Tally{Positive: 1},
			User:   &UserSentiment{Result: models.SentimentResult{Label: tc.label, Score: 0.9123}},
		})
		if len(n) != 5 {
			t.Fatalf("got %d sentences, want 5", len(n))
		}
		if n[3] != tc.want {
			t.Errorf("user sentence:\n got %q\nwant %q", n[3], tc.want)
		}
		if n[4] != Disclaimer {
			t.Errorf("last sentence should be the disclaimer, got %q", n[4])
		}
	}
}

func TestSummarizeUserTextFailure(t *testing.T) {
	n := Summarize(NarrativeInput{
		Symbol: "AAPL",
		User:   &UserSentiment{Err: errors.New("model unavailable")},
	})
	if len(n) != 5 {
		t.Fatalf("got %d sentences, want 5", len(n))
	}
	if n[3] != "Could not analyze user text: model unavailable." {
		t.Errorf("got %q", n[3])
	}

	n = Summarize(NarrativeInput{Symbol: "AAPL", User: &UserSentiment{Err: errors.New("")}})
	if n[3] != "Could not analyze user text." {
		t.Errorf("got %q", n[3])
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	in := NarrativeInput{
		Symbol: "NVDA",
		Tally:  models.Tally{Positive: 2, Negative: 5, Neutral: 1, AverageConfidence: 0.5},
		User:   &UserSentiment{Result: models.SentimentResult{Label: models.LabelNegative, Score: 0.7}},
	}
	if Summarize(in).Text() != Summarize(in).Text() {
		t.Error("Summarize should be deterministic")
	}
	if !strings.HasSuffix(Summarize(in).Text(), "Use as context, not as a standalone signal.") {
		t.Error("text should end with the disclaimer")
	}
}
