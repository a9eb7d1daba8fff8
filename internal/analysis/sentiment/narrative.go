package sentiment

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

// Disclaimer closes every narrative.
const Disclaimer = "Plain-English impact: sentiment modifies short-term risk and volatility. " +
	"Negative tone can elevate drawdowns; positive tone can compress risk premia. " +
	"Use as context, not as a standalone signal."

var directional = map[models.Tilt]string{
	models.TiltNegative: "This may indicate short-term downside pressure or uncertainty.",
	models.TiltPositive: "This may support a constructive short-term outlook.",
	models.TiltBalanced: "Signals are mixed; consider waiting for clearer catalysts.",
}

var userRemark = map[models.Label]string{
	models.LabelPositive: "This could strengthen the positive bias if seen elsewhere.",
	models.LabelNegative: "This could increase short-term downside risk if confirmed.",
	models.LabelNeutral:  "The user update is neutral and does not change bias.",
}

// UserSentiment is the classification of user-supplied text. Err is set
// when classification failed.
type UserSentiment struct {
	Result models.SentimentResult
	Err    error
}

// NarrativeInput is everything Summarize needs.
type NarrativeInput struct {
	Symbol     string
	Tally      models.Tally
	WindowDays int
	User       *UserSentiment // nil when no user text was supplied
}

// Narrative is an ordered list of sentences.
type Narrative []string

// Text joins the sentences with single spaces.
func (n Narrative) Text() string { return strings.Join(n, " ") }

// Summarize renders the narrative for in. It has four sentences, or five
// when user text was supplied.
func Summarize(in NarrativeInput) Narrative {
	days := in.WindowDays
	if days <= 0 {
		days = 10
	}
	tilt := in.Tally.Tilt()

	n := make(Narrative, 0, 5)
	n = append(n,
		fmt.Sprintf("In the last %d days, news flow for %s appears overall %s.",
			days, strings.ToUpper(in.Symbol), tilt),
		fmt.Sprintf("Observed headlines: %d positive, %d negative, %d neutral with average confidence around %s%%.",
			in.Tally.Positive, in.Tally.Negative, in.Tally.Neutral, Percent(in.Tally.AverageConfidence)),
		directional[tilt],
	)
	if in.User != nil {
		n = append(n, userSentence(*in.User))
	}
	return append(n, Disclaimer)
}

func userSentence(u UserSentiment) string {
	if u.Err != nil {
		reason := strings.TrimRight(strings.TrimSpace(u.Err.Error()), ".")
		if reason == "" {
			return "Could not analyze user text."
		}
		return "Could not analyze user text: " + reason + "."
	}
	remark, ok := userRemark[u.Result.Label]
	if !ok {
		remark = userRemark[models.LabelNeutral]
	}
	return fmt.Sprintf("User-provided news tone is %s (confidence %s%%). %s",
		u.Result.Label, Percent(u.Result.Score), remark)
}

// Percent renders a [0,1] value as a percentage with one decimal,
// rounding half away from zero.
func Percent(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/10, 'f', 1, 64)
}
