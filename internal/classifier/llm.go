package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seenimoa/tickerpulse/internal/llm"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

const sentimentPrompt = `You are a financial news sentiment classifier. Classify the tone of the text for the stock it mentions.

Output JSON only, no other text:
{
  "label": "one of: positive, negative, neutral",
  "confidence": number between 0 and 1
}`

// Completer returns a model answer for a system prompt and a user prompt.
// *llm.Router satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

var _ Completer = (*llm.Router)(nil)

// LLM classifies text by prompting a language model.
type LLM struct {
	completer Completer
}

// NewLLM returns an LLM-backed classifier.
func NewLLM(c Completer) *LLM {
	return &LLM{completer: c}
}

func (*LLM) Name() string { return BackendLLM }

// Classify asks the model for a label and confidence. Unknown labels and
// unparsable answers are errors.
func (l *LLM) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	clean, err := cleanText(text)
	if err != nil {
		return models.SentimentResult{}, err
	}

	content, err := l.completer.Complete(ctx, sentimentPrompt, "Text: "+clean)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("llm classify: %w", err)
	}
	return parseAnswer(content)
}

func parseAnswer(content string) (models.SentimentResult, error) {
	cleaned := llm.CleanJSON(content)
	var parsed struct {
		Label      string   `json:"label"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.SentimentResult{}, fmt.Errorf("failed to parse response: %w, content: %s", err, content)
	}
	label, err := ParseLabel(parsed.Label)
	if err != nil {
		return models.SentimentResult{}, err
	}
	if parsed.Confidence == nil {
		return models.SentimentResult{}, fmt.Errorf("response has no confidence, content: %s", content)
	}
	return models.SentimentResult{Label: label, Score: clamp01(*parsed.Confidence)}, nil
}
