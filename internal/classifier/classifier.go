// Package classifier scores the sentiment of short financial texts. A
// Classifier is called once per headline and once per user-supplied text;
// a failure affects only that one item.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/config"
	"github.com/seenimoa/tickerpulse/internal/llm"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// Backend names accepted in classifier.backend.
const (
	BackendKeyword = "keyword"
	BackendLLM     = "llm"
)

var (
	// ErrEmptyText is returned for text that is empty after trimming.
	ErrEmptyText = errors.New("classifier: empty text")

	// ErrUnknownLabel is returned when a label cannot be mapped.
	ErrUnknownLabel = errors.New("classifier: unknown label")
)

// Classifier maps a text to a sentiment label with a confidence in [0,1].
type Classifier interface {
	Name() string
	Classify(ctx context.Context, text string) (models.SentimentResult, error)
}

// ParseLabel maps a label as produced by a model ("Positive", "NEGATIVE",
// " neutral ") onto a models.Label.
func ParseLabel(s string) (models.Label, error) {
	l := models.Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	return l, nil
}

// New builds the classifier selected by cfg.Backend.
func New(cfg config.ClassifierConfig, llmCfg config.LLMConfig, logger *zap.Logger) (Classifier, error) {
	var c Classifier
	switch cfg.Backend {
	case "", BackendKeyword:
		c = NewKeyword()
	case BackendLLM:
		router, err := llm.NewRouterFromConfig(llmCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("llm classifier: %w", err)
		}
		c = NewLLM(router)
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
	return WithTimeout(c, cfg.Timeout()), nil
}

// WithTimeout bounds every Classify call on c by d. A non-positive d
// returns c unchanged.
func WithTimeout(c Classifier, d time.Duration) Classifier {
	if d <= 0 {
		return c
	}
	return &timeoutClassifier{inner: c, timeout: d}
}

type timeoutClassifier struct {
	inner   Classifier
	timeout time.Duration
}

func (t *timeoutClassifier) Name() string { return t.inner.Name() }

func (t *timeoutClassifier) Classify(ctx context.Context, text string) (models.SentimentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Classify(ctx, text)
}

// cleanText collapses whitespace and rejects empty input.
func cleanText(text string) (string, error) {
	s := strings.Join(strings.Fields(text), " ")
	if s == "" {
		return "", ErrEmptyText
	}
	return s, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
