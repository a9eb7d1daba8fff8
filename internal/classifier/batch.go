package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

// DefaultConcurrency bounds in-flight classifications per batch.
const DefaultConcurrency = 4

// Batch is the outcome of classifying a list of headlines.
type Batch struct {
	Items   []models.AnalyzedHeadline
	Skipped int
	LastErr error
}

// AnalyzeHeadlines classifies every headline with at most concurrency calls
// in flight. Items keep the input order; headlines whose classification
// fails are skipped and counted, never retried.
func AnalyzeHeadlines(ctx context.Context, c Classifier, headlines []models.Headline, concurrency int, log *zap.Logger) Batch {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	slots := make([]*models.AnalyzedHeadline, len(headlines))
	errs := make([]error, len(headlines))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, h := range headlines {
		g.Go(func() error {
			res, err := ClassifyText(ctx, c, h.Title)
			if err != nil {
				errs[i] = err
				return nil
			}
			a := h.Analyze(res)
			slots[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	b := Batch{Items: make([]models.AnalyzedHeadline, 0, len(headlines))}
	for i, slot := range slots {
		if slot == nil {
			b.Skipped++
			b.LastErr = errs[i]
			log.Debug("headline classification failed",
				zap.String("headline", headlines[i].Title),
				zap.Error(errs[i]))
			continue
		}
		b.Items = append(b.Items, *slot)
	}
	return b
}

// ClassifyText runs c on text, turning a panic into an error, rejecting
// unknown labels and clamping the confidence to [0,1].
func ClassifyText(ctx context.Context, c Classifier, text string) (res models.SentimentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	res, err = c.Classify(ctx, text)
	if err != nil {
		return res, err
	}
	if !res.Label.Valid() {
		return res, ErrUnknownLabel
	}
	res.Score = clamp01(res.Score)
	return res, nil
}

// PanicError reports a classifier that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("classifier panic: %v", e.Value)
}
