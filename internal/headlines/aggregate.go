package headlines

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// DefaultMaxHeadlines caps the number of headlines returned by Collect.
const DefaultMaxHeadlines = 25

// Source is a headline provider keyed by ticker symbol.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) ([]models.RawHeadline, error)
}

// SourceError records a source that contributed nothing.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %s", e.Source, e.Message)
}

func (e SourceError) Unwrap() error { return e.Err }

// Result is the outcome of one aggregation run.
type Result struct {
	Headlines    []models.Headline `json:"headlines"`
	Rejected     int               `json:"rejected"`
	Duplicates   int               `json:"duplicates"`
	SourceErrors []SourceError     `json:"source_errors,omitempty"`
}

// Options tunes an Aggregator. Zero values fall back to the defaults.
type Options struct {
	WindowDays    int
	MaxHeadlines  int
	SourceTimeout time.Duration
	Logger        *zap.Logger
	Now           func() time.Time
}

// Aggregator queries its sources for a symbol and merges what they return.
type Aggregator struct {
	sources []Source
	opts    Options
	log     *zap.Logger
}

// NewAggregator creates an aggregator over sources. Source order is the
// merge order.
func NewAggregator(sources []Source, opts Options) *Aggregator {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.MaxHeadlines <= 0 {
		opts.MaxHeadlines = DefaultMaxHeadlines
	}
	if opts.Now == nil {
		opts.Now = utils.NowUTC
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{sources: sources, opts: opts, log: log}
}

// Sources returns the names of the configured sources in merge order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Collect fetches every source concurrently and merges the results in
// source order. It never fails; unavailable sources are reported in
// Result.SourceErrors.
func (a *Aggregator) Collect(ctx context.Context, symbol string) Result {
	now := a.opts.Now()
	batches := make([][]models.RawHeadline, len(a.sources))
	failures := make([]error, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			batches[i], failures[i] = a.fetch(ctx, src, symbol)
			return nil
		})
	}
	_ = g.Wait()

	var srcErrs []SourceError
	for i, err := range failures {
		if err == nil {
			continue
		}
		name := a.sources[i].Name()
		a.log.Warn("headline source unavailable",
			zap.String("source", name),
			zap.String("symbol", symbol),
			zap.Error(err))
		srcErrs = append(srcErrs, SourceError{Source: name, Message: err.Error(), Err: err})
	}

	res := Merge(now, a.opts.WindowDays, a.opts.MaxHeadlines, batches...)
	res.SourceErrors = srcErrs
	a.log.Debug("headlines collected",
		zap.String("symbol", symbol),
		zap.Int("kept", len(res.Headlines)),
		zap.Int("rejected", res.Rejected),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("source_errors", len(srcErrs)))
	return res
}

func (a *Aggregator) fetch(ctx context.Context, src Source, symbol string) (items []models.RawHeadline, err error) {
	if a.opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.SourceTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	items, err = src.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if strings.TrimSpace(items[i].Source) == "" {
			items[i].Source = src.Name()
		}
	}
	return items, nil
}

// Merge normalizes every batch in order against now, de-duplicates the
// concatenation and keeps at most limit entries. A negative limit keeps all.
func Merge(now time.Time, windowDays, limit int, batches ...[]models.RawHeadline) Result {
	var res Result
	merged := make([]models.Headline, 0)
	for _, batch := range batches {
		for _, raw := range batch {
			h, rej := NormalizeWithin(raw, now, windowDays)
			if rej != Accepted {
				res.Rejected++
				continue
			}
			merged = append(merged, h)
		}
	}

	merged, res.Duplicates = Dedupe(merged)
	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	res.Headlines = merged
	return res
}

// Dedupe keeps the first headline per fingerprint, preserving order. It
// returns the kept headlines and the number dropped.
func Dedupe(in []models.Headline) ([]models.Headline, int) {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Headline, 0, len(in))
	for _, h := range in {
		fp := Fingerprint(h.Title)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, h)
	}
	return out, len(in) - len(out)
}

// Fingerprint is the lower-case hex MD5 of the lower-cased title.
func Fingerprint(title string) string {
	sum := md5.Sum([]byte(strings.ToLower(title)))
	return hex.EncodeToString(sum[:])
}
