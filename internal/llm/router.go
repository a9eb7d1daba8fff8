package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/config"
)

// Router sends requests to the primary provider and falls back through the
// configured chain when a provider fails.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]LLMProvider
	primary    string
	fallbacks  []string
	maxRetries int
	retryDelay time.Duration
	defaults   ChatOptions
	log        *zap.Logger
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// WithDefaults sets the options used when a request passes none.
func WithDefaults(opts ChatOptions) RouterOption {
	return func(r *Router) { r.defaults = opts }
}

// WithLogger sets the router logger.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRouter creates a new LLM router with the given primary provider.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]LLMProvider),
		primary:    primary,
		maxRetries: 1,
		retryDelay: 500 * time.Millisecond,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Name returns the name of the primary provider (satisfies LLMProvider).
func (r *Router) Name() string {
	return "router/" + r.primary
}

// Chain returns the provider names in the order they are tried, skipping
// providers that are not registered.
func (r *Router) Chain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var chain []string
	for _, name := range append([]string{r.primary}, r.fallbacks...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := r.providers[name]; ok {
			chain = append(chain, name)
		}
	}
	return chain
}

// Chat routes a chat request through the provider chain with fallback.
func (r *Router) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	chain := r.Chain()
	if len(chain) == 0 {
		return nil, ErrNoProviders
	}
	if opts == nil {
		d := r.defaults
		opts = &d
	}

	var lastErr error
	for _, name := range chain {
		provider, _ := r.GetProvider(name)
		resp, err := r.chatWithRetry(ctx, provider, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.log.Warn("llm provider failed", zap.String("provider", name), zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("llm/router: all providers failed, last error: %w", lastErr)
}

// Complete sends a single system+user exchange and returns the answer text.
func (r *Router) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := r.Chat(ctx, []Message{SystemMessage(system), UserMessage(prompt)}, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (r *Router) chatWithRetry(ctx context.Context, provider LLMProvider, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := provider.Chat(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if isNonRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func isNonRetryable(err error) bool {
	return errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// NewRouterFromConfig creates a Router from the LLM config section. Only
// providers with credentials (or a URL, for Ollama) are registered; the
// configured primary and fallbacks are kept in order.
func NewRouterFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*Router, error) {
	router := NewRouter(cfg.Primary,
		WithFallbacks(cfg.Fallbacks...),
		WithMaxRetries(cfg.MaxRetries),
		WithLogger(logger),
		WithDefaults(ChatOptions{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}),
	)

	if cfg.OpenAIKey != "" {
		if p, err := NewOpenAIProvider(cfg.OpenAIKey, WithOpenAIModel(cfg.Model)); err == nil {
			router.RegisterProvider(p)
		}
	}
	if cfg.AnthropicKey != "" {
		if p, err := NewAnthropicProvider(cfg.AnthropicKey, WithAnthropicModel(cfg.Model)); err == nil {
			router.RegisterProvider(p)
		}
	}
	if cfg.OllamaURL != "" {
		if p, err := NewOllamaProvider(cfg.OllamaURL, WithOllamaModel(cfg.Model)); err == nil {
			router.RegisterProvider(p)
		}
	}

	if len(router.Chain()) == 0 {
		return nil, fmt.Errorf("%w: primary %q and fallbacks %v have no credentials", ErrNoProviders, cfg.Primary, cfg.Fallbacks)
	}
	return router, nil
}
