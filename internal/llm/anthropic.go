package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = anthropic.Model("claude-haiku-4-5")
	defaultAnthropicMaxTokens = 256
)

// AnthropicProvider implements LLMProvider with the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*anthropicSettings)

type anthropicSettings struct {
	model   string
	reqOpts []option.RequestOption
}

// WithAnthropicModel sets the default model. Names that are not Claude
// models are ignored.
func WithAnthropicModel(model string) AnthropicOption {
	return func(s *anthropicSettings) {
		if ownsModel(ProviderAnthropic, model) {
			s.model = model
		}
	}
}

// WithAnthropicBaseURL sets a custom base URL (e.g., for proxies or tests).
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(s *anthropicSettings) { s.reqOpts = append(s.reqOpts, option.WithBaseURL(url)) }
}

// WithAnthropicMaxRetries sets how often the SDK retries transient failures.
func WithAnthropicMaxRetries(n int) AnthropicOption {
	return func(s *anthropicSettings) { s.reqOpts = append(s.reqOpts, option.WithMaxRetries(n)) }
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := anthropicSettings{model: string(defaultAnthropicModel)}
	for _, opt := range opts {
		opt(&s)
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, s.reqOpts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
		model:  s.model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Chat sends messages to the Messages endpoint.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	system, convo := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultAnthropicMaxTokens,
	}
	if opts != nil {
		if ownsModel(ProviderAnthropic, opts.Model) {
			params.Model = anthropic.Model(opts.Model)
		}
		if opts.MaxTokens > 0 {
			params.MaxTokens = int64(opts.MaxTokens)
		}
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range convo {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	return &Response{
		Content:  sb.String(),
		Model:    string(resp.Model),
		Provider: ProviderAnthropic,
		Latency:  time.Since(start),
	}, nil
}
