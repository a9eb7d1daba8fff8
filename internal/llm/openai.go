package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// defaultOpenAIModel is used when neither the provider nor the request names a model.
const defaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAIProvider implements LLMProvider with the OpenAI Chat Completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*openAISettings)

type openAISettings struct {
	model   string
	reqOpts []option.RequestOption
}

// WithOpenAIModel sets the default model. Names of other providers'
// models are ignored.
func WithOpenAIModel(model string) OpenAIOption {
	return func(s *openAISettings) {
		if ownsModel(ProviderOpenAI, model) {
			s.model = model
		}
	}
}

// WithOpenAIBaseURL sets a custom base URL (e.g., for proxies or tests).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(s *openAISettings) { s.reqOpts = append(s.reqOpts, option.WithBaseURL(url)) }
}

// WithOpenAIMaxRetries sets how often the SDK retries transient failures.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(s *openAISettings) { s.reqOpts = append(s.reqOpts, option.WithMaxRetries(n)) }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := openAISettings{model: string(defaultOpenAIModel)}
	for _, opt := range opts {
		opt(&s)
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, s.reqOpts...)
	return &OpenAIProvider{
		client: openai.NewClient(reqOpts...),
		model:  s.model,
	}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Chat sends messages to the Chat Completions endpoint.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	params := openai.ChatCompletionNewParams{}
	if opts != nil {
		if ownsModel(ProviderOpenAI, opts.Model) {
			model = opts.Model
		}
		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
		params.Temperature = openai.Float(opts.Temperature)
	}
	params.Model = openai.ChatModel(model)

	params.Messages = make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return &Response{
		Content:  resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: ProviderOpenAI,
		Latency:  time.Since(start),
	}, nil
}
