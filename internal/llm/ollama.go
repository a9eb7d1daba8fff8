package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seenimoa/tickerpulse/internal/infra"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "qwen2.5:7b"
)

// OllamaProvider implements LLMProvider for local Ollama instances.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// OllamaOption configures the Ollama provider.
type OllamaOption func(*OllamaProvider)

// WithOllamaModel sets the default model. Names without a tag
// ("name:tag") are ignored.
func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		if ownsModel(ProviderOllama, model) {
			p.model = model
		}
	}
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *OllamaProvider) { p.client = client }
}

// NewOllamaProvider creates an Ollama provider.
// baseURL is the Ollama server URL (e.g., "http://localhost:11434").
func NewOllamaProvider(baseURL string, opts ...OllamaOption) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	p := &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   defaultOllamaModel,
		client:  infra.NewHTTPClient(300 * time.Second), // longer timeout for local models
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OllamaProvider) Name() string { return ProviderOllama }

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// Chat sends a non-streaming request to /api/chat.
func (p *OllamaProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	body := ollamaRequest{
		Model:    p.model,
		Messages: messages,
		Format:   "json",
	}
	if opts != nil {
		if ownsModel(ProviderOllama, opts.Model) {
			body.Model = opts.Model
		}
		body.Options = &ollamaOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens}
	}

	var out ollamaResponse
	if err := infra.DoJSON(ctx, p.client, http.MethodPost, p.baseURL+"/api/chat", body, &out); err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", ErrProviderDown, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama: %s", out.Error)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}

	return &Response{
		Content:  out.Message.Content,
		Model:    out.Model,
		Provider: ProviderOllama,
		Latency:  time.Since(start),
	}, nil
}
