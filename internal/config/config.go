// Package config handles configuration loading for tickerpulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TICKERPULSE"

// Default feed URL templates. "{symbol}" is replaced with the query-escaped
// ticker symbol.
const (
	YahooHeadlineURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=US&lang=en-US"
	GoogleNewsURL    = "https://news.google.com/rss/search?q={symbol}%20stock&hl=en-US&gl=US&ceid=US:en"
)

// Config represents the complete application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"        yaml:"api"        json:"api"`
	Feeds      FeedsConfig      `mapstructure:"feeds"      yaml:"feeds"      json:"feeds"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier" json:"classifier"`
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"        json:"llm"`
	Market     MarketConfig     `mapstructure:"market"     yaml:"market"     json:"market"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"    json:"logging"`

	file string // config file actually read, empty when running on defaults
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host              string   `mapstructure:"host"                yaml:"host"                json:"host"`
	Port              int      `mapstructure:"port"                yaml:"port"                json:"port"`
	CORSOrigins       []string `mapstructure:"cors_origins"        yaml:"cors_origins"        json:"cors_origins"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec" json:"request_timeout_sec"`
}

// Addr returns the listen address in host:port form.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// RequestTimeout bounds a single HTTP request.
func (a APIConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSec) * time.Second
}

// FeedSourceConfig describes one RSS headline source.
type FeedSourceConfig struct {
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	URL  string `mapstructure:"url"  yaml:"url"  json:"url"` // template containing {symbol}
}

// FeedsConfig holds headline retrieval settings.
type FeedsConfig struct {
	RecencyDays  int                `mapstructure:"recency_days"  yaml:"recency_days"  json:"recency_days"`
	MaxHeadlines int                `mapstructure:"max_headlines" yaml:"max_headlines" json:"max_headlines"`
	TimeoutSec   int                `mapstructure:"timeout_sec"   yaml:"timeout_sec"   json:"timeout_sec"`
	UserAgent    string             `mapstructure:"user_agent"    yaml:"user_agent"    json:"user_agent"`
	Sources      []FeedSourceConfig `mapstructure:"sources"       yaml:"sources"       json:"sources"`
	FinnhubKey   string             `mapstructure:"finnhub_key"   yaml:"finnhub_key"   json:"-"`
}

// Timeout returns the per-source retrieval timeout.
func (f FeedsConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// ClassifierConfig selects and tunes the sentiment classifier.
type ClassifierConfig struct {
	Backend     string `mapstructure:"backend"     yaml:"backend"     json:"backend"` // "keyword" or "llm"
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// Timeout returns the per-call classification timeout.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LLMConfig holds LLM provider configuration for the "llm" classifier backend.
type LLMConfig struct {
	Primary      string   `mapstructure:"primary"       yaml:"primary"       json:"primary"` // "openai", "anthropic", "ollama"
	Fallbacks    []string `mapstructure:"fallbacks"     yaml:"fallbacks"     json:"fallbacks"`
	Model        string   `mapstructure:"model"         yaml:"model"         json:"model"`
	OpenAIKey    string   `mapstructure:"openai_key"    yaml:"openai_key"    json:"-"`
	AnthropicKey string   `mapstructure:"anthropic_key" yaml:"anthropic_key" json:"-"`
	OllamaURL    string   `mapstructure:"ollama_url"    yaml:"ollama_url"    json:"ollama_url"`
	Temperature  float64  `mapstructure:"temperature"   yaml:"temperature"   json:"temperature"`
	MaxTokens    int      `mapstructure:"max_tokens"    yaml:"max_tokens"    json:"max_tokens"`
	MaxRetries   int      `mapstructure:"max_retries"   yaml:"max_retries"   json:"max_retries"`
}

// MarketConfig holds market-data provider settings.
type MarketConfig struct {
	BaseURL     string `mapstructure:"base_url"      yaml:"base_url"      json:"base_url"`
	CacheTTLSec int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec" json:"cache_ttl_sec"`
}

// CacheTTL returns the quote cache lifetime.
func (m MarketConfig) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLSec) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// File returns the path of the config file that was loaded, if any.
func (c *Config) File() string { return c.file }

// Validate checks values that would make the service misbehave at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Feeds.RecencyDays <= 0 {
		errs = append(errs, fmt.Errorf("feeds.recency_days must be positive, got %d", c.Feeds.RecencyDays))
	}
	if c.Feeds.MaxHeadlines <= 0 {
		errs = append(errs, fmt.Errorf("feeds.max_headlines must be positive, got %d", c.Feeds.MaxHeadlines))
	}
	for i, s := range c.Feeds.Sources {
		if !strings.Contains(s.URL, "{symbol}") {
			errs = append(errs, fmt.Errorf("feeds.sources[%d] (%s): url has no {symbol} placeholder", i, s.Name))
		}
	}
	switch c.Classifier.Backend {
	case "keyword", "llm":
	default:
		errs = append(errs, fmt.Errorf("classifier.backend: unknown backend %q", c.Classifier.Backend))
	}
	if c.Classifier.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("classifier.concurrency must be positive, got %d", c.Classifier.Concurrency))
	}
	return errors.Join(errs...)
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.tickerpulse/config.yaml (home directory)
//  3. /etc/tickerpulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: TICKERPULSE_<SECTION>_<KEY>, e.g., TICKERPULSE_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".tickerpulse"))
	v.AddConfigPath("/etc/tickerpulse")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.request_timeout_sec", 120)

	// Feed defaults
	v.SetDefault("feeds.recency_days", 10)
	v.SetDefault("feeds.max_headlines", 25)
	v.SetDefault("feeds.timeout_sec", 15)
	v.SetDefault("feeds.user_agent", "tickerpulse/1.0 (+https://github.com/seenimoa/tickerpulse)")
	v.SetDefault("feeds.sources", []map[string]any{
		{"name": "Yahoo Finance", "url": YahooHeadlineURL},
		{"name": "Google News", "url": GoogleNewsURL},
	})

	// Classifier defaults
	v.SetDefault("classifier.backend", "keyword")
	v.SetDefault("classifier.concurrency", 4)
	v.SetDefault("classifier.timeout_sec", 20)

	// LLM defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.fallbacks", []string{})
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 64)
	v.SetDefault("llm.max_retries", 1)

	// Market defaults
	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.cache_ttl_sec", 300) // 5 minutes

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("TICKERPULSE_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("TICKERPULSE_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("TICKERPULSE_FEEDS_FINNHUB_KEY"); key != "" {
		cfg.Feeds.FinnhubKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
