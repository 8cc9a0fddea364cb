package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration, sourced from environment
// variables (loaded from .env for local runs). Process with Load().
type Config struct {
	Production bool   `split_words:"true" default:"false"`
	LogLevel   string `split_words:"true" default:"info"`

	HTTP      HTTPConfig
	Agent     AgentConfig
	Providers ProviderConfig
	Commerce  CommerceConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Analytics AnalyticsConfig

	// Paths to the store knowledge text and per-channel formatting rules.
	KnowledgePath    string `split_words:"true" default:"./knowledge.md"`
	ChannelRulesPath string `split_words:"true" default:"./channels.yaml"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Host string `default:"0.0.0.0"`
	Port int    `default:"8080"`
}

// GetAddress returns the HTTP server listen address
func (h HTTPConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// AgentConfig bounds the orchestration loop
type AgentConfig struct {
	HistoryWindow     int     `split_words:"true" default:"20"`
	MaxToolIterations int     `split_words:"true" default:"5"`
	CallTimeoutSecs   int     `split_words:"true" default:"30"`
	WindowHours       int     `split_words:"true" default:"24"`
	Temperature       float32 `split_words:"true" default:"0.4"`
	MaxTokens         int     `split_words:"true" default:"1024"`
}

// CallTimeout returns the per-provider LLM call timeout
func (a AgentConfig) CallTimeout() time.Duration {
	return time.Duration(a.CallTimeoutSecs) * time.Second
}

// ConversationWindow returns the active-conversation recency window
func (a AgentConfig) ConversationWindow() time.Duration {
	return time.Duration(a.WindowHours) * time.Hour
}

// ProviderConfig configures the LLM provider chain. Priority is a
// comma-separated ordered list of provider names ("openai", "gemini");
// the static fallback is always appended last.
type ProviderConfig struct {
	Priority string `split_words:"true" default:"openai,gemini"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
}

// CommerceConfig configures the commerce-platform read client
type CommerceConfig struct {
	BaseURL     string `split_words:"true"`
	Token       string `split_words:"true"`
	TimeoutSecs int    `split_words:"true" default:"10"`
}

// Timeout returns the commerce client HTTP timeout
func (c CommerceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheConfig selects the read-cache backend and TTLs per data volatility.
// Catalog reads tolerate longer staleness than order/customer reads.
type CacheConfig struct {
	Backend         string `split_words:"true" default:"memory"` // "memory" or "redis"
	CatalogTTLMins  int    `envconfig:"CATALOG_TTL_MINS" default:"15"`
	OrderTTLMins    int    `envconfig:"ORDER_TTL_MINS" default:"3"`
	RedisURL        string `split_words:"true"`
	RedisTimeoutSec int    `split_words:"true" default:"3"`
}

// CatalogTTL returns the TTL for catalog reads
func (c CacheConfig) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLMins) * time.Minute
}

// OrderTTL returns the TTL for order/customer reads
func (c CacheConfig) OrderTTL() time.Duration {
	return time.Duration(c.OrderTTLMins) * time.Minute
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend string `split_words:"true" default:"sqlite"` // "memory", "sqlite", "postgres", "mongo"

	// DSN for SQL backends: a file path / ":memory:" for sqlite,
	// a connection string for postgres.
	DSN string `split_words:"true" default:"./data/shopmate.db"`

	MongoURI      string `split_words:"true" default:"mongodb://localhost:27017"`
	MongoDatabase string `split_words:"true" default:"shopmate"`
}

// AnalyticsConfig configures the buffered analytics recorder. The AMQP sink
// is disabled when URL is empty; events are then dropped on flush.
type AnalyticsConfig struct {
	BufferSize        int    `split_words:"true" default:"64"`
	FlushIntervalSecs int    `split_words:"true" default:"30"`
	AMQPURL           string `envconfig:"AMQP_URL"`
	AMQPQueue         string `envconfig:"AMQP_QUEUE" default:"shopmate_events"`
}

// FlushInterval returns the periodic flush interval
func (a AnalyticsConfig) FlushInterval() time.Duration {
	return time.Duration(a.FlushIntervalSecs) * time.Second
}

// Load reads configuration from SHOPMATE_-prefixed environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("shopmate", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}
