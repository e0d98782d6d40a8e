package config

import (
	"fmt"
	"time"
)

// LLMProvider identifies the LLM provider type.
type LLMProvider string

const (
	LLMProviderOllama LLMProvider = "ollama"
	LLMProviderOpenAI LLMProvider = "openai"
)

// LLMConfig configures the LLM gateway.
type LLMConfig struct {
	// Provider type (ollama, openai-compatible).
	Provider LLMProvider `yaml:"provider,omitempty"`

	// Model name (e.g., "qwen2.5:14b").
	Model string `yaml:"model,omitempty"`

	// FallbackModel is tried once after the primary model exhausts retries.
	FallbackModel string `yaml:"fallback_model,omitempty"`

	// APIKey for hosted Ollama / OpenAI-compatible endpoints.
	APIKey string `yaml:"api_key,omitempty"`

	// Host is the API base URL.
	Host string `yaml:"host,omitempty"`

	// Temperature for generation.
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxTokens limits response length per request.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// MaxContextLength bounds the prompt token budget.
	MaxContextLength int `yaml:"max_context_length,omitempty"`

	// Timeout is the per-call wall-clock budget in seconds.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries bounds transport retries per call.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// CacheTTL is the response cache TTL in seconds.
	CacheTTL int `yaml:"cache_ttl,omitempty"`

	// CacheSize is the response cache LRU capacity.
	CacheSize int `yaml:"cache_size,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = LLMProviderOllama
	}
	if c.Model == "" {
		c.Model = "qwen2.5:14b"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.MaxContextLength == 0 {
		c.MaxContextLength = 16384
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 3600
	}
	if c.CacheSize == 0 {
		c.CacheSize = 128
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case LLMProviderOllama, LLMProviderOpenAI:
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	return nil
}

// CallTimeout returns the per-call budget as a duration.
func (c *LLMConfig) CallTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
