// Package config holds one configuration struct per concern, following an
// env-first model: every field can be set from a YAML file with ${VAR}
// expansion, but a plain deployment needs nothing beyond environment
// variables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the salesmind service.
type Config struct {
	LLM         LLMConfig         `yaml:"llm,omitempty"`
	Embedder    EmbedderConfig    `yaml:"embedder,omitempty"`
	VectorStore VectorStoreConfig `yaml:"vector_store,omitempty"`
	Database    DatabaseConfig    `yaml:"database,omitempty"`
	Server      ServerConfig      `yaml:"server,omitempty"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit,omitempty"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.VectorStore.SetDefaults()
	c.Database.SetDefaults()
	c.Server.SetDefaults()
	c.RateLimit.SetDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// FromEnv builds a Config from recognized environment variables.
func FromEnv() *Config {
	cfg := &Config{
		LLM: LLMConfig{
			Model:            os.Getenv("OLLAMA_MODEL"),
			FallbackModel:    os.Getenv("OLLAMA_FALLBACK_MODEL"),
			APIKey:           os.Getenv("OLLAMA_API_KEY"),
			Host:             os.Getenv("OLLAMA_API_URL"),
			MaxTokens:        envInt("MAX_TOKENS_PER_REQUEST", 0),
			MaxContextLength: envInt("MAX_CONTEXT_LENGTH", 0),
		},
		VectorStore: VectorStoreConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       envInt("QDRANT_PORT", 0),
			Collection: os.Getenv("QDRANT_COLLECTION_NAME"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			CORSOrigins: ParseCORSOrigins(os.Getenv("CORS_ORIGINS_STR")),
		},
		RateLimit: RateLimitConfig{
			Requests: envInt("RATE_LIMIT_REQUESTS", 0),
			Period:   envInt("RATE_LIMIT_PERIOD", 0),
		},
	}
	cfg.SetDefaults()
	return cfg
}

// Load reads a YAML config file, expands env references, applies defaults
// and validates. An empty path falls back to pure env configuration.
func Load(path string) (*Config, error) {
	LoadDotEnv()

	if path == "" {
		cfg := FromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := ExpandEnvVars(string(data))

	cfg := FromEnv()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
