package config

import "fmt"

// EmbedderConfig configures the sentence embedding provider.
//
// The knowledge collection is created with a fixed model and dimension;
// changing either requires a new collection.
type EmbedderConfig struct {
	Type       string `yaml:"type,omitempty"`
	Model      string `yaml:"model,omitempty"`
	Host       string `yaml:"host,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Dimension  int    `yaml:"dimension,omitempty"`
	Timeout    int    `yaml:"timeout,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Model == "" {
		// Multilingual paraphrase model, 384 dimensions.
		c.Model = "paraphrase-multilingual-minilm"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Dimension == 0 {
		c.Dimension = 384
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *EmbedderConfig) Validate() error {
	if c.Type != "ollama" {
		return fmt.Errorf("unsupported embedder type: %s", c.Type)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedder dimension must be positive")
	}
	return nil
}
