package config

import (
	"fmt"
	"strings"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `yaml:"cors_origins,omitempty"`

	// StreamTokenDelayMS paces SSE token events; the floor is 100ms.
	StreamTokenDelayMS int `yaml:"stream_token_delay_ms,omitempty"`

	// PipelineTimeout is the per-observation budget in seconds.
	PipelineTimeout int `yaml:"pipeline_timeout,omitempty"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.StreamTokenDelayMS == 0 {
		c.StreamTokenDelayMS = 100
	}
	if c.PipelineTimeout == 0 {
		c.PipelineTimeout = 180
	}
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Port)
	}
	if c.StreamTokenDelayMS < 100 {
		return fmt.Errorf("stream token delay must be at least 100ms")
	}
	return nil
}

// Address returns the listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseCORSOrigins splits a comma-separated origin list (CORS_ORIGINS_STR).
func ParseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// RateLimitConfig configures the in-memory request limiter.
type RateLimitConfig struct {
	// Requests per window; 0 disables limiting.
	Requests int `yaml:"requests,omitempty"`

	// Period is the window length in seconds.
	Period int `yaml:"period,omitempty"`
}

func (c *RateLimitConfig) SetDefaults() {
	if c.Period == 0 {
		c.Period = 60
	}
}

// Enabled reports whether limiting is active.
func (c *RateLimitConfig) Enabled() bool {
	return c.Requests > 0
}
