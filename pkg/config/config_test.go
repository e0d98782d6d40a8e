package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, LLMProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "qwen2.5:14b", cfg.LLM.Model)
	assert.Equal(t, 60, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 128, cfg.LLM.CacheSize)
	assert.Equal(t, 3600, cfg.LLM.CacheTTL)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "salesmind.db", cfg.Database.Path)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 100, cfg.Server.StreamTokenDelayMS)
	assert.Equal(t, 180, cfg.Server.PipelineTimeout)

	require.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DriverInferredFromURL(t *testing.T) {
	tests := []struct {
		url    string
		driver string
	}{
		{"postgres://user:pass@db:5432/salesmind", "postgres"},
		{"postgresql://user:pass@db:5432/salesmind", "postgres"},
		{"mysql://user:pass@db:3306/salesmind", "mysql"},
		{"", "sqlite"},
	}

	for _, tt := range tests {
		cfg := DatabaseConfig{URL: tt.url}
		cfg.SetDefaults()
		assert.Equal(t, tt.driver, cfg.Driver, "url %q", tt.url)
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	pg := DatabaseConfig{URL: "postgres://u:p@db/salesmind"}
	pg.SetDefaults()
	assert.Equal(t, "postgres://u:p@db/salesmind", pg.ConnectionString())

	// go-sql-driver rejects URL-style DSNs, so the scheme is stripped.
	my := DatabaseConfig{URL: "mysql://u:p@tcp(db:3306)/salesmind"}
	my.SetDefaults()
	assert.Equal(t, "u:p@tcp(db:3306)/salesmind", my.ConnectionString())

	lite := DatabaseConfig{Path: "/tmp/x.db"}
	lite.SetDefaults()
	assert.Equal(t, "/tmp/x.db", lite.ConnectionString())

	built := DatabaseConfig{Driver: "postgres", Host: "db", Database: "sm", User: "u", Password: "p"}
	built.SetDefaults()
	assert.Equal(t, "host=db port=5432 dbname=sm user=u password=p sslmode=disable", built.ConnectionString())
}

func TestDatabaseConfig_RejectsUnknownDriver(t *testing.T) {
	cfg := DatabaseConfig{Driver: "oracle"}
	cfg.SetDefaults()
	require.Error(t, cfg.Validate())
}

func TestLLMConfig_Validate(t *testing.T) {
	cfg := LLMConfig{Provider: "bard"}
	require.Error(t, cfg.Validate())

	cfg = LLMConfig{Provider: LLMProviderOllama, Model: "m", Timeout: 30}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.CallTimeout())
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := ServerConfig{}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8000", cfg.Address())

	cfg.Port = 70000
	require.Error(t, cfg.Validate())

	cfg.Port = 8000
	cfg.StreamTokenDelayMS = 50
	require.Error(t, cfg.Validate())
}

func TestParseCORSOrigins(t *testing.T) {
	assert.Nil(t, ParseCORSOrigins(""))
	assert.Equal(t, []string{"*"}, ParseCORSOrigins("*"))
	assert.Equal(t,
		[]string{"http://localhost:3000", "https://app.example.com"},
		ParseCORSOrigins(" http://localhost:3000 , https://app.example.com ,"))
}

func TestRateLimitConfig_Enabled(t *testing.T) {
	cfg := RateLimitConfig{}
	cfg.SetDefaults()
	assert.False(t, cfg.Enabled())

	cfg = RateLimitConfig{Requests: 100}
	cfg.SetDefaults()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, 60, cfg.Period)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SM_TEST_MODEL", "llama3")
	t.Setenv("SM_TEST_EMPTY", "")

	assert.Equal(t, "model: llama3", ExpandEnvVars("model: ${SM_TEST_MODEL}"))
	assert.Equal(t, "model: llama3", ExpandEnvVars("model: $SM_TEST_MODEL"))
	assert.Equal(t, "model: fallback", ExpandEnvVars("model: ${SM_TEST_UNSET:-fallback}"))
	assert.Equal(t, "model: llama3", ExpandEnvVars("model: ${SM_TEST_MODEL:-fallback}"))
	assert.Equal(t, "model: ", ExpandEnvVars("model: ${SM_TEST_EMPTY}"))
	assert.Equal(t, "no refs", ExpandEnvVars("no refs"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "mistral:7b")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/salesmind")
	t.Setenv("CORS_ORIGINS_STR", "http://localhost:3000")
	t.Setenv("RATE_LIMIT_REQUESTS", "50")

	cfg := FromEnv()
	assert.Equal(t, "mistral:7b", cfg.LLM.Model)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 50, cfg.RateLimit.Requests)
	assert.True(t, cfg.RateLimit.Enabled())
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("SM_TEST_PORT", "9001")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: ${SM_TEST_PORT}
llm:
  model: "phi3:mini"
database:
  driver: sqlite
  path: ` + filepath.Join(dir, "test.db") + `
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "phi3:mini", cfg.LLM.Model)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
