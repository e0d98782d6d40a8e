package embedders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesmind/salesmind/pkg/config"
)

func testEmbedderConfig(host string) *config.EmbedderConfig {
	return &config.EmbedderConfig{
		Type:       "ollama",
		Model:      "nomic-embed-text",
		Host:       host,
		Dimension:  3,
		Timeout:    5,
		MaxRetries: 1,
	}
}

func TestEmbed_Success(t *testing.T) {
	var gotBody ollamaEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	embedder, err := NewOllamaEmbedderFromConfig(testEmbedderConfig(server.URL))
	require.NoError(t, err)

	vec, err := embedder.Embed(context.Background(), "model 3 range")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "nomic-embed-text", gotBody.Model)
	assert.Equal(t, "model 3 range", gotBody.Prompt)
}

func TestEmbed_RetriesTransientServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 0, 0}})
	}))
	defer server.Close()

	embedder, err := NewOllamaEmbedderFromConfig(testEmbedderConfig(server.URL))
	require.NoError(t, err)

	vec, err := embedder.Embed(context.Background(), "charging at home")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbed_FailsFastOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	embedder, err := NewOllamaEmbedderFromConfig(testEmbedderConfig(server.URL))
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 0}})
	}))
	defer server.Close()

	embedder, err := NewOllamaEmbedderFromConfig(testEmbedderConfig(server.URL))
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestEmbed_SendsBearerKeyWhenConfigured(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 0, 0}})
	}))
	defer server.Close()

	cfg := testEmbedderConfig(server.URL)
	cfg.APIKey = "secret"
	embedder, err := NewOllamaEmbedderFromConfig(cfg)
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}
