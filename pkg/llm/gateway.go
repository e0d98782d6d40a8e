package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/salesmind/salesmind/pkg/cache"
	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/observability"
)

// Gateway is the single LLM call primitive used by every analysis stage.
//
// Semantics: up to MaxRetries attempts with exponential backoff (1s, 2s, 4s)
// inside a total wall-clock budget; after the primary model exhausts its
// attempts the fallback model, when configured, gets one more. The response
// cache is opportunistic: concurrent callers missing the same key may both
// reach the provider.
type Gateway struct {
	cfg      *config.LLMConfig
	provider Provider
	cache    *cache.Cache[string]
}

type cacheKeyPayload struct {
	System string `json:"system"`
	User   string `json:"user"`
	Model  string `json:"model"`
}

// NewGateway selects the provider from config and builds the gateway.
func NewGateway(cfg *config.LLMConfig) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var provider Provider
	var err error

	switch cfg.Provider {
	case config.LLMProviderOllama:
		provider, err = NewOllamaProviderFromConfig(cfg)
	case config.LLMProviderOpenAI:
		provider, err = NewOpenAIProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create llm provider: %w", err)
	}

	return NewGatewayWithProvider(cfg, provider), nil
}

// NewGatewayWithProvider builds a gateway over an explicit provider.
// Tests inject stub providers through this constructor.
func NewGatewayWithProvider(cfg *config.LLMConfig, provider Provider) *Gateway {
	return &Gateway{
		cfg:      cfg,
		provider: provider,
		cache:    cache.New[string](cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second),
	}
}

// Model returns the configured primary model name.
func (g *Gateway) Model() string { return g.cfg.Model }

// Generate runs one system+user exchange through the provider.
// cacheKeyPrefix namespaces the response cache per calling stage; useCache
// controls whether the cache is consulted and populated.
func (g *Gateway) Generate(ctx context.Context, systemPrompt, userPrompt, cacheKeyPrefix string, useCache bool) (*Response, error) {
	key := cache.Key(cacheKeyPrefix, cacheKeyPayload{
		System: systemPrompt,
		User:   userPrompt,
		Model:  g.cfg.Model,
	})

	if useCache {
		if content, ok := g.cache.Get(key); ok {
			if m := observability.GetGlobalMetrics(); m != nil {
				m.RecordCacheLookup(ctx, "llm:"+cacheKeyPrefix, true)
			}
			return &Response{Content: content, Model: g.cfg.Model, Timestamp: time.Now()}, nil
		}
		if m := observability.GetGlobalMetrics(); m != nil {
			m.RecordCacheLookup(ctx, "llm:"+cacheKeyPrefix, false)
		}
	}

	tracer := observability.GetTracer("salesmind.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, g.cfg.Model),
			attribute.String(observability.AttrCachePrefix, cacheKeyPrefix),
			attribute.String("provider", g.provider.Name()),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout())
	defer cancel()

	startTime := time.Now()
	content, model, err := g.generateWithRetries(ctx, systemPrompt, userPrompt)
	duration := time.Since(startTime)

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordLLMCall(ctx, g.cfg.Model, duration, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "success")

	if useCache {
		g.cache.Add(key, content)
	}

	return &Response{Content: content, Model: model, Timestamp: time.Now()}, nil
}

func (g *Gateway) generateWithRetries(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.cfg.MaxRetries; attempt++ {
		content, err := g.provider.Complete(ctx, g.cfg.Model, systemPrompt, userPrompt)
		if err == nil {
			return content, g.cfg.Model, nil
		}
		lastErr = err

		slog.Warn("LLM call failed",
			"model", g.cfg.Model,
			"attempt", attempt,
			"max_attempts", g.cfg.MaxRetries,
			"error", err)

		if ctx.Err() != nil {
			return "", "", fmt.Errorf("%w: %s", ErrLLMTimeout, ctx.Err())
		}

		if attempt < g.cfg.MaxRetries {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", "", fmt.Errorf("%w: %s", ErrLLMTimeout, ctx.Err())
			}
		}
	}

	if g.cfg.FallbackModel != "" {
		slog.Warn("primary model exhausted retries, trying fallback model",
			"primary", g.cfg.Model,
			"fallback", g.cfg.FallbackModel)

		content, err := g.provider.Complete(ctx, g.cfg.FallbackModel, systemPrompt, userPrompt)
		if err == nil {
			return content, g.cfg.FallbackModel, nil
		}
		lastErr = err

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", "", fmt.Errorf("%w: %s", ErrLLMTimeout, ctx.Err())
		}
	}

	return "", "", fmt.Errorf("%w: %s", ErrLLMUnavailable, lastErr)
}

// Close releases the underlying provider.
func (g *Gateway) Close() error {
	return g.provider.Close()
}
