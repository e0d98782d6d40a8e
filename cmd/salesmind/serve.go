package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/dojo"
	"github.com/salesmind/salesmind/pkg/embedders"
	"github.com/salesmind/salesmind/pkg/knowledge"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/observability"
	"github.com/salesmind/salesmind/pkg/pipeline"
	"github.com/salesmind/salesmind/pkg/prompt"
	"github.com/salesmind/salesmind/pkg/psychology"
	"github.com/salesmind/salesmind/pkg/ratelimit"
	"github.com/salesmind/salesmind/pkg/server"
	"github.com/salesmind/salesmind/pkg/store"
	"github.com/salesmind/salesmind/pkg/strategy"
	"github.com/salesmind/salesmind/pkg/synthesis"
	"github.com/salesmind/salesmind/pkg/vectordb"

	indicatorspkg "github.com/salesmind/salesmind/pkg/indicators"
)

const limiterSweepInterval = 5 * time.Minute

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)."`

	// Observability options
	Trace         bool   `help:"Enable OTLP span export."`
	TraceEndpoint string `name:"trace-endpoint" help:"OTLP gRPC endpoint." default:"localhost:4317"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	obs := observability.NewManager(observability.Config{
		Tracing: observability.TracerConfig{
			Enabled:      c.Trace,
			ExporterType: "otlp",
			EndpointURL:  c.TraceEndpoint,
			SamplingRate: 1.0,
		},
		Metrics: observability.MetricsConfig{Enabled: true},
	})
	if err := obs.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
	}()

	st, err := store.NewSQLStoreFromConfig(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	gateway, err := llm.NewGateway(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM gateway: %w", err)
	}
	defer gateway.Close()

	// The knowledge base is optional infrastructure. When the vector store
	// is unreachable the pipeline still runs, without RAG context, and the
	// knowledge endpoints answer 503.
	retriever := buildRetriever(ctx, cfg)

	budget, err := prompt.NewBudget(cfg.LLM.Model, cfg.LLM.MaxContextLength)
	if err != nil {
		slog.Warn("Token budget unavailable, transcripts will not be trimmed", "error", err)
		budget = nil
	}

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Options{
		Store:       st,
		Analyzer:    psychology.NewAnalyzer(gateway),
		Synthesizer: synthesis.NewSynthesizer(gateway),
		Indicators:  indicatorspkg.NewGenerator(gateway),
		Strategist:  strategy.NewGenerator(gateway, retriever),
		Budget:      budget,
		TurnTimeout: time.Duration(cfg.Server.PipelineTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled() {
		limiter = ratelimit.NewLimiter(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.Period)*time.Second)
		go sweepLimiter(ctx, limiter)
		slog.Info("Rate limiting enabled", "requests", cfg.RateLimit.Requests, "period_seconds", cfg.RateLimit.Period)
	}

	srv, err := server.New(server.Options{
		Config:       &cfg.Server,
		Store:        st,
		Orchestrator: orchestrator,
		Retriever:    retriever,
		Trainer:      dojo.NewTrainer(gateway, retriever),
		Limiter:      limiter,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	slog.Info("salesmind ready",
		"addr", cfg.Server.Address(),
		"model", cfg.LLM.Model,
		"database", cfg.Database.Driver,
		"knowledge", retriever != nil)

	return srv.Start(ctx)
}

func buildRetriever(ctx context.Context, cfg *config.Config) *knowledge.Retriever {
	embedder, err := embedders.NewOllamaEmbedderFromConfig(&cfg.Embedder)
	if err != nil {
		slog.Warn("Embedder unavailable, knowledge base disabled", "error", err)
		return nil
	}

	db, err := vectordb.NewProviderFromConfig(&cfg.VectorStore)
	if err != nil {
		slog.Warn("Vector store unavailable, knowledge base disabled", "error", err)
		return nil
	}

	retriever, err := knowledge.NewRetriever(ctx, db, embedder, cfg.VectorStore.Collection)
	if err != nil {
		slog.Warn("Knowledge collection unavailable, knowledge base disabled", "error", err)
		return nil
	}
	return retriever
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
