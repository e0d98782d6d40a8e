package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	// Defaults to a no-op recorder so call sites never need a nil check.
	globalMetrics Metrics = &PrometheusMetrics{}
	metricsMu     sync.RWMutex
)

// Metrics records the pipeline's operational signals.
type Metrics interface {
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, err error)
	RecordStage(ctx context.Context, stage string, duration time.Duration, fallback bool)
	RecordTurn(ctx context.Context, duration time.Duration, err error)
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
}

// MetricsConfig toggles the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PrometheusMetrics implements Metrics on otel instruments backed by the
// Prometheus exporter (scraped via /metrics).
type PrometheusMetrics struct {
	llmDuration   metric.Float64Histogram
	llmErrors     metric.Int64Counter
	stageDuration metric.Float64Histogram
	stageFallback metric.Int64Counter
	turnDuration  metric.Float64Histogram
	turnsTotal    metric.Int64Counter
	turnErrors    metric.Int64Counter
	cacheLookups  metric.Int64Counter
}

// InitMetrics builds the instrument set. A disabled config yields an empty
// recorder whose methods are no-ops.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("salesmind")

	m := &PrometheusMetrics{}

	if m.llmDuration, err = meter.Float64Histogram(
		"salesmind_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	if m.llmErrors, err = meter.Int64Counter(
		"salesmind_llm_errors_total",
		metric.WithDescription("Total LLM errors after retry exhaustion"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	if m.stageDuration, err = meter.Float64Histogram(
		"salesmind_pipeline_stage_duration_seconds",
		metric.WithDescription("Analysis pipeline stage duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stage duration histogram: %w", err)
	}

	if m.stageFallback, err = meter.Int64Counter(
		"salesmind_pipeline_stage_fallbacks_total",
		metric.WithDescription("Stages that degraded to their fallback output"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stage fallback counter: %w", err)
	}

	if m.turnDuration, err = meter.Float64Histogram(
		"salesmind_pipeline_turn_duration_seconds",
		metric.WithDescription("Full observation turn duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create turn duration histogram: %w", err)
	}

	if m.turnsTotal, err = meter.Int64Counter(
		"salesmind_pipeline_turns_total",
		metric.WithDescription("Total processed observations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create turns counter: %w", err)
	}

	if m.turnErrors, err = meter.Int64Counter(
		"salesmind_pipeline_turn_errors_total",
		metric.WithDescription("Observations that surfaced a fatal error"),
	); err != nil {
		return nil, fmt.Errorf("failed to create turn errors counter: %w", err)
	}

	if m.cacheLookups, err = meter.Int64Counter(
		"salesmind_cache_lookups_total",
		metric.WithDescription("Cache lookups by cache name and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache lookups counter: %w", err)
	}

	return m, nil
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil && m.llmErrors != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, fallback bool) {
	if m == nil || m.stageDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.stageDuration.Record(ctx, duration.Seconds(), attrs)
	if fallback && m.stageFallback != nil {
		m.stageFallback.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordTurn(ctx context.Context, duration time.Duration, err error) {
	if m == nil || m.turnDuration == nil {
		return
	}
	m.turnDuration.Record(ctx, duration.Seconds())
	m.turnsTotal.Add(ctx, 1)
	if err != nil && m.turnErrors != nil {
		m.turnErrors.Add(ctx, 1)
	}
}

func (m *PrometheusMetrics) RecordCacheLookup(ctx context.Context, cacheName string, hit bool) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cacheName),
		attribute.Bool("hit", hit),
	))
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
