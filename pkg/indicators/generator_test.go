package indicators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/synthesis"
)

type stubProvider struct {
	content string
	err     error
	calls   int
}

func (p *stubProvider) Complete(ctx context.Context, model, system, user string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.content, nil
}

func (p *stubProvider) Name() string { return "stub" }
func (p *stubProvider) Close() error { return nil }

func testGateway(provider llm.Provider) *llm.Gateway {
	return llm.NewGatewayWithProvider(&config.LLMConfig{
		Model:      "test-model",
		Timeout:    5,
		MaxRetries: 1,
		CacheSize:  16,
		CacheTTL:   60,
	}, provider)
}

func realDNA() *synthesis.HolisticProfile {
	return &synthesis.HolisticProfile{
		HolisticSummary: "decisive buyer",
		MainDrive:       "status",
		KeyLevers:       []string{"exclusivity"},
		RedFlags:        []string{"price talk"},
		Confidence:      80,
	}
}

const validIndicatorsJSON = `{
  "purchase_temperature": {"value": 72, "level": "warm", "rationale": "r", "strategy": "s", "confidence": 70},
  "customer_journey_stage": {"value": "evaluation", "progress_percentage": 60, "next_stage": "", "rationale": "r", "strategy": "s", "confidence": 65},
  "churn_risk": {"value": 20, "level": "high", "risk_factors": ["competitor demo booked"], "rationale": "r", "strategy": "s", "confidence": 60},
  "sales_potential": {"value": 350000, "currency": "", "probability": 55, "estimated_timeframe": "2-4 weeks", "rationale": "r", "strategy": "s", "confidence": 60}
}`

func TestDerive_NormalizesResponse(t *testing.T) {
	provider := &stubProvider{content: validIndicatorsJSON}
	g := NewGenerator(testGateway(provider))

	ind := g.Derive(context.Background(), realDNA(), "")

	assert.False(t, ind.IsFallback)
	// Level buckets are recomputed from values, not trusted from the model.
	assert.Equal(t, "hot", ind.PurchaseTemperature.Level)
	assert.Equal(t, "low", ind.ChurnRisk.Level)
	assert.Equal(t, "decision", ind.CustomerJourneyStage.NextStage)
	assert.Equal(t, "PLN", ind.SalesPotential.Currency)
	assert.False(t, ind.GeneratedAt.IsZero())
}

func TestDerive_FallbackDNAShortCircuits(t *testing.T) {
	provider := &stubProvider{content: validIndicatorsJSON}
	g := NewGenerator(testGateway(provider))

	dna := realDNA()
	dna.IsFallback = true

	ind := g.Derive(context.Background(), dna, "")
	assert.True(t, ind.IsFallback)
	assert.Equal(t, 0, provider.calls)

	ind = g.Derive(context.Background(), nil, "")
	assert.True(t, ind.IsFallback)
	assert.Equal(t, 0, provider.calls)
}

func TestDerive_CacheHitSkipsModel(t *testing.T) {
	provider := &stubProvider{content: validIndicatorsJSON}
	g := NewGenerator(testGateway(provider))
	dna := realDNA()

	g.Derive(context.Background(), dna, "")
	g.Derive(context.Background(), dna, "")

	assert.Equal(t, 1, provider.calls)
}

func TestDerive_CacheIgnoresSynthesisTimestamp(t *testing.T) {
	provider := &stubProvider{content: validIndicatorsJSON}
	g := NewGenerator(testGateway(provider))

	first := realDNA()
	first.SynthesisTS = time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	g.Derive(context.Background(), first, "")

	// An unchanged profile re-synthesized later carries a fresh timestamp
	// but must still hit the indicator cache.
	second := realDNA()
	second.SynthesisTS = time.Date(2026, 8, 26, 10, 5, 0, 0, time.UTC)
	g.Derive(context.Background(), second, "")

	assert.Equal(t, 1, provider.calls)
}

func TestDerive_FallbackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("unreachable")}
	g := NewGenerator(testGateway(provider))

	ind := g.Derive(context.Background(), realDNA(), "")

	assert.True(t, ind.IsFallback)
	assert.Equal(t, 50, ind.PurchaseTemperature.Value)
	assert.Equal(t, "warm", ind.PurchaseTemperature.Level)
	assert.Equal(t, "consideration", ind.CustomerJourneyStage.Value)
	assert.Equal(t, "evaluation", ind.CustomerJourneyStage.NextStage)
	assert.Equal(t, "medium", ind.ChurnRisk.Level)
	assert.Equal(t, 250000.0, ind.SalesPotential.Value)
	assert.Equal(t, 10, ind.PurchaseTemperature.Confidence)
}

func TestNormalize_InvalidStageAndClamps(t *testing.T) {
	ind := &SalesIndicators{}
	ind.PurchaseTemperature.Value = 140
	ind.CustomerJourneyStage.Value = "daydreaming"
	ind.CustomerJourneyStage.ProgressPercentage = -5
	ind.ChurnRisk.Value = -10
	ind.SalesPotential.Value = -100
	ind.SalesPotential.Probability = 900

	normalize(ind)

	assert.Equal(t, 100, ind.PurchaseTemperature.Value)
	assert.Equal(t, "hot", ind.PurchaseTemperature.Level)
	assert.Equal(t, "consideration", ind.CustomerJourneyStage.Value)
	assert.Equal(t, 0, ind.CustomerJourneyStage.ProgressPercentage)
	assert.Equal(t, 0, ind.ChurnRisk.Value)
	assert.Equal(t, "low", ind.ChurnRisk.Level)
	assert.Equal(t, 0.0, ind.SalesPotential.Value)
	assert.Equal(t, 100, ind.SalesPotential.Probability)
	assert.Equal(t, "PLN", ind.SalesPotential.Currency)
}

func TestTemperatureAndRiskBuckets(t *testing.T) {
	assert.Equal(t, "cold", TemperatureLevel(0))
	assert.Equal(t, "cold", TemperatureLevel(33))
	assert.Equal(t, "warm", TemperatureLevel(34))
	assert.Equal(t, "warm", TemperatureLevel(66))
	assert.Equal(t, "hot", TemperatureLevel(67))

	assert.Equal(t, "low", RiskLevel(33))
	assert.Equal(t, "medium", RiskLevel(50))
	assert.Equal(t, "high", RiskLevel(67))
}

func TestNextJourneyStage(t *testing.T) {
	assert.Equal(t, "interest", NextJourneyStage("awareness"))
	assert.Equal(t, "purchase", NextJourneyStage("decision"))
	assert.Equal(t, "purchase", NextJourneyStage("purchase"))
	assert.Equal(t, "purchase", NextJourneyStage("unknown"))
}
