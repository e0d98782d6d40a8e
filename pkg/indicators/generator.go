package indicators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salesmind/salesmind/pkg/cache"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/observability"
	"github.com/salesmind/salesmind/pkg/synthesis"
)

const (
	cacheKeyPrefix = "indicators"

	fallbackConfidence = 10

	cacheTTL  = time.Hour
	cacheSize = 128
)

const generatorSystemPrompt = `You are a sales operations analyst. From the Customer DNA below derive
four sales indicators for a Tesla seller.

Respond with a single JSON object, no prose:
{
  "purchase_temperature": {"value": 0, "level": "cold|warm|hot", "rationale": "", "strategy": "", "confidence": 0},
  "customer_journey_stage": {"value": "awareness|interest|consideration|evaluation|decision|purchase", "progress_percentage": 0, "next_stage": "", "rationale": "", "strategy": "", "confidence": 0},
  "churn_risk": {"value": 0, "level": "low|medium|high", "risk_factors": [""], "rationale": "", "strategy": "", "confidence": 0},
  "sales_potential": {"value": 0, "currency": "PLN", "probability": 0, "estimated_timeframe": "", "rationale": "", "strategy": "", "confidence": 0}
}

Alignment rules (absolute):
- Indicators must be mutually coherent. A hot temperature with an awareness stage is forbidden;
  a decision stage implies warm or hot temperature and probability above 50.
- Indicators must reflect the archetype. Detailed technical questions read as high temperature for a
  pragmatic analyst but as hesitation for a status seeker.
- sales_potential.value uses PLN. B2B deals range 100000 to 10000000; B2C deals range 50000 to 500000.
  Pick within the band that matches the customer.`

// Generator derives the four-indicator block from the Customer DNA. Results
// are cached on the DNA content.
type Generator struct {
	gateway *llm.Gateway
	cache   *cache.Cache[SalesIndicators]
}

func NewGenerator(gateway *llm.Gateway) *Generator {
	return &Generator{
		gateway: gateway,
		cache:   cache.New[SalesIndicators](cacheSize, cacheTTL),
	}
}

// Derive computes the indicators for the DNA. A fallback DNA yields fallback
// indicators without a model call.
func (g *Generator) Derive(ctx context.Context, dna *synthesis.HolisticProfile, sessionContext string) SalesIndicators {
	if dna == nil || dna.IsFallback {
		return Fallback()
	}

	// SynthesisTS is refreshed on every synthesis pass, cache hits included,
	// so the key and the prompt use a timestamp-free view of the DNA.
	view := *dna
	view.SynthesisTS = time.Time{}

	key := cache.FullKey(cacheKeyPrefix, &view)
	if cached, ok := g.cache.Get(key); ok {
		observability.GetGlobalMetrics().RecordCacheLookup(ctx, "indicators", true)
		cached.GeneratedAt = time.Now().UTC()
		return cached
	}
	observability.GetGlobalMetrics().RecordCacheLookup(ctx, "indicators", false)

	userPrompt := buildGeneratorUserPrompt(&view, sessionContext)

	resp, err := g.gateway.Generate(ctx, generatorSystemPrompt, userPrompt, cacheKeyPrefix, true)
	if err != nil {
		slog.Warn("indicator derivation failed, using fallback indicators", "error", err)
		return Fallback()
	}

	ind, err := parseIndicators(resp.Content)
	if err != nil {
		slog.Warn("indicator response invalid, using fallback indicators", "error", err)
		return Fallback()
	}

	ind.GeneratedAt = time.Now().UTC()

	g.cache.Add(key, *ind)
	return *ind
}

func buildGeneratorUserPrompt(dna *synthesis.HolisticProfile, sessionContext string) string {
	var b strings.Builder

	dnaJSON, err := json.MarshalIndent(dna, "", "  ")
	if err == nil {
		fmt.Fprintf(&b, "CUSTOMER DNA:\n%s\n", dnaJSON)
	}

	if sessionContext != "" {
		fmt.Fprintf(&b, "\nSESSION CONTEXT:\n%s\n", sessionContext)
	}

	b.WriteString("\nDerive the four indicators and respond with the JSON object only.")
	return b.String()
}

func parseIndicators(content string) (*SalesIndicators, error) {
	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var ind SalesIndicators
	if err := json.Unmarshal([]byte(jsonStr), &ind); err != nil {
		return nil, fmt.Errorf("failed to parse indicators response: %w", err)
	}

	normalize(&ind)
	return &ind, nil
}

// normalize clamps ranges and recomputes the derived level fields so a model
// that mislabels a bucket cannot emit value=80 level=cold.
func normalize(ind *SalesIndicators) {
	ind.PurchaseTemperature.Value = clamp(ind.PurchaseTemperature.Value, 0, 100)
	ind.PurchaseTemperature.Level = TemperatureLevel(ind.PurchaseTemperature.Value)
	ind.PurchaseTemperature.Confidence = clamp(ind.PurchaseTemperature.Confidence, 0, 100)

	if !validStage(ind.CustomerJourneyStage.Value) {
		ind.CustomerJourneyStage.Value = "consideration"
	}
	ind.CustomerJourneyStage.ProgressPercentage = clamp(ind.CustomerJourneyStage.ProgressPercentage, 0, 100)
	ind.CustomerJourneyStage.NextStage = NextJourneyStage(ind.CustomerJourneyStage.Value)
	ind.CustomerJourneyStage.Confidence = clamp(ind.CustomerJourneyStage.Confidence, 0, 100)

	ind.ChurnRisk.Value = clamp(ind.ChurnRisk.Value, 0, 100)
	ind.ChurnRisk.Level = RiskLevel(ind.ChurnRisk.Value)
	ind.ChurnRisk.Confidence = clamp(ind.ChurnRisk.Confidence, 0, 100)

	if ind.SalesPotential.Value < 0 {
		ind.SalesPotential.Value = 0
	}
	if ind.SalesPotential.Currency == "" {
		ind.SalesPotential.Currency = "PLN"
	}
	ind.SalesPotential.Probability = clamp(ind.SalesPotential.Probability, 0, 100)
	ind.SalesPotential.Confidence = clamp(ind.SalesPotential.Confidence, 0, 100)
}

func validStage(stage string) bool {
	for _, s := range JourneyStages {
		if s == stage {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Fallback is the neutral indicator block used when derivation is impossible.
func Fallback() SalesIndicators {
	return SalesIndicators{
		PurchaseTemperature: PurchaseTemperature{
			Value:      50,
			Level:      "warm",
			Rationale:  "insufficient signal, neutral midpoint assumed",
			Strategy:   "probe for buying intent with open questions",
			Confidence: fallbackConfidence,
		},
		CustomerJourneyStage: JourneyStage{
			Value:              "consideration",
			ProgressPercentage: 40,
			NextStage:          "evaluation",
			Rationale:          "insufficient signal, mid-funnel assumed",
			Strategy:           "clarify which alternatives the customer is weighing",
			Confidence:         fallbackConfidence,
		},
		ChurnRisk: ChurnRisk{
			Value:       50,
			Level:       "medium",
			RiskFactors: []string{"customer motivation not yet established"},
			Rationale:   "insufficient signal, neutral midpoint assumed",
			Strategy:    "secure a concrete next step before the conversation ends",
			Confidence:  fallbackConfidence,
		},
		SalesPotential: SalesPotential{
			Value:              250000,
			Currency:           "PLN",
			Probability:        40,
			EstimatedTimeframe: "1-3 months",
			Rationale:          "insufficient signal, mid-band single-vehicle deal assumed",
			Strategy:           "qualify budget and decision timeline",
			Confidence:         fallbackConfidence,
		},
		IsFallback:  true,
		GeneratedAt: time.Now().UTC(),
	}
}
