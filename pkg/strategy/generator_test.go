package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesmind/salesmind/pkg/archetype"
	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/psychology"
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

func testGenerator(provider llm.Provider) *Generator {
	gateway := llm.NewGatewayWithProvider(&config.LLMConfig{
		Model:      "test-model",
		Timeout:    5,
		MaxRetries: 1,
		CacheSize:  16,
		CacheTTL:   60,
	}, provider)
	return NewGenerator(gateway, nil)
}

const validStrategyJSON = `{
  "quick_response": {"text": "The Supercharger network covers every route you mentioned.", "tone": "confident", "key_points": ["charging"]},
  "main_analysis": "Customer worries about range. Safety ratings and over-the-air updates matter here.",
  "suggested_actions": [{"action": "Show the route planner", "reasoning": "makes charging concrete"}],
  "suggested_questions": [{"text": "Jak daleko Pan zwykle jeździ?"}, {"text": "Czy ładowanie w domu wchodzi w grę?"}],
  "strategic_recommendation": "Anchor on total cost of ownership versus the current car.",
  "next_best_action": "Schedule a test drive on the customer's own commute.",
  "objection_handling": {"potential_objections": ["range"], "responses": ["Autopilot plus the charging network removes trip anxiety."]},
  "buy_signals": ["asked about delivery time"],
  "risk_signals": [],
  "sentiment_score": 7,
  "potential_score": 14,
  "urgency_level": "urgent",
  "strategic_notes": ["note"]
}`

func TestGenerate_FinalizesResponse(t *testing.T) {
	provider := &stubProvider{content: validStrategyJSON}
	g := testGenerator(provider)

	arch := archetype.NewAutomotiveService().Fallback()
	out := g.Generate(context.Background(), Input{
		UserInput:  "klient pyta o zasięg",
		Psychology: &psychology.Profile{},
		DNA:        &synthesis.HolisticProfile{MainDrive: "security"},
		Archetype:  &arch,
	})

	assert.False(t, out.IsFallback)
	assert.True(t, strings.HasPrefix(out.QuickResponse.ID, "qr_"))
	require.Len(t, out.SuggestedQuestions, 2)
	assert.True(t, strings.HasPrefix(out.SuggestedQuestions[0].ID, "sq_"))

	// Out-of-range numerics are clamped, unknown enum values defaulted.
	assert.Equal(t, 10, out.PotentialScore)
	assert.Equal(t, 7, out.SentimentScore)
	assert.Equal(t, "medium", out.UrgencyLevel)

	assert.Equal(t, string(archetype.PragmaticAnalyst), out.ClientArchetype)
	assert.Equal(t, ContextUltraBrain, out.ContextType)
	assert.Equal(t, "test-model", out.ModelUsed)
	assert.False(t, out.GeneratedAt.IsZero())

	// All five completeness factors are met: quick response, recommendation,
	// two questions, next best action, three brand advantage themes.
	assert.Equal(t, 100, out.ConfidenceLevel)
}

func TestGenerate_PartialCompleteness(t *testing.T) {
	// Quick response only: one factor of five.
	provider := &stubProvider{content: `{"quick_response": {"text": "Rozumiem."}}`}
	g := testGenerator(provider)

	out := g.Generate(context.Background(), Input{UserInput: "cisza"})

	assert.Equal(t, 20, out.ConfidenceLevel)
	assert.Equal(t, ContextBasic, out.ContextType)
	// Nil collections come back as empty, never null.
	assert.NotNil(t, out.BuySignals)
	assert.NotNil(t, out.RiskSignals)
	assert.NotNil(t, out.ObjectionHandling.PotentialObjections)
	assert.NotNil(t, out.SuggestedActions)
	assert.NotNil(t, out.SuggestedQuestions)
}

func TestGenerate_DefaultsMissingCollections(t *testing.T) {
	provider := &stubProvider{content: `{"quick_response": {"text": "Jasne."}}`}
	g := testGenerator(provider)

	out := g.Generate(context.Background(), Input{UserInput: "brak list"})

	assert.Empty(t, out.SuggestedActions)
	assert.NotNil(t, out.SuggestedActions)
	assert.Empty(t, out.SuggestedQuestions)
	assert.NotNil(t, out.SuggestedQuestions)

	// An empty archetype hypothesis list gets the neutral placeholder.
	require.Len(t, out.LikelyArchetypes, 1)
	assert.Equal(t, "pragmatic_analyst", out.LikelyArchetypes[0].Name)
}

func TestGenerate_TruncatesOverlongLists(t *testing.T) {
	longJSON := `{
	  "quick_response": {"text": "ok"},
	  "suggested_actions": [{"action":"1"},{"action":"2"},{"action":"3"},{"action":"4"},{"action":"5"},{"action":"6"},{"action":"7"},{"action":"8"}],
	  "suggested_questions": [{"text":"a"},{"text":"b"},{"text":"c"},{"text":"d"}],
	  "strategic_notes": ["1","2","3","4","5","6","7"],
	  "likely_archetypes": [{"name":"a"},{"name":"b"},{"name":"c"}]
	}`
	provider := &stubProvider{content: longJSON}
	g := testGenerator(provider)

	out := g.Generate(context.Background(), Input{UserInput: "test truncation"})

	assert.Len(t, out.SuggestedActions, 6)
	assert.Len(t, out.SuggestedQuestions, 3)
	assert.Len(t, out.StrategicNotes, 5)
	assert.Len(t, out.LikelyArchetypes, 2)
}

func TestGenerate_FallbackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("unreachable")}
	g := testGenerator(provider)

	out := g.Generate(context.Background(), Input{UserInput: "klient milczy", ClientArchetype: "eco_activist"})

	assert.True(t, out.IsFallback)
	assert.NotEmpty(t, out.QuickResponse.Text)
	assert.Equal(t, "eco_activist", out.ClientArchetype)
	assert.Equal(t, 20, out.ConfidenceLevel)
	// The branded fallback restates every canonical advantage.
	assert.Len(t, out.SuggestedActions, len(brandAdvantages))
}

func TestGenerate_FallbackOnMissingQuickResponse(t *testing.T) {
	provider := &stubProvider{content: `{"main_analysis": "no quick response here"}`}
	g := testGenerator(provider)

	out := g.Generate(context.Background(), Input{UserInput: "brak odpowiedzi"})
	assert.True(t, out.IsFallback)
}

func TestCountBrandAdvantages(t *testing.T) {
	out := &Response{
		QuickResponse: QuickResponse{Text: "The Supercharger network and niskie koszty eksploatacji."},
		MainAnalysis:  "Aktualizacje over-the-air keep the car improving. Safety is best in class.",
	}
	// charging, cost, software, safety.
	assert.Equal(t, 4, countBrandAdvantages(out))

	assert.Equal(t, 0, countBrandAdvantages(&Response{QuickResponse: QuickResponse{Text: "nothing relevant"}}))

	// Polish keywords count toward the same themes.
	out = &Response{QuickResponse: QuickResponse{Text: "ładowanie w trasie, bezpieczeństwo rodziny, autopilot"}}
	assert.Equal(t, 3, countBrandAdvantages(out))
}

func TestContextType(t *testing.T) {
	arch := archetype.NewAutomotiveService().Fallback()
	dna := &synthesis.HolisticProfile{}
	psy := &psychology.Profile{}

	assert.Equal(t, ContextBasic, contextType(Input{}))
	assert.Equal(t, ContextArchetype, contextType(Input{Archetype: &arch}))
	assert.Equal(t, ContextHolistic, contextType(Input{DNA: dna}))
	assert.Equal(t, ContextUltraBrain, contextType(Input{DNA: dna, Archetype: &arch, Psychology: psy}))
}

func TestSuggestionID(t *testing.T) {
	id := suggestionID("qr")
	assert.True(t, strings.HasPrefix(id, "qr_"))
	assert.Len(t, id, 9)
	assert.NotEqual(t, id, suggestionID("qr"))
}
