package psychology

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/llm"
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
	cfg := &config.LLMConfig{
		Model:      "test-model",
		Timeout:    5,
		MaxRetries: 1,
		CacheSize:  16,
		CacheTTL:   60,
	}
	return llm.NewGatewayWithProvider(cfg, provider)
}

const completeAnalyzerJSON = `{
  "cumulative_psychology": {
    "big_five": {
      "openness": {"score": 7, "rationale": "asks about novelty", "strategy": "show the new"},
      "conscientiousness": {"score": 6, "rationale": "r", "strategy": "s"},
      "extraversion": {"score": 8, "rationale": "r", "strategy": "s"},
      "agreeableness": {"score": 4, "rationale": "r", "strategy": "s"},
      "neuroticism": {"score": 3, "rationale": "r", "strategy": "s"}
    },
    "disc": {
      "dominance": {"score": 7, "rationale": "r", "strategy": "s"},
      "influence": {"score": 8, "rationale": "r", "strategy": "s"},
      "steadiness": {"score": 3, "rationale": "r", "strategy": "s"},
      "compliance": {"score": 4, "rationale": "r", "strategy": "s"}
    },
    "schwartz_values": [
      {"name": "achievement", "strength": 8, "rationale": "r", "strategy": "s", "present": true}
    ],
    "observations_summary": "driven, image-conscious"
  },
  "psychology_confidence": 70,
  "suggested_questions": [
    {"question": "Czy ważny jest dla Pana prestiż marki?", "psychological_target": "big_five.extraversion"}
  ],
  "customer_archetype": {"archetype_key": "status_seeker"}
}`

func TestAnalyze_CompleteResponse(t *testing.T) {
	provider := &stubProvider{content: completeAnalyzerJSON}
	a := NewAnalyzer(testGateway(provider))

	out := a.Analyze(context.Background(), "[1] 10:00:00 - seller: klient pyta o osiągi", nil, 0)

	assert.False(t, out.IsFallback)
	assert.Empty(t, out.RepairedFields)
	assert.Equal(t, 70, out.Confidence)
	assert.Equal(t, 7.0, out.Profile.BigFive.Openness.Score)
	assert.Equal(t, 8.0, out.Profile.DISC.Influence.Score)
	assert.Equal(t, "status_seeker", out.ProposedArchetypeKey)
	assert.Equal(t, "driven, image-conscious", out.Profile.ObservationsSummary)

	require.Len(t, out.ClarifyingQuestions, 1)
	assert.Equal(t, "confirms", out.ClarifyingQuestions[0].OptionA)
	assert.Equal(t, "denies", out.ClarifyingQuestions[0].OptionB)
}

func TestAnalyze_RepairsNullAndMissingFields(t *testing.T) {
	// openness is null, agreeableness is absent, schwartz_values and
	// confidence are missing entirely.
	provider := &stubProvider{content: `{
	  "cumulative_psychology": {
	    "big_five": {
	      "openness": {"score": null, "rationale": "", "strategy": ""},
	      "conscientiousness": {"score": 6, "rationale": "r", "strategy": "s"},
	      "extraversion": {"score": 8, "rationale": "r", "strategy": "s"},
	      "neuroticism": {"score": 3, "rationale": "r", "strategy": "s"}
	    },
	    "disc": {
	      "dominance": {"score": 7, "rationale": "r", "strategy": "s"},
	      "influence": {"score": 8, "rationale": "r", "strategy": "s"},
	      "steadiness": {"score": 3, "rationale": "r", "strategy": "s"},
	      "compliance": {"score": 4, "rationale": "r", "strategy": "s"}
	    }
	  }
	}`}
	a := NewAnalyzer(testGateway(provider))

	out := a.Analyze(context.Background(), "[1] 10:01:00 - seller: nic konkretnego", nil, 0)

	assert.False(t, out.IsFallback)
	assert.Equal(t, 30, out.Confidence)

	assert.Equal(t, 5.0, out.Profile.BigFive.Openness.Score)
	assert.Equal(t, 5.0, out.Profile.BigFive.Agreeableness.Score)
	assert.Equal(t, "imputed, insufficient evidence", out.Profile.BigFive.Openness.Rationale)

	assert.Contains(t, out.RepairedFields, "big_five.openness")
	assert.Contains(t, out.RepairedFields, "big_five.agreeableness")
	assert.Contains(t, out.RepairedFields, "schwartz_values")
	assert.Contains(t, out.RepairedFields, "psychology_confidence")
	assert.Contains(t, out.RepairedFields, "customer_archetype")
	assert.NotContains(t, out.RepairedFields, "big_five.extraversion")

	require.Len(t, out.Profile.SchwartzValues, 1)
	assert.Equal(t, "security", out.Profile.SchwartzValues[0].Name)
}

func TestAnalyze_RepairsOutOfRangeScoresAndBlankText(t *testing.T) {
	// openness carries an out-of-range score with no rationale or strategy,
	// dominance a negative score, extraversion only a blank strategy.
	provider := &stubProvider{content: `{
	  "cumulative_psychology": {
	    "big_five": {
	      "openness": {"score": 15, "rationale": "", "strategy": ""},
	      "conscientiousness": {"score": 6, "rationale": "r", "strategy": "s"},
	      "extraversion": {"score": 8, "rationale": "r", "strategy": "  "},
	      "agreeableness": {"score": 4, "rationale": "r", "strategy": "s"},
	      "neuroticism": {"score": 3, "rationale": "r", "strategy": "s"}
	    },
	    "disc": {
	      "dominance": {"score": -2, "rationale": "r", "strategy": "s"},
	      "influence": {"score": 8, "rationale": "r", "strategy": "s"},
	      "steadiness": {"score": 3, "rationale": "r", "strategy": "s"},
	      "compliance": {"score": 4, "rationale": "r", "strategy": "s"}
	    },
	    "schwartz_values": [
	      {"name": "security", "strength": 5, "rationale": "r", "strategy": "s", "present": true}
	    ]
	  },
	  "psychology_confidence": 55
	}`}
	a := NewAnalyzer(testGateway(provider))

	out := a.Analyze(context.Background(), "[1] 10:05:00 - seller: skrajne oceny", nil, 0)

	assert.False(t, out.IsFallback)
	assert.Equal(t, 55, out.Confidence)

	assert.Equal(t, 10.0, out.Profile.BigFive.Openness.Score)
	assert.Equal(t, "imputed, insufficient evidence", out.Profile.BigFive.Openness.Rationale)
	assert.NotEmpty(t, out.Profile.BigFive.Openness.Strategy)

	assert.Equal(t, 0.0, out.Profile.DISC.Dominance.Score)
	assert.Equal(t, "r", out.Profile.DISC.Dominance.Rationale)

	assert.Equal(t, 8.0, out.Profile.BigFive.Extraversion.Score)
	assert.Equal(t, "r", out.Profile.BigFive.Extraversion.Rationale)
	assert.NotEmpty(t, strings.TrimSpace(out.Profile.BigFive.Extraversion.Strategy))

	assert.Contains(t, out.RepairedFields, "big_five.openness")
	assert.Contains(t, out.RepairedFields, "big_five.extraversion")
	assert.Contains(t, out.RepairedFields, "disc.dominance")
	assert.NotContains(t, out.RepairedFields, "big_five.agreeableness")
}

func TestAnalyze_FallbackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	a := NewAnalyzer(testGateway(provider))

	current := &Profile{
		Observations: []Observation{
			{Question: "Czy leasing?", Answer: "confirms", TS: time.Now(), Target: "disc.compliance"},
		},
	}

	out := a.Analyze(context.Background(), "[1] 10:02:00 - seller: cisza", current, 40)

	assert.True(t, out.IsFallback)
	assert.Equal(t, 10, out.Confidence)
	assert.Equal(t, 5.0, out.Profile.BigFive.Openness.Score)
	assert.Equal(t, 5.0, out.Profile.DISC.Compliance.Score)
	// Observations gathered so far survive the fallback.
	require.Len(t, out.Profile.Observations, 1)
	assert.Equal(t, "disc.compliance", out.Profile.Observations[0].Target)
}

func TestAnalyze_FallbackOnUnparseableResponse(t *testing.T) {
	provider := &stubProvider{content: "I cannot answer in JSON today."}
	a := NewAnalyzer(testGateway(provider))

	out := a.Analyze(context.Background(), "[1] 10:03:00 - seller: test", nil, 0)

	assert.True(t, out.IsFallback)
	assert.Equal(t, 10, out.Confidence)
}

func TestAnalyze_ConfidenceClamped(t *testing.T) {
	provider := &stubProvider{content: `{
	  "cumulative_psychology": {
	    "big_five": {"openness": {"score": 7}},
	    "disc": {"dominance": {"score": 7}}
	  },
	  "psychology_confidence": 140
	}`}
	a := NewAnalyzer(testGateway(provider))

	out := a.Analyze(context.Background(), "[1] 10:04:00 - seller: clamp", nil, 0)
	assert.Equal(t, 100, out.Confidence)
}
