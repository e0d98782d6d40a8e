package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesmind/salesmind/pkg/archetype"
	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/indicators"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/psychology"
	"github.com/salesmind/salesmind/pkg/store"
	"github.com/salesmind/salesmind/pkg/strategy"
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

// psychologyOnlyJSON parses as a high-confidence psychology result but fails
// every downstream stage's parser, forcing their fallbacks.
const psychologyOnlyJSON = `{
  "cumulative_psychology": {
    "big_five": {
      "openness": {"score": 7, "rationale": "r", "strategy": "s"},
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
  "suggested_questions": [],
  "customer_archetype": {"archetype_key": "status_seeker"}
}`

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	st, err := store.NewSQLStore(db, "sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestOrchestrator(t *testing.T, st *store.SQLStore, provider llm.Provider) *Orchestrator {
	t.Helper()
	gw := llm.NewGatewayWithProvider(&config.LLMConfig{
		Model:      "test-model",
		Timeout:    5,
		MaxRetries: 1,
		CacheSize:  16,
		CacheTTL:   60,
	}, provider)

	o, err := NewOrchestrator(Options{
		Store:       st,
		Analyzer:    psychology.NewAnalyzer(gw),
		Synthesizer: synthesis.NewSynthesizer(gw),
		Indicators:  indicators.NewGenerator(gw),
		Strategist:  strategy.NewGenerator(gw, nil),
		TurnTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	return o
}

func createSessionWithClient(t *testing.T, st *store.SQLStore) *store.Session {
	t.Helper()
	ctx := context.Background()

	client := &store.Client{Alias: "Mr. K"}
	require.NoError(t, st.CreateClient(ctx, client))

	session := &store.Session{ClientID: client.ID}
	require.NoError(t, st.CreateSession(ctx, session))
	return session
}

func TestNewOrchestrator_Validation(t *testing.T) {
	st := newTestStore(t)
	gw := llm.NewGatewayWithProvider(&config.LLMConfig{Model: "m", Timeout: 5, MaxRetries: 1}, &stubProvider{})

	_, err := NewOrchestrator(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is required")

	_, err = NewOrchestrator(Options{Store: st, Analyzer: psychology.NewAnalyzer(gw)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all pipeline stages are required")
}

func TestProcessObservation_SessionNotFound(t *testing.T) {
	st := newTestStore(t)
	o := newTestOrchestrator(t, st, &stubProvider{err: errors.New("down")})

	_, err := o.ProcessObservation(context.Background(), "missing", "klient pyta o cenę", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestProcessObservation_ModelDownDegradesEveryStage(t *testing.T) {
	st := newTestStore(t)
	o := newTestOrchestrator(t, st, &stubProvider{err: errors.New("backend down")})
	session := createSessionWithClient(t, st)

	interaction, err := o.ProcessObservation(context.Background(), session.ID, "klient pyta o zasięg zimą", "")
	require.NoError(t, err)

	require.NotNil(t, interaction.AIResponse)
	assert.True(t, interaction.AIResponse.IsFallback)
	assert.NotEmpty(t, interaction.AIResponse.QuickResponse)
	require.NotNil(t, interaction.AIResponse.SalesIndicators)
	assert.True(t, interaction.AIResponse.SalesIndicators.IsFallback)

	// The session row carries the degraded analysis state.
	updated, err := st.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CumulativePsychology)
	require.NotNil(t, updated.HolisticProfile)
	assert.True(t, updated.HolisticProfile.IsFallback)
	require.NotNil(t, updated.SalesIndicators)
	assert.True(t, updated.SalesIndicators.IsFallback)
	assert.Nil(t, updated.CustomerArchetype)
	require.NotNil(t, updated.PsychologyUpdatedAt)
}

func TestProcessObservation_ArchetypePersistedAboveThreshold(t *testing.T) {
	st := newTestStore(t)
	o := newTestOrchestrator(t, st, &stubProvider{content: psychologyOnlyJSON})
	session := createSessionWithClient(t, st)

	_, err := o.ProcessObservation(context.Background(), session.ID, "klient chwali się nowym zegarkiem", "")
	require.NoError(t, err)

	updated, err := st.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, updated.PsychologyConfidence)
	require.NotNil(t, updated.CustomerArchetype)
	assert.Equal(t, archetype.StatusSeeker, updated.CustomerArchetype.Key)
}

func TestProcessObservation_AnonymousSession(t *testing.T) {
	st := newTestStore(t)
	provider := &stubProvider{content: psychologyOnlyJSON}
	o := newTestOrchestrator(t, st, provider)

	session := &store.Session{}
	require.NoError(t, st.CreateSession(context.Background(), session))

	interaction, err := o.ProcessObservation(context.Background(), session.ID, "przechodzień pyta o cenę", "")
	require.NoError(t, err)

	// No client means no profiling, only the branded fallback response.
	assert.Equal(t, 0, provider.calls)
	require.NotNil(t, interaction.AIResponse)
	assert.True(t, interaction.AIResponse.IsFallback)

	updated, err := st.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.CumulativePsychology)
}

func TestProcessObservation_HistoryAccumulates(t *testing.T) {
	st := newTestStore(t)
	o := newTestOrchestrator(t, st, &stubProvider{err: errors.New("down")})
	session := createSessionWithClient(t, st)
	ctx := context.Background()

	first, err := o.ProcessObservation(ctx, session.ID, "pierwsza obserwacja", "")
	require.NoError(t, err)

	second, err := o.ProcessObservation(ctx, session.ID, "druga obserwacja", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ParentInteractionID)

	list, total, err := st.ListInteractions(ctx, session.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "pierwsza obserwacja", list[0].UserInput)
	assert.Equal(t, "druga obserwacja", list[1].UserInput)
}

func TestAnswerClarifyingQuestion_ConsumesQuestionAndRunsTurn(t *testing.T) {
	st := newTestStore(t)
	o := newTestOrchestrator(t, st, &stubProvider{err: errors.New("down")})
	session := createSessionWithClient(t, st)
	ctx := context.Background()

	require.NoError(t, st.PersistAnalysis(ctx, session.ID, store.AnalysisUpdate{
		CumulativePsychology: &psychology.Profile{},
		ActiveClarifyingQueries: []psychology.ClarifyingQuestion{
			{ID: "q1", Question: "Czy jeździ Pan głównie po mieście?", OptionA: "tak", OptionB: "nie", PsychologicalTarget: "disc.steadiness"},
		},
		PsychologyUpdatedAt: time.Now().UTC(),
	}))

	interaction, err := o.AnswerClarifyingQuestion(ctx, session.ID, "q1", "tak, głównie miasto")
	require.NoError(t, err)
	require.NotNil(t, interaction.AIResponse)
	assert.Equal(t, "tak, głównie miasto", interaction.UserInput)

	updated, err := st.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.ActiveClarifyingQueries)
}

func TestAnswerClarifyingQuestion_UnknownQuestion(t *testing.T) {
	st := newTestStore(t)
	o := newTestOrchestrator(t, st, &stubProvider{err: errors.New("down")})
	session := createSessionWithClient(t, st)

	_, err := o.AnswerClarifyingQuestion(context.Background(), session.ID, "nope", "answer")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrQuestionNotFound)
}
