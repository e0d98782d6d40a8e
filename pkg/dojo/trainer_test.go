package dojo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/embedders"
	"github.com/salesmind/salesmind/pkg/knowledge"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/vectordb"
)

type stubProvider struct {
	response string
	err      error
	prompts  []string
}

func (p *stubProvider) Complete(ctx context.Context, model, system, user string) (string, error) {
	p.prompts = append(p.prompts, user)
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
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

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (unitEmbedder) Dimension() int    { return 3 }
func (unitEmbedder) ModelName() string { return "unit-embedder" }
func (unitEmbedder) Close() error      { return nil }

var _ embedders.Embedder = unitEmbedder{}

func testRetriever(t *testing.T) *knowledge.Retriever {
	t.Helper()
	db, err := vectordb.NewChromemProvider("")
	require.NoError(t, err)
	r, err := knowledge.NewRetriever(context.Background(), db, unitEmbedder{}, "dojo_test")
	require.NoError(t, err)
	return r
}

func TestChat_QuestionTurn(t *testing.T) {
	provider := &stubProvider{response: `{
		"response": "Which archetype does this apply to?",
		"response_type": "question",
		"confidence_level": 40
	}`}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Mention winter range honestly."})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, TypeQuestion, resp.ResponseType)
	assert.Equal(t, "Which archetype does this apply to?", resp.Response)
	assert.Nil(t, resp.StructuredData)
	assert.Equal(t, 40, resp.ConfidenceLevel)
}

func TestChat_ConfirmationTurn(t *testing.T) {
	provider := &stubProvider{response: `{
		"response": "Here is the nugget. Save it?",
		"response_type": "confirmation",
		"structured_data": {
			"title": "Winter range honesty",
			"content": "State the realistic winter range up front before the client asks.",
			"knowledge_type": "objection",
			"archetype": "pragmatic_analyst",
			"tags": ["range", "winter"]
		},
		"confidence_level": 85
	}`}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Always give the winter range first."})
	require.NoError(t, err)

	assert.Equal(t, TypeConfirmation, resp.ResponseType)
	require.NotNil(t, resp.StructuredData)
	assert.Equal(t, knowledge.TypeObjection, resp.StructuredData.Type)
	assert.Equal(t, "dojo", resp.StructuredData.Source)
	assert.Equal(t, []string{"range", "winter"}, resp.StructuredData.Tags)
}

func TestTrainerSystemPromptEmbedsNuggetSchema(t *testing.T) {
	schema := llm.SchemaFor(&knowledge.Nugget{})
	require.NotEmpty(t, schema)
	assert.Contains(t, trainerSystemPrompt, schema)
	assert.Contains(t, schema, `"knowledge_type"`)
}

func TestChat_RequiresMessage(t *testing.T) {
	trainer := NewTrainer(testGateway(&stubProvider{}), nil)

	_, err := trainer.Chat(context.Background(), ChatRequest{Message: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}

func TestChat_ModelFailureBecomesErrorTurn(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("backend down")}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Teach something."})
	require.NoError(t, err)
	assert.Equal(t, TypeError, resp.ResponseType)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Response)
}

func TestChat_UnparseableResponseBecomesErrorTurn(t *testing.T) {
	provider := &stubProvider{response: "sure, noted!"}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Teach something."})
	require.NoError(t, err)
	assert.Equal(t, TypeError, resp.ResponseType)
}

func TestChat_ConfirmationWithoutNuggetDegradesToQuestion(t *testing.T) {
	provider := &stubProvider{response: `{
		"response": "Shall I save it?",
		"response_type": "confirmation"
	}`}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Teach something."})
	require.NoError(t, err)
	assert.Equal(t, TypeQuestion, resp.ResponseType)
	assert.Nil(t, resp.StructuredData)
}

func TestChat_UnknownResponseTypeDefaultsToQuestion(t *testing.T) {
	provider := &stubProvider{response: `{
		"response": "Hmm.",
		"response_type": "musing"
	}`}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Teach something."})
	require.NoError(t, err)
	assert.Equal(t, TypeQuestion, resp.ResponseType)
}

func TestChat_InvalidKnowledgeTypeFallsBackToGeneral(t *testing.T) {
	provider := &stubProvider{response: `{
		"response": "Save?",
		"response_type": "confirmation",
		"structured_data": {"content": "Some insight.", "knowledge_type": "gossip"}
	}`}
	trainer := NewTrainer(testGateway(provider), nil)

	resp, err := trainer.Chat(context.Background(), ChatRequest{Message: "Teach something."})
	require.NoError(t, err)
	require.NotNil(t, resp.StructuredData)
	assert.Equal(t, knowledge.TypeGeneral, resp.StructuredData.Type)
}

func TestChat_SessionAccumulatesTurns(t *testing.T) {
	provider := &stubProvider{response: `{"response": "Go on.", "response_type": "question"}`}
	trainer := NewTrainer(testGateway(provider), nil)
	ctx := context.Background()

	first, err := trainer.Chat(ctx, ChatRequest{Message: "First insight.", TrainingMode: ModeObjection})
	require.NoError(t, err)

	second, err := trainer.Chat(ctx, ChatRequest{SessionID: first.SessionID, Message: "Second insight."})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[1], "TRAINING MODE: objection")
	assert.Contains(t, provider.prompts[1], "expert: First insight.")
	assert.Contains(t, provider.prompts[1], "librarian: Go on.")
	assert.Contains(t, provider.prompts[1], "expert: Second insight.")
}

func TestChat_ClientContextInPrompt(t *testing.T) {
	provider := &stubProvider{response: `{"response": "Noted.", "response_type": "question"}`}
	trainer := NewTrainer(testGateway(provider), nil)

	_, err := trainer.Chat(context.Background(), ChatRequest{
		Message:       "He kept asking about towing.",
		ClientContext: "family buyer, two kids",
	})
	require.NoError(t, err)
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "CLIENT CONTEXT: family buyer, two kids")
}

func TestConfirm_SavesNugget(t *testing.T) {
	retriever := testRetriever(t)
	trainer := NewTrainer(testGateway(&stubProvider{}), retriever)
	ctx := context.Background()

	resp, err := trainer.Confirm(ctx, ConfirmRequest{
		SessionID: "s1",
		Confirmed: true,
		StructuredData: knowledge.Nugget{
			Content: "Offer a test drive on the highway, not the parking lot.",
			Type:    knowledge.TypeDemo,
			Source:  "dojo",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, TypeStatus, resp.ResponseType)
	assert.Contains(t, resp.Response, "Saved as ")

	all, err := retriever.GetAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, knowledge.TypeDemo, all[0].Type)
}

func TestConfirm_RejectionDiscards(t *testing.T) {
	retriever := testRetriever(t)
	trainer := NewTrainer(testGateway(&stubProvider{}), retriever)
	ctx := context.Background()

	resp, err := trainer.Confirm(ctx, ConfirmRequest{SessionID: "s1", Confirmed: false})
	require.NoError(t, err)
	assert.Equal(t, TypeStatus, resp.ResponseType)
	assert.Contains(t, resp.Response, "Discarded")

	all, err := retriever.GetAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConfirm_NoRetriever(t *testing.T) {
	trainer := NewTrainer(testGateway(&stubProvider{}), nil)

	_, err := trainer.Confirm(context.Background(), ConfirmRequest{
		SessionID:      "s1",
		Confirmed:      true,
		StructuredData: knowledge.Nugget{Content: "anything"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge base is unavailable")
}
