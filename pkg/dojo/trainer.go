// Package dojo implements the expert-in-the-loop training channel: a seller
// teaches the system new sales knowledge through conversation, and approves
// each structured nugget before it reaches the vector store.
package dojo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salesmind/salesmind/pkg/knowledge"
	"github.com/salesmind/salesmind/pkg/llm"
)

const trainerInstructions = `You are a sales-knowledge librarian for a Tesla sales team. An expert seller
is teaching you a piece of field-proven sales knowledge through conversation.

Your job each turn:
1. If the expert's input is incomplete or ambiguous, ask ONE precise clarifying question.
2. Once you can, extract the knowledge into a structured nugget and present it for confirmation.

Respond with a single JSON object, no prose:
{
  "response": "what you say back to the expert",
  "response_type": "question" or "confirmation",
  "structured_data": {
    "title": "",
    "content": "the reusable knowledge, written so another seller can apply it",
    "knowledge_type": "general|objection|closing|product|pricing|competition|demo|follow_up|technical",
    "archetype": "optional archetype key this applies to, or empty",
    "tags": ["",""]
  },
  "confidence_level": 0
}
Include structured_data only with response_type "confirmation". confidence_level (0-100) scores how
faithfully the nugget captures what the expert taught.`

// structured_data is persisted verbatim, so the prompt pins it to the Nugget schema.
var trainerSystemPrompt = trainerInstructions +
	"\n\nstructured_data must conform to this JSON schema:\n" + llm.SchemaFor(&knowledge.Nugget{})

// session accumulates one training conversation.
type session struct {
	id        string
	mode      string
	turns     []string
	updatedAt time.Time
}

// Trainer runs training conversations and persists confirmed nuggets.
type Trainer struct {
	gateway   *llm.Gateway
	retriever *knowledge.Retriever

	mu       sync.Mutex
	sessions map[string]*session
}

func NewTrainer(gateway *llm.Gateway, retriever *knowledge.Retriever) *Trainer {
	return &Trainer{
		gateway:   gateway,
		retriever: retriever,
		sessions:  make(map[string]*session),
	}
}

// Chat processes one expert message. Model failures come back as a
// response_type "error" turn rather than an HTTP error; the conversation
// survives them.
func (t *Trainer) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	sess := t.getOrCreateSession(req.SessionID, req.TrainingMode)
	sess.turns = append(sess.turns, "expert: "+req.Message)

	userPrompt := buildTrainerUserPrompt(sess, req.ClientContext)

	resp, err := t.gateway.Generate(ctx, trainerSystemPrompt, userPrompt, "dojo", false)
	if err != nil {
		slog.Warn("dojo turn failed", "session_id", sess.id, "error", err)
		return &ChatResponse{
			SessionID:    sess.id,
			Response:     "I could not process that just now. Please repeat or rephrase.",
			ResponseType: TypeError,
		}, nil
	}

	out, err := parseTrainerResponse(resp.Content)
	if err != nil {
		slog.Warn("dojo response unparseable", "session_id", sess.id, "error", err)
		return &ChatResponse{
			SessionID:    sess.id,
			Response:     "I lost the thread there. Could you state the key insight once more?",
			ResponseType: TypeError,
		}, nil
	}

	out.SessionID = sess.id
	sess.turns = append(sess.turns, "librarian: "+out.Response)

	return out, nil
}

// Confirm persists an approved nugget, or discards the proposal.
func (t *Trainer) Confirm(ctx context.Context, req ConfirmRequest) (*ChatResponse, error) {
	defer t.dropSession(req.SessionID)

	if !req.Confirmed {
		return &ChatResponse{
			SessionID:    req.SessionID,
			Response:     "Discarded. Nothing was saved.",
			ResponseType: TypeStatus,
		}, nil
	}

	if t.retriever == nil {
		return nil, fmt.Errorf("knowledge base is unavailable")
	}

	id, err := t.retriever.Upsert(ctx, req.StructuredData)
	if err != nil {
		return nil, fmt.Errorf("failed to save nugget: %w", err)
	}

	return &ChatResponse{
		SessionID:    req.SessionID,
		Response:     fmt.Sprintf("Saved as %s. It is now part of the live knowledge base.", id),
		ResponseType: TypeStatus,
	}, nil
}

func (t *Trainer) getOrCreateSession(id, mode string) *session {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireSessionsLocked()

	if id != "" {
		if sess, ok := t.sessions[id]; ok {
			sess.updatedAt = time.Now()
			return sess
		}
	}

	if mode == "" {
		mode = ModeKnowledge
	}
	sess := &session{id: uuid.NewString(), mode: mode, updatedAt: time.Now()}
	t.sessions[sess.id] = sess
	return sess
}

func (t *Trainer) dropSession(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// expireSessionsLocked removes conversations abandoned for over an hour.
func (t *Trainer) expireSessionsLocked() {
	cutoff := time.Now().Add(-time.Hour)
	for id, sess := range t.sessions {
		if sess.updatedAt.Before(cutoff) {
			delete(t.sessions, id)
		}
	}
}

func buildTrainerUserPrompt(sess *session, clientContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TRAINING MODE: %s\n", sess.mode)
	if clientContext != "" {
		fmt.Fprintf(&b, "CLIENT CONTEXT: %s\n", clientContext)
	}

	b.WriteString("\nCONVERSATION SO FAR:\n")
	for _, turn := range sess.turns {
		b.WriteString(turn)
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}

func parseTrainerResponse(content string) (*ChatResponse, error) {
	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Response        string            `json:"response"`
		ResponseType    string            `json:"response_type"`
		StructuredData  *knowledge.Nugget `json:"structured_data"`
		ConfidenceLevel int               `json:"confidence_level"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse trainer response: %w", err)
	}
	if raw.Response == "" {
		return nil, fmt.Errorf("trainer response missing response text")
	}

	out := &ChatResponse{
		Response:        raw.Response,
		ResponseType:    raw.ResponseType,
		ConfidenceLevel: raw.ConfidenceLevel,
	}

	// A confirmation without a usable nugget degrades to a question turn.
	switch out.ResponseType {
	case TypeConfirmation:
		if raw.StructuredData == nil || raw.StructuredData.Content == "" {
			out.ResponseType = TypeQuestion
		} else {
			if !knowledge.IsValidType(raw.StructuredData.Type) {
				raw.StructuredData.Type = knowledge.TypeGeneral
			}
			raw.StructuredData.Source = "dojo"
			out.StructuredData = raw.StructuredData
		}
	case TypeQuestion, TypeStatus:
	default:
		out.ResponseType = TypeQuestion
	}

	return out, nil
}
