package store

import (
	"context"
	"errors"
	"time"

	"github.com/salesmind/salesmind/pkg/archetype"
	"github.com/salesmind/salesmind/pkg/indicators"
	"github.com/salesmind/salesmind/pkg/psychology"
	"github.com/salesmind/salesmind/pkg/strategy"
	"github.com/salesmind/salesmind/pkg/synthesis"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotFound         = errors.New("record not found")
	ErrQuestionNotFound = errors.New("clarifying question not found")
)

// Session statuses.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Client is a persistent prospect record.
type Client struct {
	ID        string    `json:"id"`
	Alias     string    `json:"alias"`
	Archetype string    `json:"archetype,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session carries the conversation state and the five analysis blobs.
type Session struct {
	ID                       string                          `json:"id"`
	ClientID                 string                          `json:"client_id,omitempty"`
	SessionType              string                          `json:"session_type,omitempty"`
	Status                   string                          `json:"status"`
	Notes                    string                          `json:"notes,omitempty"`
	Summary                  string                          `json:"summary,omitempty"`
	Outcome                  string                          `json:"outcome,omitempty"`
	CumulativePsychology     *psychology.Profile             `json:"cumulative_psychology,omitempty"`
	PsychologyConfidence     int                             `json:"psychology_confidence"`
	ActiveClarifyingQueries  []psychology.ClarifyingQuestion `json:"active_clarifying_questions"`
	CustomerArchetype        *archetype.Archetype            `json:"customer_archetype,omitempty"`
	HolisticProfile          *synthesis.HolisticProfile      `json:"holistic_psychometric_profile,omitempty"`
	SalesIndicators          *indicators.SalesIndicators     `json:"sales_indicators,omitempty"`
	PsychologyUpdatedAt      *time.Time                      `json:"psychology_updated_at,omitempty"`
	StartTS                  time.Time                       `json:"start_ts"`
	EndTS                    *time.Time                      `json:"end_ts,omitempty"`
}

// Feedback is a seller vote on one suggestion inside a response.
type Feedback struct {
	SuggestionID string `json:"suggestion_id"`
	Score        int    `json:"score"`
}

// Interaction is one seller observation with its computed response.
// Immutable after creation except for the feedback list.
type Interaction struct {
	ID                  string             `json:"id"`
	SessionID           string             `json:"session_id"`
	TS                  time.Time          `json:"ts"`
	UserInput           string             `json:"user_input"`
	AIResponse          *strategy.Response `json:"ai_response,omitempty"`
	Feedback            []Feedback         `json:"feedback,omitempty"`
	ParentInteractionID string             `json:"parent_interaction_id,omitempty"`
}

// SessionContext is the full state the pipeline needs for one turn.
type SessionContext struct {
	Session      *Session      `json:"session"`
	Interactions []Interaction `json:"interactions"`
	Client       *Client       `json:"client,omitempty"`
}

// AnalysisUpdate is the single-row atomic write of all five analysis blobs.
type AnalysisUpdate struct {
	CumulativePsychology    *psychology.Profile
	PsychologyConfidence    int
	ActiveClarifyingQueries []psychology.ClarifyingQuestion
	CustomerArchetype       *archetype.Archetype
	HolisticProfile         *synthesis.HolisticProfile
	SalesIndicators         *indicators.SalesIndicators
	PsychologyUpdatedAt     time.Time
}

// NewInteraction is the append payload for one turn.
type NewInteraction struct {
	UserInput           string
	AIResponse          *strategy.Response
	ParentInteractionID string
}

// Store is the session state repository. All writes within one session are
// serialized by the caller; the store guarantees per-operation atomicity.
type Store interface {
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context, page, size int) ([]Client, int, error)
	UpdateClient(ctx context.Context, client *Client) error
	DeleteClient(ctx context.Context, id string) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, clientID string, page, size int) ([]Session, int, error)
	EndSession(ctx context.Context, id, outcome, summary string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error

	GetSessionContext(ctx context.Context, sessionID string) (*SessionContext, error)
	PersistAnalysis(ctx context.Context, sessionID string, update AnalysisUpdate) error
	RecordClarificationAnswer(ctx context.Context, sessionID, questionID, answer string) (*SessionContext, error)

	AppendInteraction(ctx context.Context, sessionID string, in NewInteraction) (*Interaction, error)
	ListInteractions(ctx context.Context, sessionID string, page, size int) ([]Interaction, int, error)
	AddFeedback(ctx context.Context, interactionID string, fb Feedback) (*Interaction, error)

	Ping(ctx context.Context) error
	Close() error
}
