package strategy

import (
	"time"

	"github.com/salesmind/salesmind/pkg/indicators"
)

// Context types recorded on a response, ordered by how much of the analysis
// stack was available when it was generated.
const (
	ContextUltraBrain = "ultra_brain_complete"
	ContextHolistic   = "holistic_profile"
	ContextArchetype  = "archetype_only"
	ContextBasic      = "basic"
)

// QuickResponse is the ready-to-speak reply, at most two sentences.
type QuickResponse struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Tone      string   `json:"tone"`
	KeyPoints []string `json:"key_points"`
}

// SuggestedAction is one tactical move with its reasoning.
type SuggestedAction struct {
	Action    string `json:"action"`
	Reasoning string `json:"reasoning"`
}

// SuggestedQuestion is a probing question about the latest utterance.
type SuggestedQuestion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ObjectionHandling pairs anticipated objections with prepared responses.
type ObjectionHandling struct {
	PotentialObjections []string `json:"potential_objections"`
	Responses           []string `json:"responses"`
}

// LikelyArchetype is a secondary archetype hypothesis.
type LikelyArchetype struct {
	Name        string `json:"name"`
	Confidence  int    `json:"confidence"`
	Description string `json:"description"`
}

// Response is the full strategic output for one seller observation. It is
// returned to the caller and stored verbatim on the interaction.
type Response struct {
	QuickResponse           QuickResponse               `json:"quick_response"`
	MainAnalysis            string                      `json:"main_analysis"`
	SuggestedActions        []SuggestedAction           `json:"suggested_actions"`
	SuggestedQuestions      []SuggestedQuestion         `json:"suggested_questions"`
	StrategicRecommendation string                      `json:"strategic_recommendation"`
	NextBestAction          string                      `json:"next_best_action"`
	FollowUpTiming          string                      `json:"follow_up_timing,omitempty"`
	ObjectionHandling       ObjectionHandling           `json:"objection_handling"`
	BuySignals              []string                    `json:"buy_signals"`
	RiskSignals             []string                    `json:"risk_signals"`
	SentimentScore          int                         `json:"sentiment_score"`
	PotentialScore          int                         `json:"potential_score"`
	UrgencyLevel            string                      `json:"urgency_level"`
	ClientArchetype         string                      `json:"client_archetype"`
	ConfidenceLevel         int                         `json:"confidence_level"`
	LikelyArchetypes        []LikelyArchetype           `json:"likely_archetypes"`
	StrategicNotes          []string                    `json:"strategic_notes"`
	SalesIndicators         *indicators.SalesIndicators `json:"sales_indicators,omitempty"`
	IsFallback              bool                        `json:"is_fallback"`
	GeneratedAt             time.Time                   `json:"generated_at"`
	ModelUsed               string                      `json:"model_used"`
	ContextType             string                      `json:"context_type"`
}
