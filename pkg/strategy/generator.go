package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/salesmind/salesmind/pkg/archetype"
	"github.com/salesmind/salesmind/pkg/knowledge"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/psychology"
	"github.com/salesmind/salesmind/pkg/synthesis"
)

const (
	cacheKeyPrefix = "strategy"

	ragLimit = 3

	// Floor for the completeness-derived confidence level.
	minConfidenceLevel = 20
)

// Input is everything the generator can condition on. Only UserInput is
// required; every analysis artifact is optional and widens the context type.
type Input struct {
	UserInput            string
	ClientAlias          string
	ClientArchetype      string
	History              []string
	Psychology           *psychology.Profile
	PsychologyConfidence int
	DNA                  *synthesis.HolisticProfile
	Archetype            *archetype.Archetype
}

// Generator produces the strategic response for one seller observation,
// optionally augmented with retrieved sales knowledge.
type Generator struct {
	gateway   *llm.Gateway
	retriever *knowledge.Retriever
}

// NewGenerator builds a generator. retriever may be nil; RAG is then skipped.
func NewGenerator(gateway *llm.Gateway, retriever *knowledge.Retriever) *Generator {
	return &Generator{gateway: gateway, retriever: retriever}
}

// Generate never fails observably: any model or retrieval failure degrades to
// a branded fallback response.
func (g *Generator) Generate(ctx context.Context, in Input) Response {
	var nuggets []knowledge.ScoredNugget
	if g.retriever != nil {
		var err error
		nuggets, err = g.retriever.Search(ctx, in.UserInput, in.ClientArchetype, "", ragLimit)
		if err != nil {
			// Retrieval is an enhancement, not a dependency.
			slog.Warn("knowledge retrieval failed, generating without RAG", "error", err)
			nuggets = nil
		}
	}

	systemPrompt := buildSystemPrompt(in, nuggets)
	userPrompt := buildUserPrompt(in)

	resp, err := g.gateway.Generate(ctx, systemPrompt, userPrompt, cacheKeyPrefix, true)
	if err != nil {
		slog.Warn("strategy generation failed, using branded fallback", "error", err)
		return g.fallbackResponse(in)
	}

	out, err := parseResponse(resp.Content)
	if err != nil {
		slog.Warn("strategy response invalid, using branded fallback", "error", err)
		return g.fallbackResponse(in)
	}

	g.finalize(out, in, resp.Model)
	return *out
}

func parseResponse(content string) (*Response, error) {
	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var out Response
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("failed to parse strategy response: %w", err)
	}

	if strings.TrimSpace(out.QuickResponse.Text) == "" {
		return nil, fmt.Errorf("strategy response missing quick_response.text")
	}

	return &out, nil
}

// finalize fills neutral defaults, assigns fresh suggestion IDs, enforces
// field limits and computes the completeness confidence.
func (g *Generator) finalize(out *Response, in Input, model string) {
	out.QuickResponse.ID = suggestionID("qr")
	for i := range out.SuggestedQuestions {
		out.SuggestedQuestions[i].ID = suggestionID("sq")
	}

	if len(out.SuggestedActions) > 6 {
		out.SuggestedActions = out.SuggestedActions[:6]
	}
	if len(out.SuggestedQuestions) > 3 {
		out.SuggestedQuestions = out.SuggestedQuestions[:3]
	}
	if len(out.StrategicNotes) > 5 {
		out.StrategicNotes = out.StrategicNotes[:5]
	}
	if len(out.LikelyArchetypes) > 2 {
		out.LikelyArchetypes = out.LikelyArchetypes[:2]
	}

	if out.SuggestedActions == nil {
		out.SuggestedActions = []SuggestedAction{}
	}
	if out.SuggestedQuestions == nil {
		out.SuggestedQuestions = []SuggestedQuestion{}
	}
	if len(out.LikelyArchetypes) == 0 {
		out.LikelyArchetypes = []LikelyArchetype{
			{Name: "pragmatic_analyst", Confidence: 30, Description: "Default hypothesis until more signal arrives."},
		}
	}
	if out.ObjectionHandling.PotentialObjections == nil {
		out.ObjectionHandling.PotentialObjections = []string{}
	}
	if out.ObjectionHandling.Responses == nil {
		out.ObjectionHandling.Responses = []string{}
	}
	if out.BuySignals == nil {
		out.BuySignals = []string{}
	}
	if out.RiskSignals == nil {
		out.RiskSignals = []string{}
	}
	if out.StrategicNotes == nil {
		out.StrategicNotes = []string{}
	}

	out.SentimentScore = clampScore(out.SentimentScore)
	out.PotentialScore = clampScore(out.PotentialScore)
	switch out.UrgencyLevel {
	case "low", "medium", "high":
	default:
		out.UrgencyLevel = "medium"
	}

	if in.Archetype != nil {
		out.ClientArchetype = string(in.Archetype.Key)
	} else if out.ClientArchetype == "" {
		out.ClientArchetype = in.ClientArchetype
	}

	out.ConfidenceLevel = completenessConfidence(out)
	out.GeneratedAt = time.Now().UTC()
	out.ModelUsed = model
	out.ContextType = contextType(in)
}

// completenessConfidence averages five completeness factors and scales to
// percent, floored at minConfidenceLevel.
func completenessConfidence(out *Response) int {
	factors := []bool{
		strings.TrimSpace(out.QuickResponse.Text) != "",
		strings.TrimSpace(out.StrategicRecommendation) != "",
		len(out.SuggestedQuestions) >= 2,
		strings.TrimSpace(out.NextBestAction) != "",
		countBrandAdvantages(out) >= 3,
	}

	met := 0
	for _, f := range factors {
		if f {
			met++
		}
	}

	confidence := met * 100 / len(factors)
	if confidence < minConfidenceLevel {
		confidence = minConfidenceLevel
	}
	return confidence
}

// countBrandAdvantages scans the response text for distinct canonical
// advantage themes.
func countBrandAdvantages(out *Response) int {
	var b strings.Builder
	b.WriteString(out.QuickResponse.Text)
	b.WriteString(out.MainAnalysis)
	b.WriteString(out.StrategicRecommendation)
	b.WriteString(out.NextBestAction)
	for _, a := range out.SuggestedActions {
		b.WriteString(a.Action)
		b.WriteString(a.Reasoning)
	}
	for _, r := range out.ObjectionHandling.Responses {
		b.WriteString(r)
	}
	text := strings.ToLower(b.String())

	themes := map[string][]string{
		"charging": {"supercharger", "ładowan"},
		"software": {"over-the-air", "ota", "aktualizacj"},
		"safety":   {"safety", "bezpiecze"},
		"cost":     {"total cost", "tco", "koszt"},
		"autonomy": {"autopilot"},
	}

	count := 0
	for _, keywords := range themes {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				count++
				break
			}
		}
	}
	return count
}

func contextType(in Input) string {
	switch {
	case in.DNA != nil && in.Archetype != nil && in.Psychology != nil:
		return ContextUltraBrain
	case in.DNA != nil:
		return ContextHolistic
	case in.Archetype != nil:
		return ContextArchetype
	default:
		return ContextBasic
	}
}

// Fallback exposes the branded degradation path for callers that must skip
// generation entirely, such as a turn without a client record.
func (g *Generator) Fallback(in Input) Response {
	return g.fallbackResponse(in)
}

// fallbackResponse is the branded degradation path: invite the customer to
// elaborate and restate canonical advantages.
func (g *Generator) fallbackResponse(in Input) Response {
	actions := make([]SuggestedAction, 0, len(brandAdvantages))
	for _, adv := range brandAdvantages {
		actions = append(actions, SuggestedAction{
			Action:    "Highlight " + adv,
			Reasoning: "Core differentiator that holds regardless of customer profile.",
		})
	}

	clientArchetype := in.ClientArchetype
	if in.Archetype != nil {
		clientArchetype = string(in.Archetype.Key)
	}

	return Response{
		QuickResponse: QuickResponse{
			ID:        suggestionID("qr"),
			Text:      "That's a great point, tell me more about what matters most to you in your next car. I want to make sure we focus on exactly that.",
			Tone:      "warm, curious",
			KeyPoints: []string{"invite elaboration", "keep the customer talking"},
		},
		MainAnalysis:     "Strategic analysis is temporarily unavailable; keeping the conversation open and gathering signal.",
		SuggestedActions: actions,
		SuggestedQuestions: []SuggestedQuestion{
			{ID: suggestionID("sq"), Text: "What prompted the customer to look at an electric car right now?"},
			{ID: suggestionID("sq"), Text: "Which single factor would make this an easy yes for the customer?"},
		},
		StrategicRecommendation: "Keep the customer talking, anchor on their own criteria, and restate the core Tesla advantages where they fit.",
		NextBestAction:          "Ask an open question about the customer's decision criteria.",
		ObjectionHandling: ObjectionHandling{
			PotentialObjections: []string{"I need to think about it."},
			Responses:           []string{"Of course. What would you want to be certain about before deciding?"},
		},
		BuySignals:      []string{},
		RiskSignals:     []string{},
		SentimentScore:  5,
		PotentialScore:  5,
		UrgencyLevel:    "medium",
		ClientArchetype: clientArchetype,
		ConfidenceLevel: minConfidenceLevel,
		LikelyArchetypes: []LikelyArchetype{
			{Name: "pragmatic_analyst", Confidence: 30, Description: "Default hypothesis until more signal arrives."},
		},
		StrategicNotes: []string{"Generated without model assistance; treat as conversational scaffolding."},
		IsFallback:     true,
		GeneratedAt:    time.Now().UTC(),
		ModelUsed:      g.gateway.Model(),
		ContextType:    contextType(in),
	}
}

// suggestionID mints an opaque short id like "qr_3fa9c1".
func suggestionID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
