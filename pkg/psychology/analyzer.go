package psychology

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/salesmind/salesmind/pkg/llm"
)

const (
	cacheKeyPrefix = "psychology"

	// Confidence forced onto a profile the model scored at zero.
	repairedConfidence = 30

	// Confidence of the full fallback profile used when analysis fails.
	fallbackConfidence = 10
)

// Analyzer maintains the cumulative psychometric profile for a session.
// Analyze never fails observably: any internal error degrades to a fully
// populated fallback profile.
type Analyzer struct {
	gateway *llm.Gateway
}

func NewAnalyzer(gateway *llm.Gateway) *Analyzer {
	return &Analyzer{gateway: gateway}
}

// rawTrait distinguishes an absent or null score from a real zero.
type rawTrait struct {
	Score     *float64 `json:"score"`
	Rationale string   `json:"rationale"`
	Strategy  string   `json:"strategy"`
}

type rawAnalyzerResponse struct {
	CumulativePsychology struct {
		BigFive             map[string]rawTrait `json:"big_five"`
		DISC                map[string]rawTrait `json:"disc"`
		SchwartzValues      []SchwartzValue     `json:"schwartz_values"`
		ObservationsSummary string              `json:"observations_summary"`
	} `json:"cumulative_psychology"`
	PsychologyConfidence *int                `json:"psychology_confidence"`
	SuggestedQuestions   []SuggestedQuestion `json:"suggested_questions"`
	CustomerArchetype    *struct {
		ArchetypeKey string `json:"archetype_key"`
	} `json:"customer_archetype"`
}

// Analyze runs one cumulative analysis pass over the conversation history.
func (a *Analyzer) Analyze(ctx context.Context, history string, current *Profile, currentConfidence int) AnalyzerOutput {
	userPrompt := buildAnalyzerUserPrompt(history, current, currentConfidence)

	resp, err := a.gateway.Generate(ctx, analyzerSystemPrompt, userPrompt, cacheKeyPrefix, true)
	if err != nil {
		slog.Warn("psychology analysis failed, using fallback profile", "error", err)
		return a.fallback(current)
	}

	raw, err := parseAnalyzerResponse(resp.Content)
	if err != nil {
		slog.Warn("psychology response unparseable, using fallback profile", "error", err)
		return a.fallback(current)
	}

	out := repair(raw)

	// Observations survive across passes; the model never re-emits them.
	if current != nil {
		out.Profile.Observations = current.Observations
	}

	for _, q := range raw.SuggestedQuestions {
		if q.Question == "" {
			continue
		}
		out.ClarifyingQuestions = append(out.ClarifyingQuestions, toClarifyingQuestion(q))
	}

	return out
}

func parseAnalyzerResponse(content string) (*rawAnalyzerResponse, error) {
	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var raw rawAnalyzerResponse
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer response: %w", err)
	}

	return &raw, nil
}

// repair enforces the Zero-Null Policy. Every missing or null trait becomes a
// neutral default, scores are clamped to [0,10], blank rationales and
// strategies are imputed, and the repaired field names are recorded.
func repair(raw *rawAnalyzerResponse) AnalyzerOutput {
	var out AnalyzerOutput

	bigFive := map[string]*Trait{
		"openness":          &out.Profile.BigFive.Openness,
		"conscientiousness": &out.Profile.BigFive.Conscientiousness,
		"extraversion":      &out.Profile.BigFive.Extraversion,
		"agreeableness":     &out.Profile.BigFive.Agreeableness,
		"neuroticism":       &out.Profile.BigFive.Neuroticism,
	}
	disc := map[string]*Trait{
		"dominance":  &out.Profile.DISC.Dominance,
		"influence":  &out.Profile.DISC.Influence,
		"steadiness": &out.Profile.DISC.Steadiness,
		"compliance": &out.Profile.DISC.Compliance,
	}

	for name, dst := range bigFive {
		if repairTrait(raw.CumulativePsychology.BigFive[name], dst) {
			out.RepairedFields = append(out.RepairedFields, "big_five."+name)
		}
	}
	for name, dst := range disc {
		if repairTrait(raw.CumulativePsychology.DISC[name], dst) {
			out.RepairedFields = append(out.RepairedFields, "disc."+name)
		}
	}

	out.Profile.SchwartzValues = raw.CumulativePsychology.SchwartzValues
	if len(out.Profile.SchwartzValues) == 0 {
		out.Profile.SchwartzValues = []SchwartzValue{defaultSchwartzValue()}
		out.RepairedFields = append(out.RepairedFields, "schwartz_values")
	}

	out.Profile.ObservationsSummary = raw.CumulativePsychology.ObservationsSummary

	if raw.PsychologyConfidence == nil || *raw.PsychologyConfidence == 0 {
		out.Confidence = repairedConfidence
		out.RepairedFields = append(out.RepairedFields, "psychology_confidence")
	} else {
		out.Confidence = clampConfidence(*raw.PsychologyConfidence)
	}

	if raw.CustomerArchetype != nil && raw.CustomerArchetype.ArchetypeKey != "" {
		out.ProposedArchetypeKey = raw.CustomerArchetype.ArchetypeKey
	} else {
		out.RepairedFields = append(out.RepairedFields, "customer_archetype")
	}

	return out
}

func repairTrait(src rawTrait, dst *Trait) bool {
	if src.Score == nil {
		*dst = neutralTrait()
		return true
	}

	repaired := false

	dst.Score = *src.Score
	if dst.Score < 0 {
		dst.Score = 0
		repaired = true
	}
	if dst.Score > 10 {
		dst.Score = 10
		repaired = true
	}

	nt := neutralTrait()
	dst.Rationale = src.Rationale
	if strings.TrimSpace(dst.Rationale) == "" {
		dst.Rationale = nt.Rationale
		repaired = true
	}
	dst.Strategy = src.Strategy
	if strings.TrimSpace(dst.Strategy) == "" {
		dst.Strategy = nt.Strategy
		repaired = true
	}

	return repaired
}

func neutralTrait() Trait {
	return Trait{
		Score:     5,
		Rationale: "imputed, insufficient evidence",
		Strategy:  "observe the customer's reactions before committing to an approach",
	}
}

func defaultSchwartzValue() SchwartzValue {
	return SchwartzValue{
		Name:      "security",
		Strength:  5,
		Rationale: "imputed, insufficient evidence",
		Strategy:  "emphasize reliability and predictable ownership costs",
		Present:   true,
	}
}

// fallback builds a fully populated neutral profile, preserving observations
// already gathered for the session.
func (a *Analyzer) fallback(current *Profile) AnalyzerOutput {
	out := AnalyzerOutput{
		Confidence: fallbackConfidence,
		IsFallback: true,
	}

	nt := neutralTrait()
	out.Profile.BigFive = BigFive{Openness: nt, Conscientiousness: nt, Extraversion: nt, Agreeableness: nt, Neuroticism: nt}
	out.Profile.DISC = DISC{Dominance: nt, Influence: nt, Steadiness: nt, Compliance: nt}
	out.Profile.SchwartzValues = []SchwartzValue{defaultSchwartzValue()}

	if current != nil {
		out.Profile.Observations = current.Observations
		out.Profile.ObservationsSummary = current.ObservationsSummary
	}

	return out
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
