package psychology

import "time"

// Trait is one scored psychometric dimension. Under the Zero-Null Policy a
// trait is always fully populated; imputed values say so in the rationale.
type Trait struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
	Strategy  string  `json:"strategy"`
}

// BigFive holds the five OCEAN traits.
type BigFive struct {
	Openness          Trait `json:"openness"`
	Conscientiousness Trait `json:"conscientiousness"`
	Extraversion      Trait `json:"extraversion"`
	Agreeableness     Trait `json:"agreeableness"`
	Neuroticism       Trait `json:"neuroticism"`
}

// DISC holds the four DISC traits.
type DISC struct {
	Dominance  Trait `json:"dominance"`
	Influence  Trait `json:"influence"`
	Steadiness Trait `json:"steadiness"`
	Compliance Trait `json:"compliance"`
}

// SchwartzValue is one detected value from the Schwartz circumplex.
type SchwartzValue struct {
	Name      string  `json:"name"`
	Strength  float64 `json:"strength"`
	Rationale string  `json:"rationale"`
	Strategy  string  `json:"strategy"`
	Present   bool    `json:"present"`
}

// Observation records an answered clarifying question.
type Observation struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	TS       time.Time `json:"ts"`
	Target   string    `json:"target"`
}

// Profile is the session-scoped cumulative psychometric profile.
type Profile struct {
	BigFive             BigFive         `json:"big_five"`
	DISC                DISC            `json:"disc"`
	SchwartzValues      []SchwartzValue `json:"schwartz_values"`
	Observations        []Observation   `json:"observations"`
	ObservationsSummary string          `json:"observations_summary,omitempty"`
}

// Traits returns the ten Big-Five and DISC traits keyed by name.
func (p *Profile) Traits() map[string]Trait {
	return map[string]Trait{
		"openness":          p.BigFive.Openness,
		"conscientiousness": p.BigFive.Conscientiousness,
		"extraversion":      p.BigFive.Extraversion,
		"agreeableness":     p.BigFive.Agreeableness,
		"neuroticism":       p.BigFive.Neuroticism,
		"dominance":         p.DISC.Dominance,
		"influence":         p.DISC.Influence,
		"steadiness":        p.DISC.Steadiness,
		"compliance":        p.DISC.Compliance,
	}
}

// ClarifyingQuestion is an A/B-framed prompt shown to the seller.
type ClarifyingQuestion struct {
	ID                  string `json:"id"`
	Question            string `json:"question"`
	OptionA             string `json:"option_a"`
	OptionB             string `json:"option_b"`
	PsychologicalTarget string `json:"psychological_target"`
}

// AnalyzerOutput is the result of one cumulative analysis pass.
//
// ProposedArchetypeKey carries the model's own guess; the orchestrator
// replaces it with the deterministic mapper downstream.
type AnalyzerOutput struct {
	Profile              Profile              `json:"cumulative_psychology"`
	Confidence           int                  `json:"psychology_confidence"`
	ClarifyingQuestions  []ClarifyingQuestion `json:"clarifying_questions"`
	ProposedArchetypeKey string               `json:"proposed_archetype_key,omitempty"`
	RepairedFields       []string             `json:"repaired_fields,omitempty"`
	IsFallback           bool                 `json:"is_fallback"`
}
