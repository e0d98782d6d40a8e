package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salesmind/salesmind/pkg/cache"
	"github.com/salesmind/salesmind/pkg/llm"
	"github.com/salesmind/salesmind/pkg/observability"
	"github.com/salesmind/salesmind/pkg/psychology"
)

const (
	cacheKeyPrefix = "synthesis"

	// Minimum profile confidence worth synthesizing. Below this the DNA
	// would be noise, so preconditions short-circuit to a fallback.
	minSourceConfidence = 20

	fallbackConfidence = 30

	cacheTTL  = time.Hour
	cacheSize = 128
)

const synthesizerSystemPrompt = `You are a master sales psychologist. Reduce the raw psychometric
profile below into a "Customer DNA": the strategic essence a seller can act on mid-conversation.

Respond with a single JSON object, no prose:
{
  "holistic_summary": "one sentence capturing who this customer is",
  "main_drive": "one line naming the root motivator behind their decisions",
  "communication_style": {
    "recommended_tone": "",
    "keywords_to_use": ["", ""],
    "keywords_to_avoid": ["", ""]
  },
  "key_levers": ["3 to 5 psychological levers to press"],
  "red_flags": ["behaviors the seller must avoid"],
  "missing_data_gaps": "what is still unknown, phrased as the seller's next objective",
  "confidence": 0
}

Rules:
- holistic_summary and main_drive must be specific to this profile, never generic.
- key_levers must contain between 3 and 5 entries.
- Ground every field in the trait scores and rationales given. Do not invent facts.`

// Synthesizer reduces a raw profile into the Customer DNA. Results are cached
// on the profile content; identical profiles yield identical DNA without a
// second model call.
type Synthesizer struct {
	gateway *llm.Gateway
	cache   *cache.Cache[HolisticProfile]
}

func NewSynthesizer(gateway *llm.Gateway) *Synthesizer {
	return &Synthesizer{
		gateway: gateway,
		cache:   cache.New[HolisticProfile](cacheSize, cacheTTL),
	}
}

// Synthesize produces the Customer DNA for the profile. It never fails
// observably; degraded inputs or model failures yield a fallback DNA.
func (s *Synthesizer) Synthesize(ctx context.Context, profile *psychology.Profile, confidence int, extraContext string) HolisticProfile {
	if !preconditionsMet(profile, confidence) {
		return s.fallbackDNA(confidence, "profile too sparse for synthesis")
	}

	key := cache.FullKey(cacheKeyPrefix, profile)
	if cached, ok := s.cache.Get(key); ok {
		observability.GetGlobalMetrics().RecordCacheLookup(ctx, "synthesis", true)
		cached.SynthesisTS = time.Now().UTC()
		return cached
	}
	observability.GetGlobalMetrics().RecordCacheLookup(ctx, "synthesis", false)

	userPrompt := buildSynthesizerUserPrompt(profile, confidence, extraContext)

	resp, err := s.gateway.Generate(ctx, synthesizerSystemPrompt, userPrompt, cacheKeyPrefix, true)
	if err != nil {
		slog.Warn("synthesis failed, using fallback DNA", "error", err)
		return s.fallbackDNA(confidence, "synthesis unavailable")
	}

	dna, err := parseDNA(resp.Content)
	if err != nil {
		slog.Warn("synthesis response invalid, using fallback DNA", "error", err)
		return s.fallbackDNA(confidence, "synthesis response invalid")
	}

	dna.SynthesisTS = time.Now().UTC()
	dna.SourceConfidence = confidence

	s.cache.Add(key, *dna)
	return *dna
}

// preconditionsMet requires every Big Five trait scored above zero and a
// usable source confidence.
func preconditionsMet(profile *psychology.Profile, confidence int) bool {
	if profile == nil || confidence < minSourceConfidence {
		return false
	}
	bf := profile.BigFive
	for _, t := range []psychology.Trait{bf.Openness, bf.Conscientiousness, bf.Extraversion, bf.Agreeableness, bf.Neuroticism} {
		if t.Score <= 0 {
			return false
		}
	}
	return true
}

func buildSynthesizerUserPrompt(profile *psychology.Profile, confidence int, extraContext string) string {
	var b strings.Builder

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err == nil {
		fmt.Fprintf(&b, "RAW PSYCHOMETRIC PROFILE (confidence %d):\n%s\n", confidence, profileJSON)
	}

	if extraContext != "" {
		fmt.Fprintf(&b, "\nADDITIONAL CONTEXT:\n%s\n", extraContext)
	}

	b.WriteString("\nProduce the Customer DNA JSON object only.")
	return b.String()
}

func parseDNA(content string) (*HolisticProfile, error) {
	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var dna HolisticProfile
	if err := json.Unmarshal([]byte(jsonStr), &dna); err != nil {
		return nil, fmt.Errorf("failed to parse DNA response: %w", err)
	}

	if dna.HolisticSummary == "" || dna.MainDrive == "" {
		return nil, fmt.Errorf("DNA response missing required fields")
	}
	if len(dna.KeyLevers) == 0 || len(dna.RedFlags) == 0 {
		return nil, fmt.Errorf("DNA response missing levers or red flags")
	}

	if dna.Confidence <= 0 {
		dna.Confidence = fallbackConfidence
	}
	if dna.Confidence > 100 {
		dna.Confidence = 100
	}

	return &dna, nil
}

func (s *Synthesizer) fallbackDNA(confidence int, reason string) HolisticProfile {
	return HolisticProfile{
		HolisticSummary: "Customer profile is still forming; rely on direct observation.",
		MainDrive:       "unknown, gather more signal",
		CommunicationStyle: CommunicationStyle{
			RecommendedTone: "neutral, attentive, adaptive",
			KeywordsToUse:   []string{"safety", "value", "flexibility"},
			KeywordsToAvoid: []string{"pressure", "last chance", "cheapest"},
		},
		KeyLevers: []string{
			"build rapport before positioning any offer",
			"ask open questions and mirror the customer's vocabulary",
			"surface the customer's decision criteria explicitly",
		},
		RedFlags: []string{
			"pushing for a close before motivation is understood",
			"overloading the customer with unprompted technical detail",
		},
		MissingDataGaps:  reason,
		Confidence:       fallbackConfidence,
		SourceConfidence: confidence,
		IsFallback:       true,
		SynthesisTS:      time.Now().UTC(),
	}
}
