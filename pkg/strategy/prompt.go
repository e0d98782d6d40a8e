package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/salesmind/salesmind/pkg/knowledge"
	"github.com/salesmind/salesmind/pkg/psychology"
)

// Canonical brand advantages. The confidence scorer counts them and the
// fallback response restates them.
var brandAdvantages = []string{
	"Supercharger network coverage",
	"over-the-air software updates",
	"top-tier safety ratings",
	"lowest total cost of ownership in its class",
	"Autopilot driver assistance",
}

const missionSection = `MISSION:
You are a real-time co-pilot for a Tesla seller in the middle of a live conversation. The seller
narrates what the customer says and does; you return a structured strategic read plus a reply the
seller can speak verbatim. Everything you produce is for the seller's eyes, in the seller's language.`

const competitorSection = `COMPETITOR HANDLING (non-negotiable):
Brand loyalty is absolute. Never recommend, praise, or suggest trying a competitor vehicle, ever,
not even hypothetically. When the customer praises a competitor, acknowledge the customer's
criterion and redirect to a Tesla advantage that serves it: Supercharger network, over-the-air
updates, safety record, or total cost of ownership.`

const goldenRulesSection = `GOLDEN RULES:
- The customer archetype, when given, IS the strategic directive. Raw psychological scores refine
  tone and vocabulary only; they never override the archetype's do/don't playbook.
- quick_response is HOLISTIC: it accounts for the entire session history.
- suggested_questions are ATOMIC: they probe only the customer's latest utterance.
- quick_response.text is at most two sentences, ready to speak aloud.`

const personaSection = `PERSONA:
Confident, warm, consultative. You sell outcomes, not spec sheets. You never pressure; you create
pull. You speak to the seller in concise operational language.`

const responseShapeSection = `Respond with a single JSON object, no prose:
{
  "quick_response": {"text": "", "tone": "", "key_points": ["",""]},
  "main_analysis": "",
  "suggested_actions": [{"action": "", "reasoning": ""}],
  "suggested_questions": [{"text": ""}],
  "strategic_recommendation": "",
  "next_best_action": "",
  "follow_up_timing": "",
  "objection_handling": {"potential_objections": [""], "responses": [""]},
  "buy_signals": [""],
  "risk_signals": [""],
  "sentiment_score": 5,
  "potential_score": 5,
  "urgency_level": "low|medium|high",
  "likely_archetypes": [{"name": "", "confidence": 0, "description": ""}],
  "strategic_notes": [""]
}
Limits: suggested_actions <= 6, suggested_questions <= 3, strategic_notes <= 5, likely_archetypes 1-2.`

// buildSystemPrompt layers the strategy sections. Optional sections appear
// only when the corresponding analysis artifact exists.
func buildSystemPrompt(in Input, nuggets []knowledge.ScoredNugget) string {
	sections := []string{missionSection, competitorSection, goldenRulesSection, personaSection}

	if len(nuggets) > 0 {
		sections = append(sections, formatKnowledgeSection(nuggets))
	}
	if in.DNA != nil {
		sections = append(sections, formatDNASection(in))
	}
	if in.Archetype != nil {
		sections = append(sections, formatArchetypeSection(in))
	}
	if in.Psychology != nil {
		if s := formatPsychologySection(in.Psychology); s != "" {
			sections = append(sections, s)
		}
	}

	sections = append(sections, responseShapeSection)
	return strings.Join(sections, "\n\n")
}

func formatKnowledgeSection(nuggets []knowledge.ScoredNugget) string {
	var b strings.Builder
	b.WriteString("PROVEN SALES KNOWLEDGE (use when relevant):\n")
	for _, n := range nuggets {
		fmt.Fprintf(&b, "- [%s | %s | match %.0f%%] %s\n", n.Title, n.Type, n.SimilarityScore*100, n.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDNASection(in Input) string {
	dna := in.DNA
	var b strings.Builder
	b.WriteString("CUSTOMER DNA:\n")
	fmt.Fprintf(&b, "- Essence: %s\n", dna.HolisticSummary)
	fmt.Fprintf(&b, "- Main drive: %s\n", dna.MainDrive)
	fmt.Fprintf(&b, "- Recommended tone: %s\n", dna.CommunicationStyle.RecommendedTone)
	if len(dna.CommunicationStyle.KeywordsToUse) > 0 {
		fmt.Fprintf(&b, "- Use words: %s\n", strings.Join(dna.CommunicationStyle.KeywordsToUse, ", "))
	}
	if len(dna.CommunicationStyle.KeywordsToAvoid) > 0 {
		fmt.Fprintf(&b, "- Avoid words: %s\n", strings.Join(dna.CommunicationStyle.KeywordsToAvoid, ", "))
	}
	for _, lever := range dna.KeyLevers {
		fmt.Fprintf(&b, "- Lever: %s\n", lever)
	}
	for _, flag := range dna.RedFlags {
		fmt.Fprintf(&b, "- Red flag: %s\n", flag)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatArchetypeSection(in Input) string {
	a := in.Archetype
	var b strings.Builder
	fmt.Fprintf(&b, "CUSTOMER ARCHETYPE: %s (%s, confidence %d%%)\n%s\n", a.Name, a.Key, a.Confidence, a.Description)
	b.WriteString("DO:\n")
	for _, item := range a.SalesPlaybook.Do {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	b.WriteString("DON'T:\n")
	for _, item := range a.SalesPlaybook.Dont {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatPsychologySection lists only the extreme traits: >= 7 reads as high,
// <= 3 reads as low, the middle band carries no strategic signal.
func formatPsychologySection(profile *psychology.Profile) string {
	var highs, lows []string
	for name, trait := range profile.Traits() {
		switch {
		case trait.Score >= 7:
			highs = append(highs, name)
		case trait.Score <= 3:
			lows = append(lows, name)
		}
	}
	if len(highs) == 0 && len(lows) == 0 {
		return ""
	}

	var parts []string
	for _, name := range sorted(highs) {
		parts = append(parts, "high "+name)
	}
	for _, name := range sorted(lows) {
		parts = append(parts, "low "+name)
	}
	return "PSYCHOLOGY SUMMARY: " + strings.Join(parts, ", ")
}

// sorted keeps the summary deterministic; trait maps iterate in random order.
func sorted(s []string) []string {
	sort.Strings(s)
	return s
}

func buildUserPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "LATEST OBSERVATION:\n%s\n\n", in.UserInput)

	history := in.History
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	if len(history) > 0 {
		b.WriteString("RECENT HISTORY:\n")
		for _, line := range history {
			fmt.Fprintf(&b, "seller: %s\n", line)
		}
		b.WriteString("\n")
	}

	if in.ClientAlias != "" {
		fmt.Fprintf(&b, "CLIENT: %s", in.ClientAlias)
		if in.ClientArchetype != "" {
			fmt.Fprintf(&b, " (seller's initial read: %s)", in.ClientArchetype)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("Produce the strategic response JSON object only.")
	return b.String()
}
