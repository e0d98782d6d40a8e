package psychology

import (
	"strings"

	"github.com/google/uuid"
)

// SuggestedQuestion is a raw probe proposed by the model before A/B framing.
type SuggestedQuestion struct {
	Question            string `json:"question"`
	PsychologicalTarget string `json:"psychological_target"`
}

// toClarifyingQuestion frames a suggested question with A/B answer options
// chosen by the Polish interrogative that opens it. "jak często" and "jakie"
// must be checked before the bare "jak" prefix.
func toClarifyingQuestion(q SuggestedQuestion) ClarifyingQuestion {
	optionA, optionB := "confirms", "denies"

	lower := strings.ToLower(strings.TrimSpace(q.Question))
	switch {
	case strings.HasPrefix(lower, "czy"),
		strings.HasPrefix(lower, "jak często"),
		strings.HasPrefix(lower, "jakie"):
		// confirmation or frequency interrogative, binary options hold
	case strings.HasPrefix(lower, "jak"):
		optionA, optionB = "quickly, directly", "slowly, thoroughly"
	case strings.HasPrefix(lower, "co"):
		optionA, optionB = "general benefits", "technical details"
	}

	return ClarifyingQuestion{
		ID:                  uuid.NewString(),
		Question:            q.Question,
		OptionA:             optionA,
		OptionB:             optionB,
		PsychologicalTarget: q.PsychologicalTarget,
	}
}
