package archetype

import "github.com/salesmind/salesmind/pkg/psychology"

// Key identifies one customer archetype within an industry pack.
type Key string

const (
	StatusSeeker     Key = "status_seeker"
	FamilyGuardian   Key = "family_guardian"
	PragmaticAnalyst Key = "pragmatic_analyst"
	FutureVisionary  Key = "future_visionary"
	EcoActivist      Key = "eco_activist"
	FleetManager     Key = "fleet_manager"
)

// Playbook is the do/don't guidance attached to an archetype.
type Playbook struct {
	Do   []string `json:"do"`
	Dont []string `json:"dont"`
}

// Archetype is the mapped customer archetype with its sales guidance.
type Archetype struct {
	Key                Key      `json:"key"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	DominantTraits     []string `json:"dominant_traits"`
	Motivation         string   `json:"motivation"`
	CommunicationStyle string   `json:"communication_style"`
	SalesPlaybook      Playbook `json:"sales_playbook"`
	Confidence         int      `json:"confidence"`
}

// Service maps a psychometric profile onto an industry archetype set. The
// mapping is deterministic with respect to the profile.
type Service interface {
	// Industry names the archetype pack, e.g. "automotive".
	Industry() string

	// Available lists every archetype the pack defines.
	Available() []Archetype

	// Determine picks the best-fitting archetype for the profile and scores
	// it. Never returns an error; when nothing matches it returns Fallback.
	Determine(profile *psychology.Profile) Archetype

	// Fallback is the archetype used when the profile carries no signal.
	Fallback() Archetype
}

// ForIndustry returns the archetype pack for the given industry. Unknown
// industries fall back to the automotive pack.
func ForIndustry(industry string) Service {
	switch industry {
	case "automotive", "":
		return NewAutomotiveService()
	default:
		return NewAutomotiveService()
	}
}
