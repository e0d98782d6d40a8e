package archetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesmind/salesmind/pkg/psychology"
)

func profileWith(scores map[string]float64) *psychology.Profile {
	trait := func(name string) psychology.Trait {
		return psychology.Trait{Score: scores[name]}
	}
	return &psychology.Profile{
		BigFive: psychology.BigFive{
			Openness:          trait("openness"),
			Conscientiousness: trait("conscientiousness"),
			Extraversion:      trait("extraversion"),
			Agreeableness:     trait("agreeableness"),
			Neuroticism:       trait("neuroticism"),
		},
		DISC: psychology.DISC{
			Dominance:  trait("dominance"),
			Influence:  trait("influence"),
			Steadiness: trait("steadiness"),
			Compliance: trait("compliance"),
		},
	}
}

func TestDetermine_FleetManagerShortCircuit(t *testing.T) {
	svc := NewAutomotiveService()

	// Low extraversion plus high compliance wins even when other composites
	// would score higher.
	p := profileWith(map[string]float64{
		"extraversion":      2,
		"compliance":        8,
		"dominance":         9,
		"influence":         9,
		"openness":          9,
		"conscientiousness": 9,
		"agreeableness":     9,
		"steadiness":        9,
	})

	got := svc.Determine(p)
	assert.Equal(t, FleetManager, got.Key)
}

func TestDetermine_FleetManagerBoundary(t *testing.T) {
	svc := NewAutomotiveService()

	// extraversion == 4 does not trigger the procurement rule.
	p := profileWith(map[string]float64{
		"extraversion": 4,
		"compliance":   8,
		"dominance":    1,
		"influence":    1,
	})

	got := svc.Determine(p)
	assert.NotEqual(t, FleetManager, got.Key)
}

func TestDetermine_StatusSeeker(t *testing.T) {
	svc := NewAutomotiveService()

	p := profileWith(map[string]float64{
		"extraversion":      9,
		"dominance":         8,
		"influence":         9,
		"conscientiousness": 3,
		"compliance":        3,
		"openness":          4,
		"agreeableness":     3,
		"steadiness":        3,
	})

	got := svc.Determine(p)
	assert.Equal(t, StatusSeeker, got.Key)
	// Mean of dominant traits (9+8+9)/3 times 10 = 86.
	assert.Equal(t, 86, got.Confidence)
}

func TestDetermine_TieBreakFollowsEnumerationOrder(t *testing.T) {
	svc := NewAutomotiveService()

	// Every trait at 5 ties every composite; the first archetype in
	// enumeration order wins.
	p := profileWith(map[string]float64{
		"openness": 5, "conscientiousness": 5, "extraversion": 5,
		"agreeableness": 5, "neuroticism": 5,
		"dominance": 5, "influence": 5, "steadiness": 5, "compliance": 5,
	})

	got := svc.Determine(p)
	assert.Equal(t, StatusSeeker, got.Key)
}

func TestDetermine_ZeroScoresDefaultToNeutral(t *testing.T) {
	svc := NewAutomotiveService()

	// An empty profile behaves like all-fives, not all-zeros.
	got := svc.Determine(&psychology.Profile{})
	assert.Equal(t, StatusSeeker, got.Key)
	assert.Equal(t, 60, got.Confidence)
}

func TestDetermine_ConfidenceClamped(t *testing.T) {
	svc := NewAutomotiveService()

	p := profileWith(map[string]float64{
		"extraversion": 10, "dominance": 10, "influence": 10,
	})
	got := svc.Determine(p)
	assert.Equal(t, 95, got.Confidence)

	p = profileWith(map[string]float64{
		"extraversion": 6, "dominance": 5, "influence": 5,
		"conscientiousness": 1, "compliance": 1, "openness": 1,
		"agreeableness": 1, "steadiness": 1,
	})
	got = svc.Determine(p)
	assert.Equal(t, StatusSeeker, got.Key)
	assert.Equal(t, 60, got.Confidence)
}

func TestDetermine_NilProfile(t *testing.T) {
	svc := NewAutomotiveService()

	got := svc.Determine(nil)
	assert.Equal(t, PragmaticAnalyst, got.Key)
	assert.Equal(t, 60, got.Confidence)
}

func TestFallback(t *testing.T) {
	svc := NewAutomotiveService()

	fb := svc.Fallback()
	assert.Equal(t, PragmaticAnalyst, fb.Key)
	assert.Equal(t, 60, fb.Confidence)
}

func TestAvailable(t *testing.T) {
	svc := NewAutomotiveService()

	got := svc.Available()
	require.Len(t, got, 6)

	keys := make([]Key, 0, len(got))
	for _, a := range got {
		keys = append(keys, a.Key)
		assert.NotEmpty(t, a.Name)
		assert.NotEmpty(t, a.SalesPlaybook.Do)
		assert.NotEmpty(t, a.SalesPlaybook.Dont)
	}
	assert.Equal(t, []Key{StatusSeeker, FamilyGuardian, PragmaticAnalyst, FutureVisionary, EcoActivist, FleetManager}, keys)
}

func TestIndustry(t *testing.T) {
	assert.Equal(t, "automotive", NewAutomotiveService().Industry())
}
