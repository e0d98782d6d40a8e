package archetype

import (
	"github.com/salesmind/salesmind/pkg/psychology"
)

// automotiveService maps profiles onto the six Tesla-sales archetypes using
// fixed composite formulas over the Big-Five and DISC scores.
type automotiveService struct {
	archetypes map[Key]Archetype
	order      []Key
}

// NewAutomotiveService builds the automotive archetype pack.
func NewAutomotiveService() Service {
	s := &automotiveService{
		archetypes: make(map[Key]Archetype),
		// Composite evaluation order doubles as the tie-break order.
		order: []Key{StatusSeeker, FamilyGuardian, PragmaticAnalyst, FutureVisionary, EcoActivist, FleetManager},
	}
	for _, a := range automotiveArchetypes {
		s.archetypes[a.Key] = a
	}
	return s
}

func (s *automotiveService) Industry() string { return "automotive" }

func (s *automotiveService) Available() []Archetype {
	out := make([]Archetype, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.archetypes[key])
	}
	return out
}

func (s *automotiveService) Fallback() Archetype {
	a := s.archetypes[PragmaticAnalyst]
	a.Confidence = 60
	return a
}

// Determine picks the archetype with the highest composite score. The fleet
// manager rule short-circuits: low extraversion with high compliance reads as
// a procurement profile regardless of the other composites.
func (s *automotiveService) Determine(profile *psychology.Profile) Archetype {
	if profile == nil {
		return s.Fallback()
	}
	scores := traitScores(profile)

	if scores["extraversion"] < 4 && scores["compliance"] > 6 {
		return s.score(FleetManager, scores)
	}

	composites := map[Key]float64{
		StatusSeeker:     (scores["extraversion"] + scores["dominance"] + scores["influence"]) / 3,
		FamilyGuardian:   (scores["conscientiousness"] + scores["steadiness"] + scores["compliance"]) / 3,
		PragmaticAnalyst: (scores["conscientiousness"] + scores["compliance"]) / 2,
		FutureVisionary:  (scores["openness"] + scores["influence"]) / 2,
		EcoActivist:      (scores["agreeableness"] + scores["openness"]) / 2,
	}

	best := Key("")
	bestScore := 0.0
	for _, key := range s.order {
		composite, ok := composites[key]
		if !ok {
			continue
		}
		if composite > bestScore {
			best = key
			bestScore = composite
		}
	}
	if best == "" {
		return s.Fallback()
	}
	return s.score(best, scores)
}

// score attaches a confidence derived from the dominant-trait scores:
// mean of the dominant traits times 10, clamped to [60,95].
func (s *automotiveService) score(key Key, scores map[string]float64) Archetype {
	a := s.archetypes[key]
	sum := 0.0
	for _, trait := range a.DominantTraits {
		sum += scores[trait]
	}
	confidence := 60
	if len(a.DominantTraits) > 0 {
		confidence = int(sum / float64(len(a.DominantTraits)) * 10)
	}
	if confidence < 60 {
		confidence = 60
	}
	if confidence > 95 {
		confidence = 95
	}
	a.Confidence = confidence
	return a
}

// traitScores flattens the profile into the eight scores the composites use,
// defaulting to 5 where a trait carries no score.
func traitScores(profile *psychology.Profile) map[string]float64 {
	out := make(map[string]float64, 9)
	for name, trait := range profile.Traits() {
		score := trait.Score
		if score == 0 {
			score = 5
		}
		out[name] = score
	}
	return out
}

var automotiveArchetypes = []Archetype{
	{
		Key:                StatusSeeker,
		Name:               "Poszukiwacz Statusu",
		Description:        "Kupuje prestiż i widoczność. Samochód jest wizytówką sukcesu.",
		DominantTraits:     []string{"extraversion", "dominance", "influence"},
		Motivation:         "Wyróżnienie się, uznanie otoczenia, bycie pierwszym",
		CommunicationStyle: "Energiczny, pewny siebie, nastawiony na wrażenie",
		SalesPlaybook: Playbook{
			Do: []string{
				"Podkreślaj ekskluzywność i rozpoznawalność marki",
				"Mów o osiągach, przyspieszeniu i designie",
				"Proponuj jazdę próbną w najwyższej specyfikacji",
				"Wspominaj znane osoby i firmy jeżdżące tym modelem",
			},
			Dont: []string{
				"Nie zaczynaj od ceny ani rabatów",
				"Nie zagłębiaj się w tabele techniczne",
				"Nie porównuj do tańszych modeli",
			},
		},
	},
	{
		Key:                FamilyGuardian,
		Name:               "Strażnik Rodziny",
		Description:        "Priorytetem jest bezpieczeństwo bliskich i przewidywalność kosztów.",
		DominantTraits:     []string{"conscientiousness", "steadiness", "compliance"},
		Motivation:         "Ochrona rodziny, spokój, rozsądna i trwała inwestycja",
		CommunicationStyle: "Spokojny, dopytujący, ostrożny w decyzjach",
		SalesPlaybook: Playbook{
			Do: []string{
				"Zacznij od wyników testów bezpieczeństwa i ocen crash-test",
				"Pokaż przestrzeń dla dzieci, foteliki, bagażnik",
				"Podkreśl niskie koszty eksploatacji i gwarancję",
				"Daj czas na decyzję, zaproponuj jazdę z rodziną",
			},
			Dont: []string{
				"Nie wywieraj presji czasowej",
				"Nie epatuj sportowymi osiągami",
				"Nie bagatelizuj pytań o awaryjność",
			},
		},
	},
	{
		Key:                PragmaticAnalyst,
		Name:               "Pragmatyczny Analityk",
		Description:        "Decyduje na podstawie danych. TCO, tabele i liczby ważniejsze niż emocje.",
		DominantTraits:     []string{"conscientiousness", "compliance"},
		Motivation:         "Optymalna decyzja poparta liczbami, brak ryzyka przepłacenia",
		CommunicationStyle: "Rzeczowy, szczegółowy, sceptyczny wobec marketingu",
		SalesPlaybook: Playbook{
			Do: []string{
				"Przygotuj kalkulację TCO na 5 lat wobec spalinowego odpowiednika",
				"Operuj konkretnymi liczbami: zasięg, zużycie, serwis",
				"Udostępnij dane źródłowe i niezależne testy",
				"Odpowiadaj precyzyjnie na pytania techniczne",
			},
			Dont: []string{
				"Nie używaj ogólników ani sloganów reklamowych",
				"Nie wywołuj emocjonalnej presji",
				"Nie obiecuj niczego bez pokrycia w danych",
			},
		},
	},
	{
		Key:                FutureVisionary,
		Name:               "Wizjoner Przyszłości",
		Description:        "Kupuje technologię jutra. Autopilot i aktualizacje OTA to główna atrakcja.",
		DominantTraits:     []string{"openness", "influence"},
		Motivation:         "Udział w technologicznej rewolucji, bycie wcześnie",
		CommunicationStyle: "Entuzjastyczny, ciekawy nowości, szybki w decyzjach",
		SalesPlaybook: Playbook{
			Do: []string{
				"Demonstruj autopilota i aktualizacje over-the-air",
				"Opowiadaj o roadmapie rozwoju oprogramowania",
				"Pokaż integrację z aplikacją i ekosystemem ładowania",
				"Domykaj szybko, entuzjazm nie czeka",
			},
			Dont: []string{
				"Nie hamuj entuzjazmu biurokracją",
				"Nie skupiaj się na konserwatywnych argumentach kosztowych",
				"Nie porównuj do aut spalinowych jak do punktu odniesienia",
			},
		},
	},
	{
		Key:                EcoActivist,
		Name:               "Eko-Aktywista",
		Description:        "Motywacja środowiskowa. Zero emisji to wartość, nie dodatek.",
		DominantTraits:     []string{"agreeableness", "openness"},
		Motivation:         "Realny wpływ na klimat, spójność zakupu z wartościami",
		CommunicationStyle: "Wartościowy, zaangażowany, wrażliwy na greenwashing",
		SalesPlaybook: Playbook{
			Do: []string{
				"Mów o realnym śladzie węglowym w całym cyklu życia",
				"Podkreśl recykling baterii i energię odnawialną w ładowaniu",
				"Doceniaj motywację klienta, to wspólna misja",
				"Pokaż kalkulator zaoszczędzonych emisji",
			},
			Dont: []string{
				"Nie stosuj pustych ekologicznych frazesów",
				"Nie ukrywaj niewygodnych danych o produkcji baterii",
				"Nie sprowadzaj rozmowy wyłącznie do oszczędności",
			},
		},
	},
	{
		Key:                FleetManager,
		Name:               "Menedżer Floty",
		Description:        "Kupuje procesowo i na skalę. Liczy się TCO floty, serwis i procedury.",
		DominantTraits:     []string{"compliance", "conscientiousness"},
		Motivation:         "Optymalizacja kosztów floty, bezpieczny proces zakupowy",
		CommunicationStyle: "Formalny, proceduralny, wieloetapowy proces decyzyjny",
		SalesPlaybook: Playbook{
			Do: []string{
				"Przygotuj ofertę flotową z harmonogramem dostaw",
				"Przedstaw TCO w przeliczeniu na pojazd i rok",
				"Opisz program serwisowy i SLA dla flot",
				"Zaproponuj pilotaż na kilku pojazdach",
			},
			Dont: []string{
				"Nie pomijaj działu zakupów i procedur przetargowych",
				"Nie oczekuj decyzji na pierwszym spotkaniu",
				"Nie sprzedawaj emocjami, sprzedawaj arkuszem",
			},
		},
	},
}
