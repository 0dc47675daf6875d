package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/danmuck/klarity/internal/catalog"
)

type Pain string

const (
	PainLow      Pain = "faible"
	PainModerate Pain = "modérée"
	PainHigh     Pain = "forte"
)

// Scenario is what happens if the patient postpones the treatment.
type Scenario struct {
	FutureCondition string  `json:"futureCondition"`
	FutureTreatment string  `json:"futureTreatment"`
	FuturePrice     float64 `json:"futurePrice"`
	Reimbursed      bool    `json:"reimbursed"`
	PainLevel       int     `json:"painLevel"`
	Complexity      int     `json:"complexity"`
	Description     string  `json:"description"`
	Timeframe       string  `json:"timeframe"`
}

type scenarioRule struct {
	patient   []string
	technical []string
	base      float64
	factor    float64
	scenario  Scenario
}

var scenarioRules = []scenarioRule{
	{
		patient:   []string{"carie", "obturation", "composite"},
		technical: []string{"restauration"},
		base:      950,
		factor:    2.5,
		scenario: Scenario{
			FutureCondition: "Nécrose de la dent",
			FutureTreatment: "Dévitalisation + Couronne + Inlay-Core",
			Reimbursed:      true,
			PainLevel:       8,
			Complexity:      6,
			Description:     "La carie va atteindre le nerf. La douleur sera intense (rage de dent) et la dent deviendra cassante, nécessitant une couronne.",
			Timeframe:       "6 mois - 1 an",
		},
	},
	{
		patient: []string{"extraction", "avulsion"},
		base:    2200,
		factor:  3,
		scenario: Scenario{
			FutureCondition: "Perte osseuse & Déplacement des dents",
			FutureTreatment: "Greffe osseuse + Implant + Couronne",
			Reimbursed:      false,
			PainLevel:       4,
			Complexity:      9,
			Description:     "Sans racine, l'os se résorbe. Les dents voisines se couchent. Pour remplacer la dent plus tard, il faudra une chirurgie lourde (greffe).",
			Timeframe:       "1 an - 2 ans",
		},
	},
	{
		patient: []string{"détartrage", "gencive", "surfaçage"},
		base:    1200,
		factor:  2.2,
		scenario: Scenario{
			FutureCondition: "Parodontite (Déchaussement)",
			FutureTreatment: "Surfaçage complet + Chirurgie parodontale",
			Reimbursed:      false,
			PainLevel:       5,
			Complexity:      7,
			Description:     "L'inflammation va détruire l'os de soutien. Les dents vont bouger et finiront par tomber spontanément.",
			Timeframe:       "2 ans - 5 ans",
		},
	},
	{
		patient: []string{"couronne", "bridge"},
		base:    1800,
		factor:  2.4,
		scenario: Scenario{
			FutureCondition: "Fracture de la racine",
			FutureTreatment: "Extraction + Implant",
			Reimbursed:      false,
			PainLevel:       6,
			Complexity:      8,
			Description:     "La dent fragilisée risque de se fendre verticalement. Elle sera alors impossible à sauver et devra être extraite.",
			Timeframe:       "1 an - 3 ans",
		},
	},
}

var fallbackRule = scenarioRule{
	base:   1500,
	factor: 3,
	scenario: Scenario{
		FutureCondition: "Aggravation et perte de matière",
		FutureTreatment: "Traitement complet + Couronne ou Implant",
		Reimbursed:      false,
		PainLevel:       6,
		Complexity:      7,
		Description:     "Sans intervention, la situation dégénère : plus d'inflammation, d'os perdu, et un traitement prothétique ou implantaire devient inévitable.",
		Timeframe:       "1 an - 2 ans",
	},
}

// Inaction picks the first scenario whose keywords appear in the act labels.
// currentPrice <= 0 keeps the scenario base price.
func Inaction(act catalog.Act, currentPrice float64) Scenario {
	rule := matchRule(act)
	s := rule.scenario
	s.FuturePrice = futurePrice(rule.base, rule.factor, currentPrice)
	return s
}

func matchRule(act catalog.Act) scenarioRule {
	patient := strings.ToLower(act.LabelPatient)
	technical := strings.ToLower(act.LabelTechnical)
	for _, rule := range scenarioRules {
		if containsAny(patient, rule.patient) || containsAny(technical, rule.technical) {
			return rule
		}
	}
	return fallbackRule
}

func futurePrice(base, factor, current float64) float64 {
	if current > 0 {
		return math.Max(base, math.Round(current*factor))
	}
	return base
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Step is one point on the inaction timeline.
type Step struct {
	Label     string  `json:"label"`
	Condition string  `json:"condition"`
	Cost      float64 `json:"cost"`
	Pain      Pain    `json:"pain"`
	Delta     float64 `json:"delta"`
}

// Timeline is a scenario laid out as today, midway and future steps.
type Timeline struct {
	Act      string   `json:"act"`
	Summary  string   `json:"summary"`
	Scenario Scenario `json:"scenario"`
	Steps    []Step   `json:"steps"`
	MaxCost  float64  `json:"maxCost"`
}

// InactionTimeline expands Inaction into steps whose Delta is the extra cost over today.
func InactionTimeline(act catalog.Act, currentPrice float64) Timeline {
	s := Inaction(act, currentPrice)
	today := currentPrice
	if today <= 0 {
		today = catalog.ReferencePrice(act)
	}
	steps := []Step{
		{Label: "Aujourd'hui", Condition: act.LabelPatient, Cost: today, Pain: PainLow},
		{Label: "Dans quelques mois", Condition: "Aggravation silencieuse", Cost: math.Round((today + s.FuturePrice) / 2), Pain: PainModerate},
		{Label: s.Timeframe, Condition: s.FutureCondition, Cost: s.FuturePrice, Pain: painFor(s.PainLevel)},
	}
	maxCost := 0.0
	for i := range steps {
		steps[i].Delta = math.Max(0, steps[i].Cost-steps[0].Cost)
		maxCost = math.Max(maxCost, steps[i].Cost)
	}
	return Timeline{
		Act:      act.Code,
		Summary:  fmt.Sprintf("Attendre, c'est risquer : %s (%s).", strings.ToLower(s.FutureCondition), s.FutureTreatment),
		Scenario: s,
		Steps:    steps,
		MaxCost:  maxCost,
	}
}

func painFor(level int) Pain {
	switch {
	case level >= 7:
		return PainHigh
	case level >= 4:
		return PainModerate
	default:
		return PainLow
	}
}
