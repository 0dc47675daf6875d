package pricing

import (
	"math"

	"github.com/danmuck/klarity/internal/catalog"
)

type TierID string

const (
	TierGood   TierID = "good"
	TierBetter TierID = "better"
	TierBest   TierID = "best"
)

const (
	// MinMonthly is the floor of any monthly installment.
	MinMonthly = 25
	// Installments is the number of monthly payments offered.
	Installments = 4

	emptyTierBase      = 900
	unpricedActDefault = 250
)

type Tier struct {
	ID          TierID  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Multiplier  float64 `json:"multiplier"`
	Badge       string  `json:"badge,omitempty"`
	Price       float64 `json:"price"`
	Monthly     float64 `json:"monthly"`
	Default     bool    `json:"default,omitempty"`
}

var tierTemplates = []Tier{
	{
		ID:          TierGood,
		Title:       "Standard",
		Description: "Solution économique, matériaux basiques, confort correct.",
		Multiplier:  0.8,
	},
	{
		ID:          TierBetter,
		Title:       "Recommandée",
		Description: "Équilibre entre confort, esthétique et durabilité.",
		Multiplier:  1,
		Badge:       "Conseillée",
		Default:     true,
	},
	{
		ID:          TierBest,
		Title:       "Premium",
		Description: "Matériaux haut de gamme, esthétique renforcée et long terme.",
		Multiplier:  1.35,
		Badge:       "Longévité",
	},
}

// TierBase sums avg province fee, else reimbursement base, else 250 per act.
// No acts gives 900.
func TierBase(acts []catalog.Act) float64 {
	if len(acts) == 0 {
		return emptyTierBase
	}
	base := 0.0
	for _, act := range acts {
		switch {
		case act.PriceAvgProvince > 0:
			base += act.PriceAvgProvince
		case act.BaseRemboursement > 0:
			base += act.BaseRemboursement
		default:
			base += unpricedActDefault
		}
	}
	return base
}

// Tiers prices the good/better/best options for acts.
func Tiers(acts []catalog.Act) []Tier {
	base := TierBase(acts)
	out := make([]Tier, len(tierTemplates))
	for i, tpl := range tierTemplates {
		tier := tpl
		tier.Price = math.Round(base * tier.Multiplier)
		tier.Monthly = Monthly(tier.Price)
		out[i] = tier
	}
	return out
}

// Monthly spreads amount over four installments, at least 25.
func Monthly(amount float64) float64 {
	return math.Max(MinMonthly, math.Ceil(amount/Installments))
}
