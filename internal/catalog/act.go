package catalog

import "fmt"

// Category groups acts for display and review matching.
type Category string

const (
	CategorySoin           Category = "soin"
	CategoryProthese       Category = "prothese"
	CategoryChirurgie      Category = "chirurgie"
	CategoryImplantologie  Category = "implantologie"
	CategoryOrthodontie    Category = "orthodontie"
	CategoryParodontologie Category = "parodontologie"
	CategoryPrevention     Category = "prevention"
	CategoryEsthetique     Category = "esthetique"
	CategoryAutre          Category = "autre"
)

var knownCategories = map[Category]struct{}{
	CategorySoin:           {},
	CategoryProthese:       {},
	CategoryChirurgie:      {},
	CategoryImplantologie:  {},
	CategoryOrthodontie:    {},
	CategoryParodontologie: {},
	CategoryPrevention:     {},
	CategoryEsthetique:     {},
	CategoryAutre:          {},
}

func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Act is one CCAM act. Zero prices mean "not published".
type Act struct {
	Code              string   `json:"code" toml:"code"`
	LabelTechnical    string   `json:"label_technical" toml:"label_technical"`
	LabelPatient      string   `json:"label_patient" toml:"label_patient"`
	LabelVibe         string   `json:"label_vibe,omitempty" toml:"label_vibe"`
	Description       string   `json:"description" toml:"description"`
	Category          Category `json:"category" toml:"category"`
	PriceMin          float64  `json:"price_min,omitempty" toml:"price_min"`
	PriceMax          float64  `json:"price_max,omitempty" toml:"price_max"`
	PriceAvgProvince  float64  `json:"price_avg_province,omitempty" toml:"price_avg_province"`
	PriceAvgParis     float64  `json:"price_avg_paris,omitempty" toml:"price_avg_paris"`
	Reimbursable      bool     `json:"reimbursable" toml:"reimbursable"`
	BaseRemboursement float64  `json:"base_remboursement,omitempty" toml:"base_remboursement"`
	VideoURL          string   `json:"video_url,omitempty" toml:"video_url"`
	Keywords          []string `json:"keywords" toml:"keywords"`
}

// ReferencePrice is the average province fee, falling back to the reimbursement base.
func ReferencePrice(act Act) float64 {
	if act.PriceAvgProvince > 0 {
		return act.PriceAvgProvince
	}
	return act.BaseRemboursement
}

// Headline is the reassuring label shown first, falling back to the description.
func (a Act) Headline() string {
	if a.LabelVibe != "" {
		return a.LabelVibe
	}
	return a.Description
}

// ResteACharge is the average province fee minus the reimbursement base, not clamped.
func (a Act) ResteACharge() float64 {
	return a.PriceAvgProvince - a.BaseRemboursement
}

func (a Act) validate() error {
	if a.Code == "" {
		return fmt.Errorf("act missing code")
	}
	if a.LabelPatient == "" {
		return fmt.Errorf("act %s missing label_patient", a.Code)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("act %s has unknown category %q", a.Code, a.Category)
	}
	if a.PriceMin > 0 && a.PriceMax > 0 && a.PriceMin > a.PriceMax {
		return fmt.Errorf("act %s price_min %.2f above price_max %.2f", a.Code, a.PriceMin, a.PriceMax)
	}
	return nil
}
