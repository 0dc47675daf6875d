package pricing

// Mutuelle is a partner complementary insurance offer.
type Mutuelle struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Coverage      string  `json:"coverage"`
	Delay         string  `json:"delay"`
	Compatibility string  `json:"compatibility"`
	Monthly       float64 `json:"monthly"`
	Highlight     bool    `json:"highlight,omitempty"`
}

var mutuelles = []Mutuelle{
	{
		ID:            "m1",
		Name:          "SantéPlus Optimum",
		Coverage:      "200% BR + forfait implant 500€",
		Delay:         "Sans carence",
		Compatibility: "Implants / Couronne",
		Monthly:       32,
		Highlight:     true,
	},
	{
		ID:            "m2",
		Name:          "NeoMutuelle Confort",
		Coverage:      "180% BR + prothèse 350€",
		Delay:         "Carence 3 mois",
		Compatibility: "Couronne / Inlay-Core",
		Monthly:       27,
	},
	{
		ID:            "m3",
		Name:          "Direct Santé Flex",
		Coverage:      "150% BR + plafond dentaire 900€",
		Delay:         "Sans carence",
		Compatibility: "Soins / orthodontie légère",
		Monthly:       24,
	},
}

func Mutuelles() []Mutuelle {
	out := make([]Mutuelle, len(mutuelles))
	copy(out, mutuelles)
	return out
}

// Financing is the installment offer for a reste à charge.
type Financing struct {
	ResteACharge float64  `json:"resteACharge"`
	Monthly      float64  `json:"monthly"`
	Mutuelle     Mutuelle `json:"mutuelle"`
}

func NewFinancing(reste float64) Financing {
	return Financing{
		ResteACharge: reste,
		Monthly:      Monthly(reste),
		Mutuelle:     highlighted(mutuelles),
	}
}

func highlighted(list []Mutuelle) Mutuelle {
	for _, m := range list {
		if m.Highlight {
			return m
		}
	}
	if len(list) == 0 {
		return Mutuelle{}
	}
	return list[0]
}
