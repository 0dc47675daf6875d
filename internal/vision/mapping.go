package vision

import (
	"strings"

	"github.com/danmuck/klarity/internal/catalog"
)

const (
	UnknownCode        = "INCONNU"
	unknownTechnical   = "Acte non reconnu dans la base locale"
	unknownDescription = "Acte identifié par l'IA mais non présent dans la base locale."
)

// MapToCatalog resolves each analyzed act against cat: exact code first, then a
// fuzzy description match, else a placeholder act priced at the quoted amount.
func MapToCatalog(analyzed []AnalyzedAct, cat *catalog.Catalog) []catalog.Act {
	out := make([]catalog.Act, 0, len(analyzed))
	for _, a := range analyzed {
		out = append(out, mapOne(a, cat))
	}
	return out
}

func mapOne(a AnalyzedAct, cat *catalog.Catalog) catalog.Act {
	if a.Code != nil {
		if act, ok := cat.Lookup(strings.TrimSpace(*a.Code)); ok {
			return act
		}
	}
	if act, ok := cat.FuzzyMatch(a.Description); ok {
		return act
	}
	return catalog.Act{
		Code:             a.CodeOr(UnknownCode),
		LabelPatient:     a.Description,
		LabelTechnical:   unknownTechnical,
		Description:      unknownDescription,
		PriceAvgProvince: float64(a.Price),
		Reimbursable:     false,
		Keywords:         []string{},
		Category:         catalog.Category(a.Type),
	}
}
