package catalog

import "strings"

// Search matches term against code, patient label, technical label and keywords,
// case-insensitively. An empty term returns the whole table.
func (c *Catalog) Search(term string) []Act {
	if term == "" {
		return c.All()
	}
	lower := strings.ToLower(term)
	out := make([]Act, 0)
	for _, act := range c.acts {
		if matchesSearch(act, lower) {
			out = append(out, act)
		}
	}
	return out
}

// Suggest is the editor lookup: code or patient label only, first limit hits.
// An empty term returns nothing. limit <= 0 uses DefaultSuggestLimit.
func (c *Catalog) Suggest(term string, limit int) []Act {
	if term == "" {
		return []Act{}
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	lower := strings.ToLower(term)
	out := make([]Act, 0, limit)
	for _, act := range c.acts {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(act.Code), lower) ||
			strings.Contains(strings.ToLower(act.LabelPatient), lower) {
			out = append(out, act)
		}
	}
	return out
}

// FuzzyMatch returns the first act whose patient label contains description,
// or whose keyword appears inside description. Blank descriptions never match.
func (c *Catalog) FuzzyMatch(description string) (Act, bool) {
	lower := strings.ToLower(strings.TrimSpace(description))
	if lower == "" {
		return Act{}, false
	}
	for _, act := range c.acts {
		if strings.Contains(strings.ToLower(act.LabelPatient), lower) {
			return act, true
		}
		for _, k := range act.Keywords {
			if strings.Contains(lower, k) {
				return act, true
			}
		}
	}
	return Act{}, false
}

func matchesSearch(act Act, lower string) bool {
	if strings.Contains(strings.ToLower(act.Code), lower) ||
		strings.Contains(strings.ToLower(act.LabelPatient), lower) ||
		strings.Contains(strings.ToLower(act.LabelTechnical), lower) {
		return true
	}
	for _, k := range act.Keywords {
		if strings.Contains(strings.ToLower(k), lower) {
			return true
		}
	}
	return false
}
