package pricing

import (
	"sort"
	"strings"

	"github.com/danmuck/klarity/internal/catalog"
)

type Review struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	City    string   `json:"city"`
	Snippet string   `json:"snippet"`
	Tags    []string `json:"tags"`
	Rating  int      `json:"rating"`
}

const reviewsShown = 3

var reviews = []Review{
	{ID: "r1", Name: "Michel L.", City: "Lyon", Snippet: "Implant parfaitement indolore, suivi clair. Je n'ai rien senti.", Tags: []string{"implant", "chirurgie"}, Rating: 5},
	{ID: "r2", Name: "Sarah P.", City: "Bordeaux", Snippet: "Couronne céramique esthétique, résultat très naturel.", Tags: []string{"couronne", "prothese", "esthetique"}, Rating: 5},
	{ID: "r3", Name: "Nadia K.", City: "Paris", Snippet: "Traitement carie rapide, explications simples, aucun stress.", Tags: []string{"carie", "soin", "prevention"}, Rating: 4},
	{ID: "r4", Name: "Julien D.", City: "Marseille", Snippet: "Greffe osseuse + implant : prise en charge complète, rendez-vous bien coordonnés.", Tags: []string{"implant", "greffe", "chirurgie"}, Rating: 5},
	{ID: "r5", Name: "Elodie V.", City: "Nantes", Snippet: "Facette et alignement : sourire impeccable et process fluide.", Tags: []string{"esthetique", "orthodontie"}, Rating: 5},
}

// codeTags maps CCAM code prefixes to review tags.
var codeTags = map[string]string{
	"hbl": "implant",
	"hbj": "couronne",
	"hbd": "carie",
}

// Reviews returns the three most relevant reviews for acts: any tag overlap first,
// then by rating. Ties keep table order.
func Reviews(acts []catalog.Act) []Review {
	if len(acts) == 0 {
		return cloneReviews(reviews[:reviewsShown])
	}
	tags := map[string]struct{}{}
	for _, act := range acts {
		tags[string(act.Category)] = struct{}{}
		code := strings.ToLower(act.Code)
		for prefix, tag := range codeTags {
			if strings.Contains(code, prefix) {
				tags[tag] = struct{}{}
			}
		}
	}

	type scored struct {
		review Review
		score  int
	}
	list := make([]scored, len(reviews))
	for i, r := range reviews {
		score := 0
		for _, tag := range r.Tags {
			if _, ok := tags[tag]; ok {
				score = 1
				break
			}
		}
		list[i] = scored{review: r, score: score}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].review.Rating > list[j].review.Rating
	})

	out := make([]Review, 0, reviewsShown)
	for _, s := range list[:reviewsShown] {
		out = append(out, s.review)
	}
	return cloneReviews(out)
}

func cloneReviews(in []Review) []Review {
	out := make([]Review, len(in))
	for i, r := range in {
		r.Tags = append([]string(nil), r.Tags...)
		out[i] = r
	}
	return out
}
