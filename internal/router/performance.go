package router

import (
	"strings"

	"abchat/internal/extract"
	"abchat/internal/index"
	"abchat/internal/query"
)

var (
	performanceWords = []string{
		"mayor", "menor", "mayores", "menores", "maximo", "minimo", "mejor", "peor", "mejores", "peores", "top", "ranking",
		"mas alto", "mas bajo", "highest", "lowest", "best", "worst",
	}
	ascendingWords = []string{"menor", "menores", "minimo", "peor", "peores", "mas bajo", "lowest", "worst"}
)

// Performance is a ranking request found in a question.
type Performance struct {
	Metric index.Field
	Order  query.Order
}

// DetectPerformance reports whether the question asks for a ranking, and by what.
// Conversion rate, descending, is the default.
func DetectPerformance(question string) (Performance, bool) {
	folded := extract.Fold(question)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	joined := " " + strings.Join(words, " ") + " "
	contains := func(list ...string) bool {
		for _, w := range list {
			if strings.Contains(joined, " "+w+" ") {
				return true
			}
		}
		return false
	}
	if !contains(performanceWords...) {
		return Performance{}, false
	}
	p := Performance{Metric: index.FieldConversionRate, Order: query.Desc}
	switch {
	case strings.Contains(folded, "revenue") || strings.Contains(folded, "ingreso") || strings.Contains(folded, "ganancia"):
		p.Metric = index.FieldRevenue
	case strings.Contains(folded, "usuario") || strings.Contains(folded, "users") || strings.Contains(folded, "trafico"):
		p.Metric = index.FieldUsers
	case strings.Contains(folded, "conversiones") && !strings.Contains(folded, "tasa"):
		p.Metric = index.FieldConversions
	}
	if contains(ascendingWords...) {
		p.Order = query.Asc
	}
	return p, true
}
