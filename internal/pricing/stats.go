package pricing

import (
	"math"

	"github.com/danmuck/klarity/internal/quote"
)

// Stats are the dashboard headline numbers.
type Stats struct {
	Quotes         int     `json:"quotes"`
	AcceptanceRate int     `json:"acceptanceRate"`
	Total          float64 `json:"total"`
	Pending        float64 `json:"pending"`
	OpenEvents     int     `json:"openEvents"`
}

// DashboardStats aggregates quotes. Acceptance rate is a rounded percentage, 0 with no quotes.
func DashboardStats(quotes []quote.Quote) Stats {
	st := Stats{Quotes: len(quotes)}
	accepted := 0
	for _, q := range quotes {
		st.Total += q.Total
		st.OpenEvents += q.OpenCount
		if q.Status == quote.StatusAccepted {
			accepted++
			continue
		}
		st.Pending += q.Total
	}
	if len(quotes) > 0 {
		st.AcceptanceRate = int(math.Round(float64(accepted) / float64(len(quotes)) * 100))
	}
	return st
}
