package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/pricing"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/gin-gonic/gin"
)

func (s *Server) searchActs(c *gin.Context) {
	acts := s.deps.Catalog.Search(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"acts": acts, "count": len(acts)})
}

func (s *Server) suggestActs(c *gin.Context) {
	limit := catalog.DefaultSuggestLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"acts": s.deps.Catalog.Suggest(c.Query("q"), limit)})
}

func (s *Server) getAct(c *gin.Context) {
	act, err := s.deps.Catalog.Get(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// actInsight is the patient detail view: what the act costs, what is left to
// pay, how to spread it, and what waiting would cost. ?price= overrides the
// quoted price, which defaults to the reference price.
func (s *Server) actInsight(c *gin.Context) {
	act, err := s.deps.Catalog.Get(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	price := catalog.ReferencePrice(act)
	if raw := c.Query("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			fail(c, fmt.Errorf("%w: price must be a non-negative number", errBadRequest))
			return
		}
		price = p
	}
	reste := price - act.BaseRemboursement
	if reste < 0 {
		reste = 0
	}
	acts := []catalog.Act{act}
	c.JSON(http.StatusOK, gin.H{
		"act":          act,
		"headline":     act.Headline(),
		"price":        price,
		"resteACharge": reste,
		"priceSignal":  quote.FairPrice(price, act),
		"financing":    pricing.NewFinancing(reste),
		"tiers":        pricing.Tiers(acts),
		"inaction":     pricing.InactionTimeline(act, price),
		"reviews":      pricing.Reviews(acts),
	})
}
