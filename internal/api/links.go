package api

import (
	"errors"
	"net/http"

	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/observability"
	"github.com/danmuck/klarity/internal/pricing"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// landing is what a patient sees behind a magic link.
type landing struct {
	Quote        quote.Quote        `json:"quote"`
	StatusLabel  string             `json:"statusLabel"`
	ActsLabel    string             `json:"actsLabel"`
	Base         float64            `json:"baseRemboursement"`
	ResteACharge float64            `json:"resteACharge"`
	Financing    pricing.Financing  `json:"financing"`
	Tiers        []pricing.Tier     `json:"tiers"`
	Reviews      []pricing.Review   `json:"reviews"`
	Inaction     *pricing.Timeline  `json:"inaction,omitempty"`
	Complication float64            `json:"complication"`
	Mutuelles    []pricing.Mutuelle `json:"mutuelles"`
}

func newLanding(q quote.Quote) landing {
	reste := q.ResteACharge()
	l := landing{
		Quote:        q,
		StatusLabel:  q.Status.Label(),
		ActsLabel:    q.ActsLabel(),
		Base:         q.BaseRemboursement(),
		ResteACharge: reste,
		Financing:    pricing.NewFinancing(reste),
		Tiers:        pricing.Tiers(q.Acts),
		Reviews:      pricing.Reviews(q.Acts),
		Complication: q.Complication(),
		Mutuelles:    pricing.Mutuelles(),
	}
	if len(q.Acts) > 0 {
		act := q.Acts[0]
		price, ok := q.CustomPrices[act.Code]
		if !ok {
			price = catalog.ReferencePrice(act)
		}
		t := pricing.InactionTimeline(act, price)
		l.Inaction = &t
	}
	return l
}

// openLink counts one open and renders the landing payload. Expired links are
// not counted and answer 410.
func (s *Server) openLink(c *gin.Context) {
	s.quoteMu.Lock()
	defer s.quoteMu.Unlock()
	ctx := c.Request.Context()
	q, err := s.deps.Store.QuoteByToken(ctx, c.Param("token"))
	if err != nil {
		observability.RecordLinkOpen(s.ID, "not_found")
		fail(c, err)
		return
	}
	if err := q.Open(s.deps.Now()); err != nil {
		if errors.Is(err, quote.ErrLinkExpired) {
			observability.RecordLinkOpen(s.ID, "expired")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusGone, gin.H{
				"error":         err.Error(),
				"linkExpiresAt": q.LinkExpiresAt,
			})
			return
		}
		fail(c, err)
		return
	}
	saved, err := s.deps.Store.PutQuote(ctx, q)
	if err != nil {
		fail(c, err)
		return
	}
	observability.RecordLinkOpen(s.ID, "opened")
	log.Info().Str("quote", saved.ID).Int("open_count", saved.OpenCount).Msg("magic_link_opened")
	c.JSON(http.StatusOK, newLanding(saved))
}

// acceptLink marks the quote accepted. Accepting twice is a no-op.
func (s *Server) acceptLink(c *gin.Context) {
	s.quoteMu.Lock()
	defer s.quoteMu.Unlock()
	ctx := c.Request.Context()
	q, err := s.deps.Store.QuoteByToken(ctx, c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}
	if q.Expired(s.deps.Now()) {
		fail(c, quote.ErrLinkExpired)
		return
	}
	q.Accept()
	saved, err := s.deps.Store.PutQuote(ctx, q)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().Str("quote", saved.ID).Msg("quote_accepted")
	c.JSON(http.StatusOK, saved)
}
