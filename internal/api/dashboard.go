package api

import (
	"fmt"
	"net/http"

	"github.com/danmuck/klarity/internal/auth"
	"github.com/danmuck/klarity/internal/observability"
	"github.com/danmuck/klarity/internal/pricing"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const ctxSession = "session"

type loginRequest struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       quote.Role `json:"role"`
	AccessCode string     `json:"accessCode"`
}

// login checks the access code, records the practitioner and opens a session.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	user, err := quote.NewUser(s.deps.NewID(), req.Name, req.Email, req.Role, req.AccessCode)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.deps.Validator.Validate(req.AccessCode); err != nil {
		log.Warn().Str("request_id", observability.RequestIDFrom(c)).Str("email", user.Email).Msg("login_denied")
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.deps.Store.PutUser(ctx, user); err != nil {
		fail(c, err)
		return
	}
	sess, err := s.deps.Sessions.Issue(ctx, user)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().Str("user", user.ID).Str("role", string(user.Role)).Msg("login")
	c.JSON(http.StatusOK, gin.H{
		"token":     sess.Token,
		"user":      sess.User,
		"expiresAt": sess.ExpiresAt,
	})
}

// requireSession resolves the bearer token into a session or aborts with 401.
func (s *Server) requireSession(c *gin.Context) {
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		fail(c, auth.ErrUnauthorized)
		return
	}
	sess, err := s.deps.Sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(ctxSession, sess)
	c.Next()
}

func sessionFrom(c *gin.Context) store.Session {
	v, _ := c.Get(ctxSession)
	sess, _ := v.(store.Session)
	return sess
}

func (s *Server) logout(c *gin.Context) {
	if err := s.deps.Sessions.Revoke(c.Request.Context(), sessionFrom(c).Token); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	sess := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{"user": sess.User, "expiresAt": sess.ExpiresAt})
}

type draftAct struct {
	Code  string   `json:"code"`
	Price *float64 `json:"price,omitempty"`
}

type draftRequest struct {
	PatientName      string          `json:"patientName"`
	PatientEmail     string          `json:"patientEmail"`
	Acts             []draftAct      `json:"acts"`
	DeliveryChannels []quote.Channel `json:"deliveryChannels"`
}

// draft replays the editor: acts are added in order, explicit prices override
// the seeded reference price, and channels replace the email+sms default when sent.
func (s *Server) draft(req draftRequest) (quote.Draft, error) {
	d := quote.NewDraft()
	d.PatientName = req.PatientName
	d.PatientEmail = req.PatientEmail
	for _, a := range req.Acts {
		act, err := s.deps.Catalog.Get(a.Code)
		if err != nil {
			return quote.Draft{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		d.AddAct(act)
		if a.Price != nil {
			if *a.Price < 0 {
				return quote.Draft{}, fmt.Errorf("%w: negative price for %s", errBadRequest, a.Code)
			}
			d.SetPrice(act.Code, *a.Price)
		}
	}
	if req.DeliveryChannels != nil {
		d.DeliveryChannels = append([]quote.Channel{}, req.DeliveryChannels...)
	}
	return d, nil
}

func (s *Server) createQuote(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	d, err := s.draft(req)
	if err != nil {
		fail(c, err)
		return
	}
	ttl := s.deps.Links.TTL
	if ttl <= 0 {
		ttl = quote.DefaultLinkTTL
	}
	q, err := d.Build(s.deps.NewID(), s.deps.Now(), ttl)
	if err != nil {
		fail(c, err)
		return
	}
	saved, err := s.deps.Store.PutQuote(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().
		Str("quote", saved.ID).
		Str("user", sessionFrom(c).User.ID).
		Int("acts", len(saved.Acts)).
		Float64("total", saved.Total).
		Msg("quote_sent")
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) listQuotes(c *gin.Context) {
	quotes, err := s.deps.Store.ListQuotes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (s *Server) getQuote(c *gin.Context) {
	q, err := s.deps.Store.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// simulateOpen lets the practitioner record an open by hand, ignoring expiry.
func (s *Server) simulateOpen(c *gin.Context) {
	s.quoteMu.Lock()
	defer s.quoteMu.Unlock()
	ctx := c.Request.Context()
	q, err := s.deps.Store.GetQuote(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	q.RecordOpen(s.deps.Now())
	saved, err := s.deps.Store.PutQuote(ctx, q)
	if err != nil {
		fail(c, err)
		return
	}
	observability.RecordLinkOpen(s.ID, "simulated")
	c.JSON(http.StatusOK, saved)
}

func (s *Server) stats(c *gin.Context) {
	quotes, err := s.deps.Store.ListQuotes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pricing.DashboardStats(quotes))
}
