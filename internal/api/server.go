// Package api is the klarity HTTP surface: catalog lookups, patient carts,
// quote scanning, the practitioner dashboard and magic link landing pages.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/klarity/internal/auth"
	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/observability"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/danmuck/klarity/internal/vision"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Deps are the collaborators behind the handlers.
type Deps struct {
	Catalog   *catalog.Catalog
	Store     store.Store
	Analyzer  vision.Analyzer
	Links     quote.LinkIssuer
	Validator auth.Validator
	Sessions  auth.Sessions

	// VisionTimeout bounds one analyzer call. Zero means no extra bound.
	VisionTimeout time.Duration
	Now           func() time.Time
	NewID         func() string
}

type Options struct {
	ID          string
	Addr        string
	CorsOrigins []string
}

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	deps   Deps
	router *gin.Engine
	// serializes read-modify-write of quotes reached through links
	quoteMu sync.Mutex
	// same for carts
	cartMu sync.Mutex
}

// New builds the router with recovery, request ids, logging, metrics and CORS.
// Routes are registered by RegisterRoutes.
func New(opts Options, deps Deps) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(opts.CorsOrigins),
		AllowMethods:  []string{"GET", "POST", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", observability.HeaderRequestID},
		ExposeHeaders: []string{observability.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Validator == nil {
		log.Warn().Msg("api: no access code validator configured, dashboard accepts any non-blank code")
		deps.Validator = auth.AnyCode{}
	}
	if deps.Sessions.Now == nil {
		deps.Sessions.Now = deps.Now
	}
	if deps.Sessions.Store == nil {
		deps.Sessions.Store = deps.Store
	}
	if deps.Links.Now == nil {
		deps.Links.Now = deps.Now
	}

	return &Server{
		ID:       opts.ID,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		deps:     deps,
		router:   r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/analyze-quote", s.analyzeQuote)
	api.POST("/scan", s.scan)

	api.GET("/acts", s.searchActs)
	api.GET("/acts/suggest", s.suggestActs)
	api.GET("/acts/:code", s.getAct)
	api.GET("/acts/:code/insight", s.actInsight)

	api.POST("/carts", s.createCart)
	api.GET("/carts/:id", s.getCart)
	api.POST("/carts/:id/acts", s.addCartAct)
	api.DELETE("/carts/:id/acts/:index", s.removeCartAct)

	api.POST("/login", s.login)
	api.POST("/logout", s.requireSession, s.logout)
	api.GET("/me", s.requireSession, s.me)

	dash := api.Group("/dashboard", s.requireSession)
	dash.POST("/quotes", s.createQuote)
	dash.GET("/quotes", s.listQuotes)
	dash.GET("/quotes/:id", s.getQuote)
	dash.POST("/quotes/:id/open", s.simulateOpen)
	dash.GET("/stats", s.stats)

	r.GET("/d/:token", s.openLink)
	r.POST("/d/:token/accept", s.acceptLink)
}

// Serve blocks until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("service", s.ID).Str("addr", s.Addr).Msg("http_listen")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Str("service", s.ID).Msg("http_shutdown")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.Appeared).String(),
		"service": s.ID,
		"version": version,
	})
}

func (s *Server) ready(c *gin.Context) {
	ready := s.deps.Catalog != nil && s.deps.Store != nil && s.deps.Analyzer != nil
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	body := gin.H{
		"ready":   ready,
		"uptime":  time.Since(s.Appeared).String(),
		"service": s.ID,
		"version": version,
	}
	if s.deps.Catalog != nil {
		body["acts"] = s.deps.Catalog.Len()
	}
	if s.deps.Analyzer != nil {
		body["vision"] = s.deps.Analyzer.Provider()
	}
	c.JSON(status, body)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:5173"}
	}
	return origins
}
