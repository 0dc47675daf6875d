package main

import (
	"context"
	"fmt"

	"github.com/danmuck/klarity/internal/api"
	"github.com/danmuck/klarity/internal/auth"
	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/config"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/danmuck/klarity/internal/vision"
	"github.com/rs/zerolog/log"
)

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Load()
	}
	return catalog.LoadFile(cfg.CatalogPath)
}

func newAnalyzer(ctx context.Context, cfg config.Config) (vision.Analyzer, error) {
	var inner vision.Analyzer
	switch cfg.Vision.Provider {
	case config.VisionGenAI:
		a, err := vision.NewGenAIAnalyzer(ctx, vision.GenAIConfig{
			APIKey:    cfg.Vision.APIKey,
			Model:     cfg.Vision.Model,
			MaxTokens: cfg.Vision.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		inner = a
	case config.VisionMock:
		inner = vision.MockAnalyzer{Delay: cfg.MockDelay()}
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Vision.Provider)
	}
	return vision.Instrumented{Analyzer: inner, Node: cfg.Name}, nil
}

func linkIssuer(cfg config.Config) (quote.LinkIssuer, error) {
	ttl, err := cfg.LinkTTL()
	if err != nil {
		return quote.LinkIssuer{}, err
	}
	return quote.NewLinkIssuer(cfg.Links.BaseURL, ttl), nil
}

// buildServer wires config into an api.Server. The returned store must be closed.
func buildServer(ctx context.Context, cfg config.Config) (*api.Server, store.Store, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	links, err := linkIssuer(cfg)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := newAnalyzer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path, links)
	if err != nil {
		return nil, nil, err
	}
	sessionTTL, err := cfg.SessionTTL()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	visionTimeout, err := cfg.VisionTimeout()
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	validator, open := auth.NewValidator(cfg.Auth.AccessCodeHash, cfg.Auth.AccessCode)
	if open {
		log.Warn().Msg("no access code configured: any non-empty code opens the dashboard")
	}

	server := api.New(api.Options{
		ID:          cfg.Name,
		Addr:        cfg.Addr,
		CorsOrigins: cfg.CorsOrigins,
	}, api.Deps{
		Catalog:       cat,
		Store:         st,
		Analyzer:      analyzer,
		Links:         links,
		Validator:     validator,
		Sessions:      auth.Sessions{Store: st, TTL: sessionTTL},
		VisionTimeout: visionTimeout,
	})
	log.Info().
		Int("acts", cat.Len()).
		Str("store", cfg.Store.Driver).
		Str("vision", analyzer.Provider()).
		Msg("klarity wired")
	return server, st, nil
}
