// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/nostalgia/internal/control/middleware"
)

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  s.cfg.EnableMetrics,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	s.registerPublicRoutes(r)
	// Media elements issue bursts of range requests; the protocol route is
	// never rate limited.
	r.Handle("/vhs/*", s.media)

	r.Route(BasePath, func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst))
		}
		r.Use(middleware.SameOriginGuard)
		s.registerControlRoutes(r)
		s.registerLibraryRoutes(r)
		s.registerScreenRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed on this endpoint")
	})
	return r
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	if s.health == nil {
		return
	}
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
}

func (s *Server) registerControlRoutes(r chi.Router) {
	r.Get("/state", s.handleState)
	r.Put("/shader", s.handleShader)
	r.Post("/texture/refresh", s.handleTextureRefresh)
	r.Put("/subtitle", s.handleSetSubtitle)
	r.Delete("/subtitle", s.handleClearSubtitle)
	r.Put("/viewport", s.handleViewport)
	r.Put("/volume", s.handleVolume)
	r.Post("/input/key", s.handleKey)

	r.Route("/player", func(r chi.Router) {
		r.Post("/play", s.handlePlay)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/stop", s.handleStop)
	})
}

func (s *Server) registerLibraryRoutes(r chi.Router) {
	if s.library == nil {
		return
	}
	r.Get("/channels", s.handleChannels)
	r.Get("/channels/{id}/items", s.handleChannelItems)
	r.Post("/library/scan", s.handleScan)
}

func (s *Server) registerScreenRoutes(r chi.Router) {
	r.Get("/screen.png", s.handleScreenPNG)
	r.Get("/screen.mjpeg", s.handleScreenMJPEG)
}
