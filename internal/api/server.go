// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the control API, the media protocol route and the
// screen endpoints on one chi router.
package api

import (
	"context"
	"errors"
	"image"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	vhshttp "github.com/ManuGH/nostalgia/internal/control/http"
	"github.com/ManuGH/nostalgia/internal/health"
	"github.com/ManuGH/nostalgia/internal/library"
	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/shell"
)

// BasePath prefixes every control endpoint.
const BasePath = "/api/v1"

// Player is the part of the shell the API drives. *shell.Shell implements it.
type Player interface {
	Play(ctx context.Context, req shell.PlayRequest) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Key(ctx context.Context, key string, shift bool) (bool, error)
	SetShaderEnabled(ctx context.Context, enabled bool) error
	RefreshTexture(ctx context.Context) (bool, error)
	SetSubtitle(ctx context.Context, text string, start, end float64) error
	ClearSubtitle(ctx context.Context) error
	Resize(ctx context.Context, width, height int) error
	SetFullscreen(ctx context.Context, on bool) error
	SetVolume(ctx context.Context, vol float64) (float64, error)
	RefreshChannels(ctx context.Context) error
	Snapshot(ctx context.Context) (*image.RGBA, error)
	State() shell.State
}

// Library is the channel catalogue. *library.Service implements it.
type Library interface {
	Scan(ctx context.Context) (library.ScanResult, error)
	Channels(ctx context.Context) ([]library.Channel, error)
	Items(ctx context.Context, channelID string) ([]library.Item, error)
}

// RateLimitConfig bounds control API traffic.
type RateLimitConfig struct {
	Enabled bool
	RPS     int
	Burst   int
}

// Config configures the HTTP surface.
type Config struct {
	StrictRanges   bool
	RateLimit      RateLimitConfig
	TracingService string // empty disables tracing
	EnableMetrics  bool
}

// Deps are the collaborators of the server. Library and Health are optional.
type Deps struct {
	Player  Player
	Library Library
	Health  *health.Manager
}

// Server owns the router. The daemon wraps Handler in an http.Server.
type Server struct {
	cfg     Config
	player  Player
	library Library
	health  *health.Manager
	media   *vhshttp.MediaHandler
	logger  zerolog.Logger

	mu      sync.Mutex
	streams map[chan struct{}]struct{}
	closed  bool

	handler http.Handler
}

// New builds the server and its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Player == nil {
		return nil, errors.New("api: player is required")
	}
	s := &Server{
		cfg:     cfg,
		player:  deps.Player,
		library: deps.Library,
		health:  deps.Health,
		media:   vhshttp.NewMediaHandler(cfg.StrictRanges),
		logger:  log.WithComponent("api"),
		streams: map[chan struct{}]struct{}{},
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// SetStrictRanges switches the media route's range policy; used on config reload.
func (s *Server) SetStrictRanges(strict bool) {
	s.media.SetStrictRanges(strict)
	s.logger.Info().Str(log.FieldEvent, "config.strict_ranges").Bool("strict", strict).Msg("range policy updated")
}

// Shutdown ends open screen streams so http.Server.Shutdown does not wait
// on them. Later stream requests get 503.
func (s *Server) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for ch := range s.streams {
		close(ch)
	}
	s.streams = nil
	s.logger.Info().Str(log.FieldEvent, "api.shutdown").Msg("screen streams closed")
	return nil
}

// openStream registers a long-lived response. ok is false after Shutdown.
func (s *Server) openStream() (stop chan struct{}, release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, false
	}
	stop = make(chan struct{})
	s.streams[stop] = struct{}{}
	return stop, func() {
		s.mu.Lock()
		delete(s.streams, stop)
		s.mu.Unlock()
	}, true
}
