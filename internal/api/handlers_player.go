// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	vhshttp "github.com/ManuGH/nostalgia/internal/control/http"
	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/shell"
)

type shaderRequest struct {
	Enabled *bool `json:"enabled"`
}

type subtitleRequest struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// viewportRequest changes the render size, the window mode, or both.
type viewportRequest struct {
	Width      int   `json:"width"`
	Height     int   `json:"height"`
	Fullscreen *bool `json:"fullscreen"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

type keyRequest struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
}

type keyResponse struct {
	Handled bool `json:"handled"`
}

type refreshResponse struct {
	Scheduled bool `json:"scheduled"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *Server) handleShader(w http.ResponseWriter, r *http.Request) {
	var req shaderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, r, fmt.Errorf("%w: enabled is required", errInvalidRequest))
		return
	}
	if err := s.player.SetShaderEnabled(r.Context(), *req.Enabled); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *Server) handleTextureRefresh(w http.ResponseWriter, r *http.Request) {
	scheduled, err := s.player.RefreshTexture(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Scheduled: scheduled})
}

func (s *Server) handleSetSubtitle(w http.ResponseWriter, r *http.Request) {
	var req subtitleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.End < req.Start {
		writeError(w, r, fmt.Errorf("%w: end before start", errInvalidRequest))
		return
	}
	if err := s.player.SetSubtitle(r.Context(), req.Text, req.Start, req.End); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSubtitle(w http.ResponseWriter, r *http.Request) {
	if err := s.player.ClearSubtitle(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resize := req.Width != 0 || req.Height != 0
	if !resize && req.Fullscreen == nil {
		writeError(w, r, fmt.Errorf("%w: width and height or fullscreen required", errInvalidRequest))
		return
	}
	if resize {
		if err := s.player.Resize(r.Context(), req.Width, req.Height); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Fullscreen != nil {
		if err := s.player.SetFullscreen(r.Context(), *req.Fullscreen); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Volume == nil {
		writeError(w, r, fmt.Errorf("%w: volume is required", errInvalidRequest))
		return
	}
	if _, err := s.player.SetVolume(r.Context(), *req.Volume); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Key == "" {
		writeError(w, r, fmt.Errorf("%w: key is required", errInvalidRequest))
		return
	}
	handled, err := s.player.Key(r.Context(), req.Key, req.Shift)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keyResponse{Handled: handled})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req shell.PlayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !filepath.IsAbs(req.Path) {
		writeError(w, r, fmt.Errorf("%w: path must be absolute", vhshttp.ErrInvalidPath))
		return
	}
	if req.Subtitles != "" && !filepath.IsAbs(req.Subtitles) {
		writeError(w, r, fmt.Errorf("%w: subtitles path must be absolute", vhshttp.ErrInvalidPath))
		return
	}
	if req.Audio != "" && !filepath.IsAbs(req.Audio) {
		writeError(w, r, fmt.Errorf("%w: audio path must be absolute", vhshttp.ErrInvalidPath))
		return
	}
	if _, err := os.Stat(req.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeProblem(w, http.StatusNotFound, "not_found", "media file does not exist")
			return
		}
		writeError(w, r, err)
		return
	}

	if err := s.player.Play(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.play").
		Str(log.FieldPath, req.Path).
		Msg("playback requested")
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.playerCommand(w, r, s.player.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.playerCommand(w, r, s.player.Resume)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.playerCommand(w, r, s.player.Stop)
}

func (s *Server) playerCommand(w http.ResponseWriter, r *http.Request, cmd func(ctx context.Context) error) {
	if err := cmd(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.player.State())
}
