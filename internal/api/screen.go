// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/ManuGH/nostalgia/internal/log"
)

const (
	defaultStreamFPS = 10
	maxStreamFPS     = 30
	jpegQuality      = 80
)

func (s *Server) handleScreenPNG(w http.ResponseWriter, r *http.Request) {
	img, err := s.player.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// handleScreenMJPEG streams the screen as multipart JPEG until the client
// goes away or the server shuts down. ?fps= selects the rate.
func (s *Server) handleScreenMJPEG(w http.ResponseWriter, r *http.Request) {
	fps := defaultStreamFPS
	if raw := r.URL.Query().Get("fps"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxStreamFPS {
			writeProblem(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("fps must be between 1 and %d", maxStreamFPS))
			return
		}
		fps = v
	}

	stop, release, ok := s.openStream()
	if !ok {
		writeProblem(w, http.StatusServiceUnavailable, "unavailable", "server is shutting down")
		return
	}
	defer release()

	logger := log.WithComponentFromContext(r.Context(), "api")
	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var frames int
	defer func() {
		logger.Debug().Str(log.FieldEvent, "screen.stream_closed").Int("frames", frames).Msg("screen stream ended")
	}()

	var buf bytes.Buffer
	for {
		img, err := s.player.Snapshot(r.Context())
		if err != nil {
			return
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "screen.encode_failed").Msg("cannot encode frame")
			return
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(buf.Len())},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(buf.Bytes()); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
		frames++

		select {
		case <-r.Context().Done():
			return
		case <-stop:
			_ = mw.Close()
			return
		case <-ticker.C:
		}
	}
}
