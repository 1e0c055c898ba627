// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	vhshttp "github.com/ManuGH/nostalgia/internal/control/http"
	"github.com/ManuGH/nostalgia/internal/library"
	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/shell"
)

const maxBodyBytes = 1 << 20

var errInvalidRequest = errors.New("invalid request")

// problem is the JSON error body of the control API.
type problem struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, code int, errCode, detail string) {
	writeJSON(w, code, problem{Error: errCode, Detail: detail})
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode := classify(err)
	logger := log.WithComponentFromContext(r.Context(), "api")
	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str(log.FieldEvent, "api.request_failed").Str(log.FieldPath, r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str(log.FieldEvent, "api.request_rejected").Int(log.FieldStatus, code).Msg("request rejected")
	}
	writeProblem(w, code, errCode, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, vhshttp.ErrInvalidPath),
		errors.Is(err, vhshttp.ErrInvalidScheme),
		errors.Is(err, shell.ErrInvalidSize):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, library.ErrChannelNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shell.ErrNotPlaying), errors.Is(err, playback.ErrNotLoaded):
		return http.StatusConflict, "not_playing"
	case errors.Is(err, library.ErrScanRunning):
		return http.StatusConflict, "scan_running"
	case errors.Is(err, library.ErrNoRoot):
		return http.StatusServiceUnavailable, "library_unconfigured"
	case errors.Is(err, shell.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errInvalidRequest)
	}
	return nil
}
