// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nostalgia/internal/config"
)

func static(name string, s Status) Checker {
	return NewFuncChecker(name, func(context.Context) CheckResult { return CheckResult{Status: s} })
}

func TestEvaluate_Aggregation(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		want      Status
		wantReady bool
	}{
		{"no checkers", nil, StatusHealthy, true},
		{"all healthy", []Checker{static("a", StatusHealthy)}, StatusHealthy, true},
		{"degraded stays ready", []Checker{static("a", StatusHealthy), static("shader", StatusDegraded)}, StatusDegraded, true},
		{"unhealthy wins", []Checker{static("a", StatusUnhealthy), static("b", StatusDegraded)}, StatusUnhealthy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Evaluate(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(static("store", StatusUnhealthy))

	w := httptest.NewRecorder()
	m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Checks, "non-verbose liveness skips checks")

	w = httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Checks["store"].Status)
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, NewDirChecker("lib", dir).Check(context.Background()).Status)
	assert.Equal(t, StatusDegraded, NewDirChecker("lib", filepath.Join(dir, "nope")).Check(context.Background()).Status)

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Equal(t, StatusUnhealthy, NewDirChecker("lib", file).Check(context.Background()).Status)
}

func TestBinaryChecker_Missing(t *testing.T) {
	res := NewBinaryChecker("ffmpeg", "definitely-not-a-real-binary-4711").Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Library.Root = filepath.Join(cfg.DataDir, "channels")
	cfg.FFmpeg.FFprobeBin = "ffprobe"

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	assert.DirExists(t, cfg.DataDir)
}
