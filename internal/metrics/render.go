// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame outcomes.
const (
	FrameRendered = "rendered"
	FrameSkipped  = "skipped"
	FrameDisabled = "disabled"
)

// Shader setup results.
const (
	ShaderSetupOK            = "ok"
	ShaderSetupCompileFailed = "compile_failed"
	ShaderSetupLinkFailed    = "link_failed"
)

var (
	renderFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nostalgia_render_frames_total",
		Help: "Render loop ticks by outcome",
	}, []string{"outcome"})

	renderFrameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nostalgia_render_frame_seconds",
		Help:    "Time spent capturing and compositing one rendered frame",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.0166, 0.025, 0.033, 0.05, 0.1, 0.25},
	})

	shaderSetupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nostalgia_shader_setup_total",
		Help: "Shader pipeline setup attempts by result",
	}, []string{"result"})

	decoderRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nostalgia_decoder_restarts_total",
		Help: "Frame decoder process (re)starts after seek, resume or play",
	})
)

// ObserveFrame records one render tick. Duration is only observed for rendered frames.
func ObserveFrame(outcome string, d time.Duration) {
	renderFramesTotal.WithLabelValues(outcome).Inc()
	if outcome == FrameRendered {
		renderFrameSeconds.Observe(d.Seconds())
	}
}

// IncShaderSetup records a shader setup attempt.
func IncShaderSetup(result string) {
	shaderSetupTotal.WithLabelValues(result).Inc()
}

// IncDecoderRestart records a decoder process start.
func IncDecoderRestart() {
	decoderRestartsTotal.Inc()
}
