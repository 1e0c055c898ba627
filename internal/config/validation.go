// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/nostalgia/internal/validate"
)

// Validate checks the effective configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("dataDir", cfg.DataDir)
	v.OneOf("logLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})
	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	v.Range("render.width", cfg.Render.Width, 16, 7680)
	v.Range("render.height", cfg.Render.Height, 16, 4320)
	v.Range("render.fps", cfg.Render.FPS, 1, 120)
	v.OneOf("render.subtitleMode", cfg.Render.SubtitleMode, []string{SubtitleModeInline, SubtitleModeTexture})
	v.FloatRange("render.scanRoll", cfg.Render.ScanRoll, -100, 100)

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.NotEmpty("ffmpeg.ffprobeBin", cfg.FFmpeg.FFprobeBin)
	if cfg.Audio.Enabled {
		v.NotEmpty("ffmpeg.ffplayBin", cfg.FFmpeg.FFplayBin)
		v.FloatRange("audio.volume", cfg.Audio.Volume, 0, 1)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if cfg.RateLimit.Enabled {
		v.Positive("rateLimit.rps", cfg.RateLimit.RPS)
		v.Positive("rateLimit.burst", cfg.RateLimit.Burst)
	}

	return v.Err()
}
