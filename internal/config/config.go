// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// Subtitle render targets.
const (
	SubtitleModeInline  = "inline"
	SubtitleModeTexture = "texture"
)

// AppConfig is the effective runtime configuration after defaults, file and
// environment have been merged.
type AppConfig struct {
	Version  string
	DataDir  string
	LogLevel string

	API       APIConfig
	Metrics   MetricsConfig
	Protocol  ProtocolConfig
	Render    RenderConfig
	Library   LibraryConfig
	FFmpeg    FFmpegConfig
	Audio     AudioConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

type APIConfig struct {
	ListenAddr string
}

// MetricsConfig controls the Prometheus listener. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string
}

// ProtocolConfig tunes the vhs media protocol.
type ProtocolConfig struct {
	// StrictRanges answers malformed or unsatisfiable Range headers with 416
	// instead of serving the whole file.
	StrictRanges bool
}

type RenderConfig struct {
	Width        int
	Height       int
	FPS          int
	SubtitleMode string
	// ScanRoll is the scanline phase velocity in radians per second; 0 keeps scanlines still.
	ScanRoll float64
}

type LibraryConfig struct {
	Root string
}

type FFmpegConfig struct {
	Bin        string
	FFprobeBin string
	FFplayBin  string
}

// AudioConfig controls the sound output. Volume is the start level, 0..1.
type AudioConfig struct {
	Enabled bool
	Volume  float64
}

type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

type RateLimitConfig struct {
	Enabled bool
	RPS     int
	Burst   int
}
