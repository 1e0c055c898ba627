// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads the daemon configuration.
package config

// FileConfig is the on-disk YAML shape. Pointer fields distinguish "unset"
// from an explicit zero value so that defaults survive partial files.
type FileConfig struct {
	DataDir   string              `yaml:"dataDir,omitempty"`
	LogLevel  string              `yaml:"logLevel,omitempty"`
	API       APIFileConfig       `yaml:"api,omitempty"`
	Metrics   MetricsFileConfig   `yaml:"metrics,omitempty"`
	Protocol  ProtocolFileConfig  `yaml:"protocol,omitempty"`
	Render    RenderFileConfig    `yaml:"render,omitempty"`
	Library   LibraryFileConfig   `yaml:"library,omitempty"`
	FFmpeg    FFmpegFileConfig    `yaml:"ffmpeg,omitempty"`
	Audio     AudioFileConfig     `yaml:"audio,omitempty"`
	Telemetry TelemetryFileConfig `yaml:"telemetry,omitempty"`
	RateLimit RateLimitFileConfig `yaml:"rateLimit,omitempty"`
}

type APIFileConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type MetricsFileConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type ProtocolFileConfig struct {
	StrictRanges *bool `yaml:"strictRanges,omitempty"`
}

type RenderFileConfig struct {
	Width        *int     `yaml:"width,omitempty"`
	Height       *int     `yaml:"height,omitempty"`
	FPS          *int     `yaml:"fps,omitempty"`
	SubtitleMode string   `yaml:"subtitleMode,omitempty"`
	ScanRoll     *float64 `yaml:"scanRoll,omitempty"`
}

type LibraryFileConfig struct {
	Root string `yaml:"root,omitempty"`
}

type FFmpegFileConfig struct {
	Bin        string `yaml:"bin,omitempty"`
	FFprobeBin string `yaml:"ffprobeBin,omitempty"`
	FFplayBin  string `yaml:"ffplayBin,omitempty"`
}

type AudioFileConfig struct {
	Enabled *bool    `yaml:"enabled,omitempty"`
	Volume  *float64 `yaml:"volume,omitempty"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

type RateLimitFileConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	RPS     *int  `yaml:"rps,omitempty"`
	Burst   *int  `yaml:"burst,omitempty"`
}
