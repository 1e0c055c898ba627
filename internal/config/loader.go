// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied before the file and the environment are merged. The
// render FPS is a ceiling, not a guarantee: the software pipeline shades
// every pixel on the CPU and a late frame drops ticks instead of queueing
// them, so the default size stays small.
const (
	DefaultDataDir           = "data"
	DefaultLogLevel          = "info"
	DefaultAPIListenAddr     = "127.0.0.1:8088"
	DefaultMetricsListenAddr = "127.0.0.1:9098"
	DefaultRenderWidth       = 640
	DefaultRenderHeight      = 480
	DefaultRenderFPS         = 30
	DefaultFFmpegBin         = "ffmpeg"
	DefaultTelemetryExporter = "grpc"
	DefaultTelemetryEndpoint = "localhost:4317"
	DefaultRateLimitRPS      = 20
	DefaultRateLimitBurst    = 40
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every environment key the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath means
// environment-only configuration.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// ConfigPath returns the file the loader reads, if any.
func (l *Loader) ConfigPath() string { return l.configPath }

func (l *Loader) envKey(name string) string {
	key := EnvPrefix + name
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) envString(name, def string) string {
	return ParseString(l.envKey(name), def)
}

func (l *Loader) envBool(name string, def bool) bool {
	return ParseBool(l.envKey(name), def)
}

func (l *Loader) envInt(name string, def int) int {
	return ParseInt(l.envKey(name), def)
}

func (l *Loader) envFloat(name string, def float64) float64 {
	return ParseFloat(l.envKey(name), def)
}

// Load resolves the effective configuration: defaults, then the strict YAML
// file, then environment overrides, then derived values, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Library.Root == "" {
		cfg.Library.Root = filepath.Join(cfg.DataDir, "channels")
	}
	cfg.FFmpeg.FFprobeBin = ResolveFFprobeBin(cfg.FFmpeg.FFprobeBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFplayBin = ResolveFFplayBin(cfg.FFmpeg.FFplayBin, cfg.FFmpeg.Bin)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
		API:      APIConfig{ListenAddr: DefaultAPIListenAddr},
		Metrics:  MetricsConfig{ListenAddr: DefaultMetricsListenAddr},
		Render: RenderConfig{
			Width:        DefaultRenderWidth,
			Height:       DefaultRenderHeight,
			FPS:          DefaultRenderFPS,
			SubtitleMode: SubtitleModeTexture,
		},
		FFmpeg: FFmpegConfig{Bin: DefaultFFmpegBin},
		Audio:  AudioConfig{Enabled: true, Volume: 1.0},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultTelemetryExporter,
			Endpoint:     DefaultTelemetryEndpoint,
			SamplingRate: 1.0,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     DefaultRateLimitRPS,
			Burst:   DefaultRateLimitBurst,
		},
	}
}

// loadFile parses the YAML file in strict mode: unknown fields and multiple
// documents are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) {
	setString(&dst.DataDir, src.DataDir)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.API.ListenAddr, src.API.ListenAddr)
	setString(&dst.Metrics.ListenAddr, src.Metrics.ListenAddr)
	setPtr(&dst.Protocol.StrictRanges, src.Protocol.StrictRanges)

	setPtr(&dst.Render.Width, src.Render.Width)
	setPtr(&dst.Render.Height, src.Render.Height)
	setPtr(&dst.Render.FPS, src.Render.FPS)
	setString(&dst.Render.SubtitleMode, src.Render.SubtitleMode)
	setPtr(&dst.Render.ScanRoll, src.Render.ScanRoll)

	setString(&dst.Library.Root, src.Library.Root)
	setString(&dst.FFmpeg.Bin, src.FFmpeg.Bin)
	setString(&dst.FFmpeg.FFprobeBin, src.FFmpeg.FFprobeBin)
	setString(&dst.FFmpeg.FFplayBin, src.FFmpeg.FFplayBin)
	setPtr(&dst.Audio.Enabled, src.Audio.Enabled)
	setPtr(&dst.Audio.Volume, src.Audio.Volume)

	setPtr(&dst.Telemetry.Enabled, src.Telemetry.Enabled)
	setString(&dst.Telemetry.Exporter, src.Telemetry.Exporter)
	setString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	setPtr(&dst.Telemetry.SamplingRate, src.Telemetry.SamplingRate)

	setPtr(&dst.RateLimit.Enabled, src.RateLimit.Enabled)
	setPtr(&dst.RateLimit.RPS, src.RateLimit.RPS)
	setPtr(&dst.RateLimit.Burst, src.RateLimit.Burst)
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.API.ListenAddr = l.envString("API_LISTEN", cfg.API.ListenAddr)
	cfg.Metrics.ListenAddr = l.envString("METRICS_LISTEN", cfg.Metrics.ListenAddr)
	cfg.Protocol.StrictRanges = l.envBool("STRICT_RANGES", cfg.Protocol.StrictRanges)

	cfg.Render.Width = l.envInt("RENDER_WIDTH", cfg.Render.Width)
	cfg.Render.Height = l.envInt("RENDER_HEIGHT", cfg.Render.Height)
	cfg.Render.FPS = l.envInt("RENDER_FPS", cfg.Render.FPS)
	cfg.Render.SubtitleMode = l.envString("SUBTITLE_MODE", cfg.Render.SubtitleMode)
	cfg.Render.ScanRoll = l.envFloat("SCAN_ROLL", cfg.Render.ScanRoll)

	cfg.Library.Root = l.envString("LIBRARY_ROOT", cfg.Library.Root)
	cfg.FFmpeg.Bin = l.envString("FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = l.envString("FFPROBE_BIN", cfg.FFmpeg.FFprobeBin)
	cfg.FFmpeg.FFplayBin = l.envString("FFPLAY_BIN", cfg.FFmpeg.FFplayBin)
	cfg.Audio.Enabled = l.envBool("AUDIO_ENABLED", cfg.Audio.Enabled)
	cfg.Audio.Volume = l.envFloat("AUDIO_VOLUME", cfg.Audio.Volume)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.RateLimit.Enabled = l.envBool("RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RPS = l.envInt("RATELIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = l.envInt("RATELIMIT_BURST", cfg.RateLimit.Burst)
}

// ResolveFFprobeBin picks the ffprobe binary: explicit value, else a sibling
// of an explicit ffmpeg path, else "ffprobe" from PATH.
func ResolveFFprobeBin(ffprobe, ffmpeg string) string {
	return resolveSibling("ffprobe", ffprobe, ffmpeg)
}

// ResolveFFplayBin picks the ffplay binary the same way.
func ResolveFFplayBin(ffplay, ffmpeg string) string {
	return resolveSibling("ffplay", ffplay, ffmpeg)
}

func resolveSibling(name, explicit, ffmpeg string) string {
	if explicit != "" {
		return explicit
	}
	if dir := filepath.Dir(ffmpeg); ffmpeg != "" && dir != "." {
		return filepath.Join(dir, name)
	}
	return name
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
