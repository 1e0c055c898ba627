// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Save writes the configuration to disk atomically (temp file, fsync, rename).
func (m *Manager) Save(cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(m.configPath, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := Encode(pending, cfg); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}

// Encode writes cfg as YAML in the file schema.
func Encode(w io.Writer, cfg AppConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToFileConfig(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	return nil
}

// ToFileConfig maps the runtime configuration back to the YAML schema.
func ToFileConfig(cfg AppConfig) FileConfig {
	return FileConfig{
		DataDir:  cfg.DataDir,
		LogLevel: cfg.LogLevel,
		API:      APIFileConfig{ListenAddr: cfg.API.ListenAddr},
		Metrics:  MetricsFileConfig{ListenAddr: cfg.Metrics.ListenAddr},
		Protocol: ProtocolFileConfig{StrictRanges: ptr(cfg.Protocol.StrictRanges)},
		Render: RenderFileConfig{
			Width:        ptr(cfg.Render.Width),
			Height:       ptr(cfg.Render.Height),
			FPS:          ptr(cfg.Render.FPS),
			SubtitleMode: cfg.Render.SubtitleMode,
			ScanRoll:     ptr(cfg.Render.ScanRoll),
		},
		Library: LibraryFileConfig{Root: cfg.Library.Root},
		FFmpeg: FFmpegFileConfig{
			Bin:        cfg.FFmpeg.Bin,
			FFprobeBin: cfg.FFmpeg.FFprobeBin,
			FFplayBin:  cfg.FFmpeg.FFplayBin,
		},
		Audio: AudioFileConfig{
			Enabled: ptr(cfg.Audio.Enabled),
			Volume:  ptr(cfg.Audio.Volume),
		},
		Telemetry: TelemetryFileConfig{
			Enabled:      ptr(cfg.Telemetry.Enabled),
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: ptr(cfg.Telemetry.SamplingRate),
		},
		RateLimit: RateLimitFileConfig{
			Enabled: ptr(cfg.RateLimit.Enabled),
			RPS:     ptr(cfg.RateLimit.RPS),
			Burst:   ptr(cfg.RateLimit.Burst),
		},
	}
}

func ptr[T any](v T) *T { return &v }
