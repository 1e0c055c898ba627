// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ManuGH/nostalgia/internal/config"
	"github.com/ManuGH/nostalgia/internal/log"
)

// PerformStartupChecks validates the environment before the servers start.
// Only an unusable data directory is fatal; missing tools are logged.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	probe := filepath.Join(cfg.DataDir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("data directory is not writable: %s: %w", cfg.DataDir, err)
	}
	_ = os.Remove(probe)

	for _, bin := range []string{cfg.FFmpeg.Bin, cfg.FFmpeg.FFprobeBin} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "startup.tool_missing").
				Str("bin", bin).
				Msg("external tool not found, video playback unavailable")
		}
	}

	if _, err := os.Stat(cfg.Library.Root); err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "startup.library_missing").
			Str(log.FieldPath, cfg.Library.Root).
			Msg("library root not accessible, channel menu will be empty")
	}

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("startup checks passed")
	return nil
}
