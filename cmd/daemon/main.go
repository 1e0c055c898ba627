// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/nostalgia/internal/config"
	"github.com/ManuGH/nostalgia/internal/daemon"
	"github.com/ManuGH/nostalgia/internal/health"
	xglog "github.com/ManuGH/nostalgia/internal/log"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "channels":
			os.Exit(runChannelsCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "nostalgia",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	explicitConfigPath := strings.TrimSpace(*configPath)
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "nostalgia",
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		source := "file"
		if explicitConfigPath == "" {
			source = "file(auto)"
		}
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", source).
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify the data directory")
	}

	lock, err := daemon.AcquireInstanceLock(cfg.DataDir)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.instance_locked").
			Str("data_dir", cfg.DataDir).
			Msg("another instance is using this data directory")
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.API.ListenAddr).
		Msg("starting nostalgia")
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	logger.Info().Msgf("→ Library: %s", cfg.Library.Root)
	logger.Info().Msgf("→ Render: %dx%d@%d (subtitles: %s)", cfg.Render.Width, cfg.Render.Height, cfg.Render.FPS, cfg.Render.SubtitleMode)
	if cfg.Metrics.ListenAddr != "" {
		logger.Info().Msgf("→ Metrics: %s", cfg.Metrics.ListenAddr)
	}

	rt, err := buildRuntime(ctx, cfg, lock)
	if err != nil {
		_ = lock.Release()
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.wiring_failed").
			Msg("failed to assemble daemon")
	}

	// Config writes go to the data dir file when none was given so a later
	// reload has something to watch.
	holderPath := effectiveConfigPath
	if holderPath == "" {
		holderPath = filepath.Join(cfg.DataDir, "config.yaml")
		if _, err := os.Stat(holderPath); err != nil {
			holderPath = ""
		}
	}
	cfgHolder := config.NewConfigHolder(cfg, config.NewLoader(holderPath, version))

	app := daemon.NewApp(logger, rt.manager, cfgHolder, rt.applyConfig)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}

// resolveDefaultConfigPath returns <data dir>/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(config.ParseString(config.EnvPrefix+"DATA_DIR", config.DefaultDataDir))
	if dataDir == "" {
		dataDir = config.DefaultDataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}
