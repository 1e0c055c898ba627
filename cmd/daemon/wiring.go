// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/nostalgia/internal/api"
	"github.com/ManuGH/nostalgia/internal/config"
	"github.com/ManuGH/nostalgia/internal/daemon"
	"github.com/ManuGH/nostalgia/internal/health"
	"github.com/ManuGH/nostalgia/internal/infra/ffmpeg"
	"github.com/ManuGH/nostalgia/internal/library"
	xglog "github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/render"
	"github.com/ManuGH/nostalgia/internal/shell"
	"github.com/ManuGH/nostalgia/internal/telemetry"
)

const libraryDBName = "library.db"

type components struct {
	manager     daemon.Manager
	apiServer   *api.Server
	shell       *shell.Shell
	library     *library.Service
	applyConfig daemon.ApplyFunc
}

// buildRuntime assembles the player, its HTTP surface and the daemon manager.
// Everything opened here is released through manager shutdown hooks.
func buildRuntime(ctx context.Context, cfg config.AppConfig, lock *daemon.InstanceLock) (*components, error) {
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "nostalgia",
		ServiceVersion: version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, err := library.NewStore(filepath.Join(cfg.DataDir, libraryDBName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("open library store: %w", err)
	}
	lib := library.NewService(cfg.Library.Root, store)

	if res, err := lib.Scan(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "library.initial_scan_failed").
			Msg("initial library scan failed, channel menu may be empty")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "library.initial_scan").
			Int("channels", res.Channels).
			Int("items", res.Items).
			Int("skipped", res.Skipped).
			Msg("initial library scan completed")
	}

	sh, err := shell.New(ctx, shell.Options{
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		FPS:          cfg.Render.FPS,
		SubtitleMode: render.SubtitleMode(cfg.Render.SubtitleMode),
		ScanRoll:     cfg.Render.ScanRoll,
		MediaBaseURL: mediaBaseURL(cfg.API.ListenAddr),
		Version:      version,
		Volume:       cfg.Audio.Volume,
	}, shell.Deps{
		Source:  ffmpeg.NewFrameSource(cfg.FFmpeg.Bin),
		Prober:  ffmpeg.NewProber(cfg.FFmpeg.FFprobeBin),
		Audio:   audioSink(cfg),
		Prefs:   store,
		Catalog: lib,
	})
	if err != nil {
		_ = store.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("player shell: %w", err)
	}

	hm := health.NewManager(version)
	registerHealthChecks(hm, cfg, store, sh)

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = "nostalgia"
	}
	srv, err := api.New(api.Config{
		StrictRanges: cfg.Protocol.StrictRanges,
		RateLimit: api.RateLimitConfig{
			Enabled: cfg.RateLimit.Enabled,
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
		},
		TracingService: tracingService,
		EnableMetrics:  cfg.Metrics.ListenAddr != "",
	}, api.Deps{Player: sh, Library: lib, Health: hm})
	if err != nil {
		sh.Close()
		_ = store.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("api server: %w", err)
	}

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.API.ListenAddr), daemon.Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		OnAPIShutdown:  func() { _ = srv.Shutdown(context.Background()) },
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.Metrics.ListenAddr,
		Workers:        []daemon.Worker{{Name: "render", Run: sh.Run}},
	})
	if err != nil {
		sh.Close()
		_ = store.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("daemon manager: %w", err)
	}

	// Hooks run LIFO after the render worker has stopped.
	mgr.RegisterShutdownHook("instance_lock", func(context.Context) error { return lock.Release() })
	mgr.RegisterShutdownHook("library_store", func(context.Context) error { return store.Close() })
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)

	return &components{
		manager:     mgr,
		apiServer:   srv,
		shell:       sh,
		library:     lib,
		applyConfig: newConfigApplier(srv, cfg),
	}, nil
}

// audioSink returns nil when sound is disabled so the player stays silent.
func audioSink(cfg config.AppConfig) playback.AudioSink {
	if !cfg.Audio.Enabled {
		return nil
	}
	return ffmpeg.NewAudioSink(cfg.FFmpeg.FFplayBin)
}

// registerHealthChecks wires the readiness probes. Only the library store is
// critical; missing tools or a broken shader degrade playback.
func registerHealthChecks(hm *health.Manager, cfg config.AppConfig, store *library.Store, sh *shell.Shell) {
	hm.RegisterChecker(health.NewFuncChecker("library_store", func(ctx context.Context) health.CheckResult {
		if err := store.Verify(ctx); err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	}))
	hm.RegisterChecker(health.NewFuncChecker("shader_pipeline", func(context.Context) health.CheckResult {
		if err := sh.ShaderErr(); err != nil {
			return health.CheckResult{Status: health.StatusDegraded, Error: err.Error(), Message: "rendering without CRT effect"}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	}))
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))
	hm.RegisterChecker(health.NewBinaryChecker("ffprobe", cfg.FFmpeg.FFprobeBin))
	if cfg.Audio.Enabled {
		hm.RegisterChecker(health.NewBinaryChecker("ffplay", cfg.FFmpeg.FFplayBin))
	}
	hm.RegisterChecker(health.NewDirChecker("library_root", cfg.Library.Root))
}

// newConfigApplier returns the hot-reload hook. Only settings that can change
// without restarting listeners or the render loop are applied.
func newConfigApplier(srv *api.Server, initial config.AppConfig) daemon.ApplyFunc {
	logger := xglog.WithComponent("daemon")
	current := initial
	return func(next config.AppConfig) {
		if next.Protocol.StrictRanges != current.Protocol.StrictRanges {
			srv.SetStrictRanges(next.Protocol.StrictRanges)
		}
		if next.LogLevel != current.LogLevel {
			xglog.Configure(xglog.Config{
				Level:   next.LogLevel,
				Service: "nostalgia",
				Version: next.Version,
			})
		}
		if requiresRestart(current, next) {
			logger.Warn().
				Str(xglog.FieldEvent, "config.restart_required").
				Msg("listener, render or library settings changed; restart to apply")
		}
		current = next
	}
}

func requiresRestart(a, b config.AppConfig) bool {
	return a.API != b.API ||
		a.Metrics != b.Metrics ||
		a.Render != b.Render ||
		a.Library != b.Library ||
		a.FFmpeg != b.FFmpeg ||
		a.Audio != b.Audio ||
		a.Telemetry != b.Telemetry ||
		a.RateLimit != b.RateLimit ||
		a.DataDir != b.DataDir
}

// mediaBaseURL is the loopback URL the decoder uses to reach the vhs route.
// Wildcard listen hosts are replaced with 127.0.0.1.
func mediaBaseURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
