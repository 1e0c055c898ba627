// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts child processes in their own process group and
// tears the whole group down, so decoder helpers never outlive playback.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
)

// ErrKillFailed is returned when a process survives SIGKILL past the deadline.
var ErrKillFailed = errors.New("kill operation failed")

// Terminate stops the group of cmd: SIGTERM, then SIGKILL once grace has
// passed. waitCh must deliver the result of cmd.Wait; Terminate always
// drains it and returns that result. Nil commands are a no-op.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")

	metrics.IncProcessSignal("SIGTERM", signalResult(Kill(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		metrics.IncProcessExit(exitResult(err, false))
		return err
	case <-time.After(grace):
	}

	logger.Warn().
		Str(log.FieldEvent, "process.force_kill").
		Int("pid", cmd.Process.Pid).
		Dur("grace", grace).
		Msg("grace period exceeded, killing process group")
	metrics.IncProcessSignal("SIGKILL", signalResult(Kill(cmd, syscall.SIGKILL)))

	select {
	case err := <-waitCh:
		metrics.IncProcessExit(exitResult(err, true))
		return err
	case <-time.After(5 * time.Second):
		return ErrKillFailed
	}
}

func signalResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}

func exitResult(err error, forced bool) string {
	prefix := ""
	if forced {
		prefix = "forced_"
	}
	if err == nil {
		return prefix + "exit0"
	}
	return prefix + "error"
}
