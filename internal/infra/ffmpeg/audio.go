// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/procgroup"
)

var _ playback.AudioSink = (*AudioSink)(nil)

// AudioSink plays sound through ffplay with its window disabled. One process
// runs per start; volume and position are fixed for its lifetime.
type AudioSink struct {
	bin    string
	grace  time.Duration
	logger zerolog.Logger
}

// NewAudioSink creates a sink using the given ffplay binary.
func NewAudioSink(bin string) *AudioSink {
	if bin == "" {
		bin = "ffplay"
	}
	return &AudioSink{
		bin:    bin,
		grace:  defaultGrace,
		logger: log.WithComponent("audio"),
	}
}

// Start launches ffplay. It stops when ctx is cancelled or Close is called.
func (s *AudioSink) Start(ctx context.Context, opts playback.AudioOptions) (playback.AudioStream, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidOptions)
	}

	// #nosec G204 -- binary comes from config, arguments are built here
	cmd := exec.Command(s.bin, audioArgs(opts)...)
	procgroup.Set(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.bin, err)
	}

	a := &audioStream{
		cmd:    cmd,
		grace:  s.grace,
		ring:   NewRingBuffer(stderrLines),
		done:   make(chan struct{}),
		waitCh: make(chan error, 1),
		logger: s.logger.With().Int("pid", cmd.Process.Pid).Str(log.FieldURL, opts.URL).Logger(),
	}
	a.logger.Debug().
		Str(log.FieldEvent, "audio.start").
		Dur("offset", opts.Offset).
		Float64("volume", opts.Volume).
		Msg("audio output started")

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			a.ring.Add(sc.Text())
		}
		err := cmd.Wait()
		if err != nil && !a.closing.Load() {
			a.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "audio.exit").
				Strs("stderr", a.ring.Lines()).
				Msg("audio output exited with error")
		}
		close(a.done)
		a.waitCh <- err
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = a.Close()
		case <-a.done:
		}
	}()
	return a, nil
}

type audioStream struct {
	cmd     *exec.Cmd
	grace   time.Duration
	ring    *RingBuffer
	logger  zerolog.Logger
	closing atomic.Bool

	done   chan struct{}
	waitCh chan error

	closeOnce sync.Once
	closeErr  error
}

func (a *audioStream) Done() <-chan struct{} { return a.done }

// Close terminates the ffplay process group and waits for it.
func (a *audioStream) Close() error {
	a.closeOnce.Do(func() {
		a.closing.Store(true)
		err := procgroup.Terminate(a.cmd, a.waitCh, a.grace)
		if errors.Is(err, procgroup.ErrKillFailed) {
			a.closeErr = err
		}
		a.logger.Debug().Str(log.FieldEvent, "audio.stop").Msg("audio output stopped")
	})
	return a.closeErr
}
