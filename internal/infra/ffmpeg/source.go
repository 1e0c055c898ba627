// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ffmpeg runs ffmpeg and ffprobe for the player: a realtime decoder
// that streams raw RGBA frames, and a probe for duration and geometry.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/procgroup"
)

var _ playback.FrameSource = (*FrameSource)(nil)

// ErrInvalidOptions is returned for a decode request without geometry or rate.
var ErrInvalidOptions = errors.New("invalid decode options")

const (
	defaultGrace = 2 * time.Second
	stderrLines  = 50
)

// FrameSource starts one ffmpeg process per decode.
type FrameSource struct {
	bin    string
	grace  time.Duration
	logger zerolog.Logger
}

// NewFrameSource creates a source using the given ffmpeg binary.
func NewFrameSource(bin string) *FrameSource {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FrameSource{
		bin:    bin,
		grace:  defaultGrace,
		logger: log.WithComponent("ffmpeg"),
	}
}

// Start launches a decoder. The stream stops when ctx is cancelled or Close is called.
func (s *FrameSource) Start(ctx context.Context, opts playback.StartOptions) (playback.FrameStream, error) {
	if opts.Size.X <= 0 || opts.Size.Y <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: size %v fps %v", ErrInvalidOptions, opts.Size, opts.FPS)
	}

	// #nosec G204 -- binary comes from config, arguments are built here
	cmd := exec.Command(s.bin, decodeArgs(opts)...)
	procgroup.Set(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.bin, err)
	}

	st := &stream{
		cmd:    cmd,
		opts:   opts,
		grace:  s.grace,
		ring:   NewRingBuffer(stderrLines),
		done:   make(chan struct{}),
		waitCh: make(chan error, 1),
		logger: s.logger.With().Int("pid", cmd.Process.Pid).Str(log.FieldURL, opts.URL).Logger(),
	}
	st.logger.Debug().
		Str(log.FieldEvent, "ffmpeg.start").
		Dur("offset", opts.Offset).
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y)).
		Msg("decoder started")

	go st.run(stdout, stderr)
	go func() {
		select {
		case <-ctx.Done():
			_ = st.Close()
		case <-st.done:
		}
	}()
	return st, nil
}

type stream struct {
	cmd    *exec.Cmd
	opts   playback.StartOptions
	grace  time.Duration
	ring   *RingBuffer
	logger zerolog.Logger

	latest  atomic.Pointer[playback.Frame]
	frames  atomic.Int64
	closing atomic.Bool

	done   chan struct{}
	waitCh chan error
	err    error

	closeOnce sync.Once
	closeErr  error
}

func (s *stream) run(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readStderr(stderr)
	}()
	go func() {
		defer wg.Done()
		s.readFrames(stdout)
	}()
	wg.Wait()

	err := s.cmd.Wait()
	if err != nil && !s.closing.Load() {
		s.logger.Error().
			Err(err).
			Str(log.FieldEvent, "ffmpeg.exit").
			Strs("stderr", s.ring.Lines()).
			Msg("decoder exited with error")
	}
	s.err = err
	close(s.done)
	s.waitCh <- err
}

func (s *stream) readFrames(r io.Reader) {
	w, h := s.opts.Size.X, s.opts.Size.Y
	frameDur := time.Duration(float64(time.Second) / s.opts.FPS)
	for n := 0; ; n++ {
		buf := make([]byte, w*h*4)
		if _, err := io.ReadFull(r, buf); err != nil {
			_, _ = io.Copy(io.Discard, r)
			return
		}
		s.latest.Store(&playback.Frame{
			Image: &image.RGBA{Pix: buf, Stride: w * 4, Rect: image.Rect(0, 0, w, h)},
			PTS:   s.opts.Offset + time.Duration(n)*frameDur,
		})
		s.frames.Add(1)
	}
}

func (s *stream) readStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.ring.Add(sc.Text())
	}
}

// Latest returns the most recently decoded frame.
func (s *stream) Latest() (playback.Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return playback.Frame{}, false
	}
	return *f, true
}

func (s *stream) Done() <-chan struct{} { return s.done }

// Err is the process exit error, valid once Done is closed.
func (s *stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Diagnostics returns the last stderr lines.
func (s *stream) Diagnostics() []string { return s.ring.Lines() }

// Close terminates the decoder process group and waits for it.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		err := procgroup.Terminate(s.cmd, s.waitCh, s.grace)
		if errors.Is(err, procgroup.ErrKillFailed) {
			s.closeErr = err
		}
		s.logger.Debug().
			Str(log.FieldEvent, "ffmpeg.stop").
			Int64("frames", s.frames.Load()).
			Msg("decoder stopped")
	})
	return s.closeErr
}
