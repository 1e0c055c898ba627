// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package shell is the player host: it owns the render goroutine, the video
// element, the CRT pipeline and the menu, and routes input through an event
// dispatch table. Other goroutines talk to it only through Shell.Do.
package shell

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nostalgia/internal/library"
	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/render"
	"github.com/ManuGH/nostalgia/internal/subtitle"
)

var (
	// ErrClosed is returned by Do once the render loop has stopped.
	ErrClosed = errors.New("shell closed")
	// ErrInvalidSize is returned for non-positive viewport sizes.
	ErrInvalidSize = errors.New("invalid viewport size")
)

const shaderRefreshDelay = 25 * time.Millisecond

// Options sizes and tunes the pipeline.
type Options struct {
	Width        int
	Height       int
	FPS          int
	SubtitleMode render.SubtitleMode
	ScanRoll     float64
	// MediaBaseURL is the loopback address of the HTTP server, used to hand
	// vhs paths to the decoder.
	MediaBaseURL string
	Version      string
	// Volume is the start level, 0..1, applied when Deps.Audio is set.
	Volume float64
}

// Preferences persists user choices.
type Preferences interface {
	ShadersEnabled(ctx context.Context) (bool, error)
	SetShadersEnabled(ctx context.Context, enabled bool) error
}

// Catalog supplies the channel menu.
type Catalog interface {
	Menu(ctx context.Context) ([]library.MenuScreen, error)
}

// Deps are the collaborators of a shell. Device defaults to a software
// device; Prefs and Catalog are optional.
type Deps struct {
	Device  render.Device
	Source  playback.FrameSource
	Prober  playback.Prober
	Audio   playback.AudioSink
	Prefs   Preferences
	Catalog Catalog
	Clock   func() time.Time
}

// State is a read-only snapshot published after every frame.
type State struct {
	ShaderEnabled bool    `json:"shader_enabled"`
	ShaderReady   bool    `json:"shader_ready"`
	ShaderError   string  `json:"shader_error,omitempty"`
	Playing       bool    `json:"playing"`
	Paused        bool    `json:"paused"`
	Ended         bool    `json:"ended"`
	Path          string  `json:"path,omitempty"`
	Title         string  `json:"title,omitempty"`
	CurrentTime   float64 `json:"current_time"`
	Duration      float64 `json:"duration"`
	Volume        float64 `json:"volume"`
	Fullscreen    bool    `json:"fullscreen"`
	Subtitle      string  `json:"subtitle,omitempty"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Menu          string  `json:"menu"`
	Selected      int     `json:"selected"`
	Capture       string  `json:"capture_state"`
	Frames        uint64  `json:"frames"`
}

// Context holds all render-goroutine state. Its methods must only be called
// from that goroutine, i.e. from frame callbacks or functions passed to Do.
type Context struct {
	opts   Options
	logger zerolog.Logger
	clock  func() time.Time

	sched   *render.Scheduler
	comp    *render.Compositor
	rast    *render.Rasterizer
	capture *render.CaptureLoop
	video   *playback.Video
	events  *Dispatcher
	menu    *Menu
	prefs   Preferences
	catalog Catalog

	runCtx        context.Context
	shaderEnabled bool
	fullscreen    bool
	player        *player
	started       time.Time
	frame         render.FrameHandle
	running       bool
	last          render.CaptureResult
	frames        uint64

	state atomic.Pointer[State]
}

// Shell is the goroutine-safe handle on a Context.
type Shell struct {
	c     *Context
	sched *render.Scheduler
	done  chan struct{}
}

// New builds the shell. The shader preference is read from deps.Prefs;
// missing or unreadable means enabled.
func New(ctx context.Context, opts Options, deps Deps) (*Shell, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	dev := deps.Device
	if dev == nil {
		dev = render.NewSoftwareDevice(opts.Width, opts.Height)
	}
	rast, err := render.NewRasterizer()
	if err != nil {
		return nil, fmt.Errorf("subtitle rasterizer: %w", err)
	}

	comp := render.NewCompositor(dev, opts.ScanRoll)
	sched := render.NewScheduler(deps.Clock)
	c := &Context{
		opts:    opts,
		logger:  log.WithComponent("shell"),
		clock:   deps.Clock,
		sched:   sched,
		comp:    comp,
		rast:    rast,
		capture: render.NewCaptureLoop(comp, rast, opts.SubtitleMode, opts.Width, opts.Height),
		video:   playback.NewVideo(deps.Source, deps.Prober, deps.Clock),
		events:  NewDispatcher(),
		menu:    NewMenu(opts.Version),
		prefs:   deps.Prefs,
		catalog: deps.Catalog,
		runCtx:  context.Background(),

		shaderEnabled: true,
	}

	if c.prefs != nil {
		enabled, err := c.prefs.ShadersEnabled(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Str(log.FieldEvent, "prefs.load_failed").Msg("cannot read preferences, shader stays on")
		}
		c.shaderEnabled = enabled || err != nil
	}
	c.menu.SetShaderLabel(c.shaderEnabled)
	if deps.Audio != nil {
		c.video.SetAudioSink(deps.Audio)
		c.video.SetVolume(ctx, opts.Volume)
	}

	c.events.Add(SourceDocument, EventKeyDown, PhaseBubble, c.onMenuKey)
	c.events.Add(SourceWindow, EventResize, PhaseBubble, c.onResize)
	c.publish()

	return &Shell{c: c, sched: sched, done: make(chan struct{})}, nil
}

// Start sets up the compositor and schedules the first frame. A compositor
// that fails to set up leaves the pipeline off; playback and input still work.
func (s *Shell) Start(ctx context.Context) {
	c := s.c
	c.runCtx = ctx
	c.started = c.clock()
	if err := c.comp.Setup(); err != nil {
		c.logger.Error().Err(err).Str(log.FieldEvent, "render.pipeline_disabled").Msg("shader pipeline not started")
	}
	if err := c.RefreshChannels(ctx); err != nil {
		c.logger.Warn().Err(err).Str(log.FieldEvent, "library.menu_failed").Msg("channel menu unavailable")
	}
	c.running = true
	c.frame = c.sched.RequestFrame(c.onFrame)
	c.logger.Info().
		Str(log.FieldEvent, "shell.started").
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", c.opts.Width, c.opts.Height)).
		Int("fps", c.opts.FPS).
		Bool("shader", c.shaderEnabled).
		Msg("render loop started")
}

// Tick runs one scheduler tick. Run calls it from its ticker; tests call it directly.
func (s *Shell) Tick(now time.Time) { s.sched.Tick(now) }

// Run starts the loop and ticks until ctx is cancelled, then tears down.
func (s *Shell) Run(ctx context.Context) error {
	s.Start(ctx)
	err := s.sched.Run(ctx, s.c.opts.FPS)
	s.Close()
	return err
}

// Close stops the loop and releases the pipeline. Pending and later Do
// calls fail with ErrClosed.
func (s *Shell) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	s.c.teardown()
	close(s.done)
}

// Done is closed once the shell has been torn down.
func (s *Shell) Done() <-chan struct{} { return s.done }

// Do runs fn on the render goroutine at the start of the next tick and
// waits for its result. State reflects fn's effects once Do returns.
func (s *Shell) Do(ctx context.Context, fn func(c *Context) error) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	res := make(chan error, 1)
	s.sched.Post(func() {
		err := fn(s.c)
		s.c.publish()
		res <- err
	})
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// State returns the last published snapshot.
func (s *Shell) State() State { return *s.c.state.Load() }

// ShaderErr returns the compositor setup error, if any.
func (s *Shell) ShaderErr() error {
	st := s.State()
	if st.ShaderError == "" {
		return nil
	}
	return errors.New(st.ShaderError)
}

func (c *Context) onFrame(now time.Time) {
	if c.video.Loaded() {
		for _, ev := range c.video.Advance(now) {
			src := SourceVideo
			if ev == playback.EventCueChange {
				src = SourceTrack
			}
			c.events.Dispatch(&Event{Source: src, Type: EventType(ev)})
		}
	}

	c.last = c.capture.Tick(render.TickInput{
		ShaderEnabled: c.shaderEnabled,
		Video:         c.videoSource(),
		Screen:        c.menu.Screen(),
		Elapsed:       now.Sub(c.started),
	})
	c.frames++
	c.publish()

	if c.running {
		c.frame = c.sched.RequestFrame(c.onFrame)
	}
}

// videoSource avoids handing the capture loop a typed nil.
func (c *Context) videoSource() render.VideoSource {
	if !c.video.Loaded() {
		return nil
	}
	return c.video
}

// Stop cancels the pending frame. The loop stays stopped until Start.
func (c *Context) Stop() {
	c.running = false
	c.sched.Cancel(c.frame)
}

func (c *Context) teardown() {
	c.Stop()
	c.Exit()
	_ = c.video.Close()
	c.comp.Close()
	if err := c.rast.Close(); err != nil {
		c.logger.Debug().Err(err).Str(log.FieldEvent, "shell.teardown").Msg("rasterizer close failed")
	}
	c.publish()
	c.logger.Info().Str(log.FieldEvent, "shell.stopped").Uint64("frames", c.frames).Msg("render loop stopped")
}

func (c *Context) publish() {
	st := &State{
		ShaderEnabled: c.shaderEnabled,
		ShaderReady:   c.comp.Ready(),
		Width:         c.opts.Width,
		Height:        c.opts.Height,
		Menu:          c.menu.Current().Key,
		Selected:      c.menu.Selected(),
		Capture:       c.last.State.String(),
		Frames:        c.frames,
		Subtitle:      timelineText(c.capture.Subtitle()),
		Volume:        c.video.Volume(),
		Fullscreen:    c.fullscreen,
	}
	if err := c.comp.Err(); err != nil {
		st.ShaderError = err.Error()
	}
	if c.player != nil {
		st.Playing = true
		st.Path = c.player.path
		st.Title = c.player.title
		st.Paused = c.video.Paused()
		st.Ended = c.video.Ended()
		st.CurrentTime = c.video.CurrentTime()
		st.Duration = c.video.Duration()
	}
	c.state.Store(st)
}

// ShaderEnabled reports the shader toggle.
func (c *Context) ShaderEnabled() bool { return c.shaderEnabled }

// SetShaderEnabled toggles the CRT pass and persists the choice. Turning it
// on captures immediately and once more shortly after.
func (c *Context) SetShaderEnabled(ctx context.Context, enabled bool) {
	c.shaderEnabled = enabled
	c.menu.SetShaderLabel(enabled)
	if c.prefs != nil {
		if err := c.prefs.SetShadersEnabled(ctx, enabled); err != nil {
			c.logger.Warn().Err(err).Str(log.FieldEvent, "prefs.save_failed").Msg("cannot persist shader preference")
		}
	}
	if enabled {
		c.sched.After(shaderRefreshDelay, func() { c.capture.RequestUpdate() })
	}
	c.capture.RequestUpdate()
	c.logger.Info().Str(log.FieldEvent, "shader.toggled").Bool("enabled", enabled).Msg("shader toggled")
}

// RequestTextureUpdate marks the texture stale; false means one was already pending.
func (c *Context) RequestTextureUpdate() bool { return c.capture.RequestUpdate() }

// Resize dispatches a window resize.
func (c *Context) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	c.events.Dispatch(&Event{Source: SourceWindow, Type: EventResize, Width: width, Height: height})
	return nil
}

// Fullscreen reports the window mode the host should apply.
func (c *Context) Fullscreen() bool { return c.fullscreen }

// SetFullscreen records the window mode. The host window applies it from
// the published state.
func (c *Context) SetFullscreen(on bool) {
	if c.fullscreen == on {
		return
	}
	c.fullscreen = on
	c.menu.SetFullscreenLabel(on)
	c.capture.RequestUpdate()
	c.logger.Info().Str(log.FieldEvent, "shell.fullscreen").Bool("enabled", on).Msg("window mode changed")
}

func (c *Context) onResize(e *Event) {
	c.opts.Width, c.opts.Height = e.Width, e.Height
	c.capture.Resize(e.Width, e.Height)
	c.logger.Debug().
		Str(log.FieldEvent, "shell.resized").
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", e.Width, e.Height)).
		Msg("viewport resized")
}

// Key dispatches a keydown on the document.
func (c *Context) Key(key string, shift bool) *Event {
	e := &Event{Source: SourceDocument, Type: EventKeyDown, Key: key, Shift: shift}
	c.events.Dispatch(e)
	c.publish()
	return e
}

// RefreshChannels reloads the channel pages from the catalog.
func (c *Context) RefreshChannels(ctx context.Context) error {
	if c.catalog == nil {
		return nil
	}
	screens, err := c.catalog.Menu(ctx)
	if err != nil {
		return err
	}
	c.menu.SetChannels(screens)
	c.capture.RequestUpdate()
	return nil
}

// Menu returns the navigation state.
func (c *Context) Menu() *Menu { return c.menu }

// Events returns the dispatch table.
func (c *Context) Events() *Dispatcher { return c.events }

// LastCapture returns the result of the most recent frame.
func (c *Context) LastCapture() render.CaptureResult { return c.last }

// Snapshot returns a copy of what is on screen: the composited frame when
// the shader runs, the plain picture otherwise.
func (c *Context) Snapshot() *image.RGBA {
	if c.shaderEnabled && c.comp.Ready() {
		out := c.comp.Output()
		img := image.NewRGBA(out.Bounds())
		copy(img.Pix, out.Pix)
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, c.opts.Width, c.opts.Height))
	c.capture.Plain(img, c.videoSource(), c.menu.Screen())
	return img
}

func timelineText(lines [][]subtitle.WordSpan) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		words := make([]string, 0, len(line))
		for _, w := range line {
			words = append(words, w.Text)
		}
		parts = append(parts, strings.Join(words, " "))
	}
	return strings.Join(parts, "\n")
}
