// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package shell

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	vhshttp "github.com/ManuGH/nostalgia/internal/control/http"
	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/subtitle"
)

// ErrNotPlaying is returned by player commands while the menu is shown.
var ErrNotPlaying = errors.New("nothing is playing")

const (
	seekStep        = 5.0
	seekStepShift   = 10.0
	volumeStep      = 0.05
	volumeStepShift = 0.1
)

// PlayRequest names a video and optional subtitles. Without Subtitles a
// .vtt file next to the video is used when present. Audio names a separate
// sound track; without it the video's own track plays.
type PlayRequest struct {
	Path      string `json:"path"`
	Subtitles string `json:"subtitles,omitempty"`
	Audio     string `json:"audio,omitempty"`
	Title     string `json:"title,omitempty"`
	Paused    bool   `json:"paused,omitempty"`
}

type player struct {
	path      string
	title     string
	listeners []ListenerID
	logger    zerolog.Logger
}

// Play exits any current video, loads req and starts it.
func (c *Context) Play(ctx context.Context, req PlayRequest) error {
	if req.Path == "" {
		return fmt.Errorf("%w: empty path", vhshttp.ErrInvalidPath)
	}
	c.Exit()

	track := c.loadTrack(req)
	url := vhshttp.MediaHTTPURL(c.opts.MediaBaseURL, req.Path)
	if err := c.video.Load(ctx, url, track, image.Pt(c.opts.Width, c.opts.Height)); err != nil {
		return err
	}
	if req.Audio != "" {
		c.video.SetAudioURL(vhshttp.MediaHTTPURL(c.opts.MediaBaseURL, req.Audio))
	}

	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	}
	p := &player{path: req.Path, title: title}
	p.logger = log.Derive(func(z zerolog.Context) zerolog.Context {
		return z.Str(log.FieldComponent, "player").
			Str("session", uuid.NewString()).
			Str(log.FieldPath, req.Path).
			Str("title", title)
	})
	p.listeners = append(p.listeners,
		c.events.Add(SourceVideo, EventType(playback.EventEnded), PhaseBubble, func(*Event) { c.Exit() }),
		c.events.Add(SourceVideo, EventType(playback.EventTimeUpdate), PhaseBubble, func(*Event) { c.updateSubtitles() }),
		c.events.Add(SourceTrack, EventType(playback.EventCueChange), PhaseBubble, func(*Event) { c.updateSubtitles() }),
		c.events.Add(SourceDocument, EventKeyDown, PhaseCapture, c.onPlayerKey),
	)
	c.player = p

	if !req.Paused {
		if err := c.video.Play(c.runCtx); err != nil {
			c.Exit()
			return err
		}
	}
	c.capture.RequestUpdate()
	p.logger.Info().
		Str(log.FieldEvent, "player.play").
		Bool("subtitles", track != nil).
		Bool("separate_audio", req.Audio != "").
		Msg("playback started")
	return nil
}

func (c *Context) loadTrack(req PlayRequest) *subtitle.Track {
	path := req.Subtitles
	if path == "" {
		candidate := strings.TrimSuffix(req.Path, filepath.Ext(req.Path)) + ".vtt"
		if _, err := os.Stat(candidate); err != nil {
			return nil
		}
		path = candidate
	}
	track, err := subtitle.LoadVTT(path)
	if err != nil {
		c.logger.Warn().Err(err).Str(log.FieldEvent, "subtitle.unavailable").Str(log.FieldPath, path).Msg("subtitles not available")
		return nil
	}
	return track
}

// Playing reports whether a video is on screen.
func (c *Context) Playing() bool { return c.player != nil }

// Video returns the media element.
func (c *Context) Video() *playback.Video { return c.video }

// Exit leaves playback: pause, drop the player listeners, clear the
// subtitle and request a fresh capture of the menu.
func (c *Context) Exit() {
	p := c.player
	if p == nil {
		return
	}
	c.player = nil
	c.video.Pause()
	c.events.RemoveAll(p.listeners)
	c.capture.ClearSubtitle()
	_ = c.video.Close()
	c.capture.RequestUpdate()
	p.logger.Info().Str(log.FieldEvent, "player.exit").Msg("playback stopped")
}

// Pause pauses the video.
func (c *Context) Pause() error {
	if c.player == nil {
		return ErrNotPlaying
	}
	c.video.Pause()
	c.capture.RequestUpdate()
	return nil
}

// Resume continues a paused video.
func (c *Context) Resume() error {
	if c.player == nil {
		return ErrNotPlaying
	}
	return c.video.Play(c.runCtx)
}

// TogglePause flips between playing and paused.
func (c *Context) TogglePause() error {
	if c.player == nil {
		return ErrNotPlaying
	}
	if c.video.Paused() {
		return c.Resume()
	}
	return c.Pause()
}

// SeekBy moves the playhead by delta seconds.
func (c *Context) SeekBy(delta float64) error {
	if c.player == nil {
		return ErrNotPlaying
	}
	if err := c.video.Seek(c.runCtx, c.video.CurrentTime()+delta); err != nil {
		return err
	}
	c.capture.RequestUpdate()
	return nil
}

// SetSubtitle shows text as a timed cue spanning start..end seconds.
func (c *Context) SetSubtitle(text string, start, end float64) {
	c.capture.SetSubtitle(subtitle.Parse(text, start, end))
	c.capture.RequestUpdate()
}

// ClearSubtitle removes the subtitle.
func (c *Context) ClearSubtitle() {
	c.capture.ClearSubtitle()
	c.capture.RequestUpdate()
}

// updateSubtitles shows the first active cue, or nothing.
func (c *Context) updateSubtitles() {
	cues := c.video.ActiveCues()
	if len(cues) == 0 {
		if len(c.capture.Subtitle()) > 0 {
			c.ClearSubtitle()
		}
		return
	}
	c.capture.SetSubtitle(cues[0].Timeline())
	if c.video.Paused() {
		c.capture.RequestUpdate()
	}
}

// onPlayerKey runs in the capture phase while a video plays.
func (c *Context) onPlayerKey(e *Event) {
	switch e.Key {
	case "Escape", "q":
		e.PreventDefault()
		e.StopPropagation()
		c.Exit()
	case " ", "Space":
		e.PreventDefault()
		e.StopPropagation()
		if err := c.TogglePause(); err != nil {
			c.player.logger.Warn().Err(err).Str(log.FieldEvent, "player.toggle_failed").Msg("cannot toggle pause")
		}
	}
}

// onMenuKey is the document-level bubble handler: shader and fullscreen
// hotkeys, seeking and volume during playback, menu navigation otherwise.
func (c *Context) onMenuKey(e *Event) {
	switch e.Key {
	case "s":
		c.SetShaderEnabled(c.runCtx, !c.shaderEnabled)
		return
	case "f":
		c.SetFullscreen(!c.fullscreen)
		return
	}

	if c.player != nil {
		c.onPlaybackKey(e)
		return
	}

	switch e.Key {
	case "ArrowUp":
		c.menu.Up()
	case "ArrowDown":
		c.menu.Down()
	case "ArrowLeft":
		c.menu.Back()
	case "ArrowRight", "Enter", " ", "Space":
		c.activate()
	default:
		return
	}
	e.PreventDefault()
	c.capture.RequestUpdate()
}

func (c *Context) onPlaybackKey(e *Event) {
	seek, vol := seekStep, volumeStep
	if e.Shift {
		seek, vol = seekStepShift, volumeStepShift
	}
	var err error
	switch e.Key {
	case "ArrowLeft":
		err = c.SeekBy(-seek)
	case "ArrowRight":
		err = c.SeekBy(seek)
	case "ArrowUp":
		c.SetVolume(c.video.Volume() + vol)
	case "ArrowDown":
		c.SetVolume(c.video.Volume() - vol)
	default:
		return
	}
	e.PreventDefault()
	if err != nil {
		c.player.logger.Warn().Err(err).Str(log.FieldEvent, "player.key_failed").Str("key", e.Key).Msg("playback key failed")
	}
}

// SetVolume sets the output level, clamped to 0..1, and returns it. The
// level carries over to the next video.
func (c *Context) SetVolume(vol float64) float64 {
	got := c.video.SetVolume(c.runCtx, vol)
	c.logger.Debug().Str(log.FieldEvent, "player.volume").Float64("volume", got).Msg("volume changed")
	return got
}

func (c *Context) activate() {
	entry := c.menu.Activate()
	switch entry.Action {
	case ActionToggleShader:
		c.SetShaderEnabled(c.runCtx, !c.shaderEnabled)
	case ActionFullscreen:
		c.SetFullscreen(!c.fullscreen)
	case ActionPlay:
		req := PlayRequest{Path: entry.Item.Video, Subtitles: entry.Item.Subtitles, Audio: entry.Item.Audio, Title: entry.Label}
		if err := c.Play(c.runCtx, req); err != nil {
			c.logger.Error().Err(err).Str(log.FieldEvent, "player.play_failed").Str(log.FieldPath, req.Path).Msg("cannot play item")
		}
	}
}
