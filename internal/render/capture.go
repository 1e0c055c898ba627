// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"image"
	"image/draw"
	"time"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
	"github.com/ManuGH/nostalgia/internal/subtitle"
)

// SubtitleMode selects where subtitles are rasterised.
type SubtitleMode string

const (
	// SubtitleInline draws subtitles straight onto the capture canvas.
	SubtitleInline SubtitleMode = "inline"
	// SubtitleTexture draws onto a transparent canvas bound as the second texture.
	SubtitleTexture SubtitleMode = "texture"
)

// VideoSource is the read-only view of the playing video the loop captures from.
type VideoSource interface {
	Paused() bool
	CurrentTime() float64
	// Frame returns the latest decoded frame, or nil before the first one.
	Frame() image.Image
}

// CaptureState is the per-tick upload state.
type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CapturedPendingUpload
	Uploaded
)

func (s CaptureState) String() string {
	switch s {
	case CaptureIdle:
		return "idle"
	case CapturedPendingUpload:
		return "captured_pending_upload"
	case Uploaded:
		return "uploaded"
	default:
		return "unknown"
	}
}

// TickInput is what the loop reads each frame.
type TickInput struct {
	ShaderEnabled bool
	Video         VideoSource // nil when nothing is loaded
	Screen        Screen      // shown when Video is nil
	Elapsed       time.Duration
}

// CaptureResult describes what one tick did.
type CaptureResult struct {
	State          CaptureState
	Outcome        string // metrics.Frame* outcome
	OverlayVisible bool
	Err            error
}

// CaptureLoop copies the current picture into the canvas and hands it to the
// compositor once per frame.
type CaptureLoop struct {
	comp   *Compositor
	rast   *Rasterizer
	mode   SubtitleMode
	logger zerolog.Logger

	canvas    *image.RGBA
	subCanvas *image.RGBA
	pending   bool
	timeline  [][]subtitle.WordSpan
}

// NewCaptureLoop creates a loop with width x height canvases. A texture
// update starts out pending so the first enabled frame is drawn.
func NewCaptureLoop(comp *Compositor, rast *Rasterizer, mode SubtitleMode, width, height int) *CaptureLoop {
	if mode != SubtitleInline {
		mode = SubtitleTexture
	}
	l := &CaptureLoop{
		comp:    comp,
		rast:    rast,
		mode:    mode,
		logger:  log.WithComponent("capture"),
		pending: true,
	}
	l.Resize(width, height)
	return l
}

// Resize reallocates the canvases and requests an update.
func (l *CaptureLoop) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	l.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
	l.subCanvas = image.NewRGBA(image.Rect(0, 0, width, height))
	l.comp.Resize(width, height)
	l.pending = true
}

// RequestUpdate marks the texture stale. It returns false if an update was already pending.
func (l *CaptureLoop) RequestUpdate() bool {
	if l.pending {
		return false
	}
	l.pending = true
	return true
}

// Pending reports whether a texture update is outstanding.
func (l *CaptureLoop) Pending() bool { return l.pending }

// SetSubtitle replaces the current timeline.
func (l *CaptureLoop) SetSubtitle(lines [][]subtitle.WordSpan) { l.timeline = lines }

// ClearSubtitle removes the current timeline.
func (l *CaptureLoop) ClearSubtitle() { l.timeline = nil }

// Subtitle returns the current timeline.
func (l *CaptureLoop) Subtitle() [][]subtitle.WordSpan { return l.timeline }

// Canvas returns the capture canvas.
func (l *CaptureLoop) Canvas() *image.RGBA { return l.canvas }

// Mode returns the subtitle mode.
func (l *CaptureLoop) Mode() SubtitleMode { return l.mode }

// Tick runs one frame.
func (l *CaptureLoop) Tick(in TickInput) CaptureResult {
	start := time.Now()
	res := l.tick(in)
	metrics.ObserveFrame(res.Outcome, time.Since(start))
	return res
}

func (l *CaptureLoop) tick(in TickInput) CaptureResult {
	if !in.ShaderEnabled || !l.comp.Ready() {
		return CaptureResult{State: CaptureIdle, Outcome: metrics.FrameDisabled}
	}
	res := CaptureResult{State: CaptureIdle, Outcome: metrics.FrameSkipped, OverlayVisible: true}

	var subtitles *image.RGBA
	switch {
	case in.Video != nil:
		if in.Video.Paused() && !l.pending {
			return res
		}
		subtitles = l.captureVideo(in.Video)
	case l.pending:
		l.captureScreen(in.Screen)
	default:
		return res
	}
	res.State = CapturedPendingUpload

	if err := l.comp.Frame(l.canvas, subtitles, in.Elapsed); err != nil {
		l.logger.Warn().Err(err).Str(log.FieldEvent, "render.upload_failed").Msg("frame upload failed")
		res.Err = err
		return res
	}
	l.pending = false
	res.State = Uploaded
	res.Outcome = metrics.FrameRendered
	return res
}

// captureVideo scales the current frame into the canvas and rasterises
// subtitles. It returns the subtitle texture in texture mode.
func (l *CaptureLoop) captureVideo(v VideoSource) *image.RGBA {
	draw.Draw(l.canvas, l.canvas.Bounds(), image.Black, image.Point{}, draw.Src)
	if frame := v.Frame(); frame != nil {
		xdraw.ApproxBiLinear.Scale(l.canvas, l.canvas.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	}

	target := l.canvas
	if l.mode == SubtitleTexture {
		draw.Draw(l.subCanvas, l.subCanvas.Bounds(), image.Transparent, image.Point{}, draw.Src)
		target = l.subCanvas
	}
	if len(l.timeline) > 0 {
		if err := l.rast.Draw(target, l.timeline, v.CurrentTime()); err != nil {
			l.logger.Warn().Err(err).Str(log.FieldEvent, "subtitle.draw_failed").Msg("subtitle rasterisation failed")
		}
	}
	if l.mode == SubtitleTexture {
		return l.subCanvas
	}
	return nil
}

func (l *CaptureLoop) captureScreen(s Screen) {
	DrawScreen(l.canvas, s)
}

// Plain draws the unshaded picture into dst: the current video frame with
// inline subtitles, or the screen when v is nil. It leaves the loop's canvases
// and pending flag untouched.
func (l *CaptureLoop) Plain(dst *image.RGBA, v VideoSource, s Screen) {
	if v == nil {
		DrawScreen(dst, s)
		return
	}
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	if frame := v.Frame(); frame != nil {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	}
	if len(l.timeline) > 0 {
		if err := l.rast.Draw(dst, l.timeline, v.CurrentTime()); err != nil {
			l.logger.Warn().Err(err).Str(log.FieldEvent, "subtitle.draw_failed").Msg("subtitle rasterisation failed")
		}
	}
}
