// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
)

// ErrNotReady is returned by Frame when Setup has not succeeded.
var ErrNotReady = errors.New("compositor not ready")

// ShaderState is the GPU state owned by the compositor between Setup and Close.
type ShaderState struct {
	Texture         Handle
	SubtitleTexture Handle
	Program         Handle
	Uniforms        Uniforms
}

// Compositor runs the CRT pass over the captured canvas.
type Compositor struct {
	dev      Device
	logger   zerolog.Logger
	state    ShaderState
	scanRoll float64

	attempted bool
	setupErr  error
	ready     bool
	blank     *image.RGBA
}

// NewCompositor creates a compositor on dev. scanRoll is the scanline phase
// velocity in radians per second.
func NewCompositor(dev Device, scanRoll float64) *Compositor {
	return &Compositor{
		dev:      dev,
		logger:   log.WithComponent("compositor"),
		scanRoll: scanRoll,
		blank:    image.NewRGBA(image.Rect(0, 0, 1, 1)),
	}
}

// Setup compiles and links the CRT program and creates both textures. It runs
// once; a failed setup leaves the compositor disabled and later calls return
// the same error.
func (c *Compositor) Setup() error {
	if c.attempted {
		return c.setupErr
	}
	c.attempted = true
	c.setupErr = c.setup()
	return c.setupErr
}

func (c *Compositor) setup() error {
	vs, err := c.dev.CompileShader(VertexShader, CRTVertexSource)
	if err != nil {
		return c.fail("shader.compile_failed", metrics.ShaderSetupCompileFailed, err)
	}
	fs, err := c.dev.CompileShader(FragmentShader, CRTFragmentSource)
	if err != nil {
		c.dev.DeleteShader(vs)
		return c.fail("shader.compile_failed", metrics.ShaderSetupCompileFailed, err)
	}
	prog, err := c.dev.LinkProgram(vs, fs)
	c.dev.DeleteShader(vs)
	c.dev.DeleteShader(fs)
	if err != nil {
		return c.fail("shader.link_failed", metrics.ShaderSetupLinkFailed, err)
	}

	u := NewUniforms()
	u.Set1i(UniformChannel0, 0)
	u.Set1i(UniformSubtitleChannel, 1)
	u.Set1f(UniformScanRoll, c.scanRoll)

	c.state = ShaderState{
		Texture:         c.dev.CreateTexture(),
		SubtitleTexture: c.dev.CreateTexture(),
		Program:         prog,
		Uniforms:        u,
	}
	c.ready = true
	metrics.IncShaderSetup(metrics.ShaderSetupOK)
	c.logger.Info().Str(log.FieldEvent, "shader.ready").Msg("crt pipeline ready")
	return nil
}

func (c *Compositor) fail(event, result string, err error) error {
	metrics.IncShaderSetup(result)
	c.logger.Error().Err(err).Str(log.FieldEvent, event).Msg("shader pipeline disabled")
	return fmt.Errorf("compositor setup: %w", err)
}

// Ready reports whether Setup succeeded and Close has not been called.
func (c *Compositor) Ready() bool { return c.ready }

// Err returns the setup error, if any.
func (c *Compositor) Err() error { return c.setupErr }

// State returns a copy of the current shader state.
func (c *Compositor) State() ShaderState { return c.state }

// Resize changes the output viewport.
func (c *Compositor) Resize(width, height int) {
	c.dev.Viewport(width, height)
}

// Frame uploads canvas (and subtitles, when non-nil) and draws one pass.
func (c *Compositor) Frame(canvas, subtitles *image.RGBA, elapsed time.Duration) error {
	if !c.ready {
		return ErrNotReady
	}
	if err := c.dev.UploadTexture(c.state.Texture, canvas); err != nil {
		return err
	}
	if subtitles == nil {
		subtitles = c.blank
	}
	if err := c.dev.UploadTexture(c.state.SubtitleTexture, subtitles); err != nil {
		return err
	}
	if err := c.dev.BindTexture(0, c.state.Texture); err != nil {
		return err
	}
	if err := c.dev.BindTexture(1, c.state.SubtitleTexture); err != nil {
		return err
	}

	fb := c.dev.Framebuffer().Bounds()
	c.state.Uniforms.Set2f(UniformResolution, float64(fb.Dx()), float64(fb.Dy()))
	c.state.Uniforms.Set1f(UniformTime, elapsed.Seconds())

	c.dev.Clear(0, 0, 0, 1)
	return c.dev.DrawArrays(c.state.Program, TriangleStrip, 0, 4, c.state.Uniforms)
}

// Output returns the last composited frame.
func (c *Compositor) Output() *image.RGBA {
	return c.dev.Framebuffer()
}

// Close releases GPU objects. The compositor cannot be set up again.
func (c *Compositor) Close() {
	if !c.ready {
		return
	}
	c.ready = false
	c.dev.DeleteTexture(c.state.Texture)
	c.dev.DeleteTexture(c.state.SubtitleTexture)
	c.dev.DeleteProgram(c.state.Program)
	c.state = ShaderState{}
}
