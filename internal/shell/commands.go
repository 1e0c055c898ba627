// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package shell

import (
	"context"
	"image"
)

// Goroutine-safe wrappers around Context commands, used by the control API.

func (s *Shell) Play(ctx context.Context, req PlayRequest) error {
	return s.Do(ctx, func(c *Context) error { return c.Play(ctx, req) })
}

func (s *Shell) Pause(ctx context.Context) error {
	return s.Do(ctx, func(c *Context) error { return c.Pause() })
}

func (s *Shell) Resume(ctx context.Context) error {
	return s.Do(ctx, func(c *Context) error { return c.Resume() })
}

// Stop exits playback. It is not an error when nothing plays.
func (s *Shell) Stop(ctx context.Context) error {
	return s.Do(ctx, func(c *Context) error {
		c.Exit()
		return nil
	})
}

// Key dispatches a key press and reports whether a listener handled it.
func (s *Shell) Key(ctx context.Context, key string, shift bool) (bool, error) {
	var handled bool
	err := s.Do(ctx, func(c *Context) error {
		handled = c.Key(key, shift).DefaultPrevented()
		return nil
	})
	return handled, err
}

func (s *Shell) SetShaderEnabled(ctx context.Context, enabled bool) error {
	return s.Do(ctx, func(c *Context) error {
		c.SetShaderEnabled(ctx, enabled)
		return nil
	})
}

// RefreshTexture requests a capture; false means one was already pending.
func (s *Shell) RefreshTexture(ctx context.Context) (bool, error) {
	var queued bool
	err := s.Do(ctx, func(c *Context) error {
		queued = c.RequestTextureUpdate()
		return nil
	})
	return queued, err
}

func (s *Shell) SetSubtitle(ctx context.Context, text string, start, end float64) error {
	return s.Do(ctx, func(c *Context) error {
		c.SetSubtitle(text, start, end)
		return nil
	})
}

func (s *Shell) ClearSubtitle(ctx context.Context) error {
	return s.Do(ctx, func(c *Context) error {
		c.ClearSubtitle()
		return nil
	})
}

func (s *Shell) Resize(ctx context.Context, width, height int) error {
	return s.Do(ctx, func(c *Context) error { return c.Resize(width, height) })
}

// SetVolume sets the output level and returns the clamped value.
func (s *Shell) SetVolume(ctx context.Context, vol float64) (float64, error) {
	var got float64
	err := s.Do(ctx, func(c *Context) error {
		got = c.SetVolume(vol)
		return nil
	})
	return got, err
}

func (s *Shell) SetFullscreen(ctx context.Context, on bool) error {
	return s.Do(ctx, func(c *Context) error {
		c.SetFullscreen(on)
		return nil
	})
}

func (s *Shell) RefreshChannels(ctx context.Context) error {
	return s.Do(ctx, func(c *Context) error { return c.RefreshChannels(ctx) })
}

// Snapshot copies the current screen.
func (s *Shell) Snapshot(ctx context.Context) (*image.RGBA, error) {
	var img *image.RGBA
	err := s.Do(ctx, func(c *Context) error {
		img = c.Snapshot()
		return nil
	})
	return img, err
}
