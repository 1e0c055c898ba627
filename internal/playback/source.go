// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback models the video element: a clock, a decoder-backed frame
// stream, a subtitle track and the events the shell listens to.
package playback

import (
	"context"
	"image"
	"time"
)

// MediaInfo is what a probe reports about a media URL.
type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
}

// Prober inspects media before playback.
type Prober interface {
	Probe(ctx context.Context, url string) (MediaInfo, error)
}

// Frame is one decoded picture and its presentation time.
type Frame struct {
	Image *image.RGBA
	PTS   time.Duration
}

// StartOptions describe one decoder run.
type StartOptions struct {
	URL    string
	Offset time.Duration
	Size   image.Point
	FPS    float64
}

// FrameSource starts decoders.
type FrameSource interface {
	Start(ctx context.Context, opts StartOptions) (FrameStream, error)
}

// AudioOptions describe one audio output run. Volume is 0..1.
type AudioOptions struct {
	URL    string
	Offset time.Duration
	Volume float64
}

// AudioSink plays the sound of a media URL on the host's output device.
type AudioSink interface {
	Start(ctx context.Context, opts AudioOptions) (AudioStream, error)
}

// AudioStream is a running audio output.
type AudioStream interface {
	Done() <-chan struct{}
	Close() error
}

// FrameStream is a running decoder. Latest never blocks.
type FrameStream interface {
	Latest() (Frame, bool)
	// Done is closed when the decoder stops producing frames.
	Done() <-chan struct{}
	// Err is the decoder's terminal error, valid after Done is closed.
	Err() error
	Close() error
}
