// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
	"github.com/ManuGH/nostalgia/internal/subtitle"
)

// EventType names a media element event.
type EventType string

const (
	EventLoadedMetadata EventType = "loadedmetadata"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventTimeUpdate     EventType = "timeupdate"
	EventCueChange      EventType = "cuechange"
	EventEnded          EventType = "ended"
	EventVolumeChange   EventType = "volumechange"
	EventError          EventType = "error"
)

// ErrNotLoaded is returned by operations that need a loaded video.
var ErrNotLoaded = errors.New("no video loaded")

const (
	timeUpdateInterval = 250 * time.Millisecond
	defaultFPS         = 30
	maxFPS             = 60
)

// Video is a single-threaded media element. All methods must be called from
// the goroutine that owns it; events are collected and handed out by Advance.
type Video struct {
	src    FrameSource
	prober Prober
	clock  func() time.Time
	logger zerolog.Logger
	sink   AudioSink
	volume float64

	url      string
	audioURL string
	info  MediaInfo
	track *subtitle.Track
	size  image.Point

	stream    FrameStream
	audio     AudioStream
	paused    bool
	ended     bool
	base      time.Duration
	startedAt time.Time

	frame          *image.RGBA
	events         []EventType
	activeCues     []subtitle.Cue
	lastTimeUpdate time.Time
}

// NewVideo creates an empty element. A nil clock uses time.Now.
func NewVideo(src FrameSource, prober Prober, clock func() time.Time) *Video {
	if clock == nil {
		clock = time.Now
	}
	return &Video{
		src:    src,
		prober: prober,
		clock:  clock,
		logger: log.WithComponent("video"),
		volume: 1,
		paused: true,
	}
}

// SetAudioSink enables sound. A nil sink keeps the element silent.
func (v *Video) SetAudioSink(sink AudioSink) { v.sink = sink }

// SetAudioURL plays sound from url instead of the video's own track. It
// applies from the next decoder start; Load resets it.
func (v *Video) SetAudioURL(url string) { v.audioURL = url }

// Volume returns the output level, 0..1.
func (v *Video) Volume() float64 { return v.volume }

// SetVolume clamps vol to 0..1 and applies it, restarting the audio output
// at the playhead when playing. It reports the level in effect.
func (v *Video) SetVolume(ctx context.Context, vol float64) float64 {
	if math.IsNaN(vol) {
		return v.volume
	}
	vol = math.Round(min(max(vol, 0), 1)*100) / 100
	if vol == v.volume {
		return vol
	}
	v.volume = vol
	v.events = append(v.events, EventVolumeChange)
	if v.Loaded() && !v.paused {
		v.stopAudio()
		v.startAudio(ctx, v.position(v.clock()))
	}
	return vol
}

// Load probes url and prepares playback from the start. Frames are decoded at size.
func (v *Video) Load(ctx context.Context, url string, track *subtitle.Track, size image.Point) error {
	info, err := v.prober.Probe(ctx, url)
	if err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	v.stop()
	*v = Video{
		src:    v.src,
		prober: v.prober,
		clock:  v.clock,
		logger: v.logger,
		sink:   v.sink,
		volume: v.volume,
		url:    url,
		info:   info,
		track:  track,
		size:   size,
		paused: true,
		events: []EventType{EventLoadedMetadata},
	}
	v.logger.Info().
		Str(log.FieldEvent, "video.loaded").
		Str(log.FieldURL, url).
		Dur("duration", info.Duration).
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", info.Width, info.Height)).
		Bool("subtitles", track.Len() > 0).
		Msg("video loaded")
	return nil
}

// Loaded reports whether a URL is loaded.
func (v *Video) Loaded() bool { return v.url != "" }

// URL returns the loaded media URL.
func (v *Video) URL() string { return v.url }

// Info returns the probe result of the loaded media.
func (v *Video) Info() MediaInfo { return v.info }

// Play starts or resumes decoding at the current position. Playing an ended
// video restarts it.
func (v *Video) Play(ctx context.Context) error {
	if !v.Loaded() {
		return ErrNotLoaded
	}
	if !v.paused {
		return nil
	}
	if v.ended {
		v.base = 0
		v.ended = false
	}
	if err := v.start(ctx); err != nil {
		return err
	}
	v.paused = false
	v.startedAt = v.clock()
	v.lastTimeUpdate = v.startedAt
	v.events = append(v.events, EventPlay)
	return nil
}

// Pause freezes the clock and stops the decoder. The last frame stays visible.
func (v *Video) Pause() {
	if v.paused {
		return
	}
	v.base = v.position(v.clock())
	v.paused = true
	v.stop()
	v.events = append(v.events, EventTimeUpdate, EventPause)
}

// Seek moves the playhead to t seconds, restarting the decoder when playing.
func (v *Video) Seek(ctx context.Context, t float64) error {
	if !v.Loaded() {
		return ErrNotLoaded
	}
	pos := v.clamp(time.Duration(t * float64(time.Second)))
	v.base = pos
	v.ended = false
	if v.paused {
		v.events = append(v.events, EventTimeUpdate)
		return nil
	}
	v.stop()
	if err := v.start(ctx); err != nil {
		v.paused = true
		return err
	}
	v.startedAt = v.clock()
	v.events = append(v.events, EventTimeUpdate)
	return nil
}

func (v *Video) start(ctx context.Context) error {
	fps := v.info.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	stream, err := v.src.Start(ctx, StartOptions{
		URL:    v.url,
		Offset: v.base,
		Size:   v.size,
		FPS:    min(fps, maxFPS),
	})
	if err != nil {
		v.logger.Error().Err(err).Str(log.FieldEvent, "video.decoder_failed").Str(log.FieldURL, v.url).Msg("cannot start decoder")
		return fmt.Errorf("start decoder: %w", err)
	}
	metrics.IncDecoderRestart()
	v.stream = stream
	v.startAudio(ctx, v.base)
	return nil
}

// startAudio is best effort: a missing output device leaves the video silent.
func (v *Video) startAudio(ctx context.Context, offset time.Duration) {
	if v.sink == nil || v.volume <= 0 {
		return
	}
	url := v.audioURL
	if url == "" {
		url = v.url
	}
	audio, err := v.sink.Start(ctx, AudioOptions{URL: url, Offset: offset, Volume: v.volume})
	if err != nil {
		v.logger.Warn().Err(err).Str(log.FieldEvent, "video.audio_failed").Str(log.FieldURL, url).Msg("audio unavailable")
		return
	}
	v.audio = audio
}

func (v *Video) stopAudio() {
	if v.audio == nil {
		return
	}
	if err := v.audio.Close(); err != nil {
		v.logger.Debug().Err(err).Str(log.FieldEvent, "video.audio_close").Msg("audio output exited with error")
	}
	v.audio = nil
}

func (v *Video) stop() {
	v.stopAudio()
	if v.stream == nil {
		return
	}
	if err := v.stream.Close(); err != nil {
		v.logger.Debug().Err(err).Str(log.FieldEvent, "video.decoder_close").Msg("decoder exited with error")
	}
	v.stream = nil
}

// Paused reports whether the clock is stopped.
func (v *Video) Paused() bool { return v.paused }

// Ended reports whether playback reached the end.
func (v *Video) Ended() bool { return v.ended }

// CurrentTime returns the playhead in seconds.
func (v *Video) CurrentTime() float64 {
	return v.position(v.clock()).Seconds()
}

// Duration returns the media duration in seconds, or 0 when unknown.
func (v *Video) Duration() float64 { return v.info.Duration.Seconds() }

// Frame returns the latest decoded frame, or nil before the first one.
func (v *Video) Frame() image.Image {
	if v.frame == nil {
		return nil
	}
	return v.frame
}

// TextTrack returns the subtitle track, possibly nil.
func (v *Video) TextTrack() *subtitle.Track { return v.track }

// ActiveCues returns the cues that were active at the last Advance.
func (v *Video) ActiveCues() []subtitle.Cue { return v.activeCues }

func (v *Video) position(now time.Time) time.Duration {
	if v.paused {
		return v.base
	}
	return v.clamp(v.base + now.Sub(v.startedAt))
}

func (v *Video) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if v.info.Duration > 0 && d > v.info.Duration {
		return v.info.Duration
	}
	return d
}

// Advance pulls the newest frame, moves the clock to now and returns the
// events raised since the previous call, in order.
func (v *Video) Advance(now time.Time) []EventType {
	if v.stream != nil {
		if f, ok := v.stream.Latest(); ok && f.Image != nil {
			v.frame = f.Image
		}
		v.checkDecoder(now)
	}

	if !v.paused {
		if v.info.Duration > 0 && v.position(now) >= v.info.Duration {
			v.finish(now, nil)
		} else if now.Sub(v.lastTimeUpdate) >= timeUpdateInterval {
			v.lastTimeUpdate = now
			v.events = append(v.events, EventTimeUpdate)
		}
	}

	if v.track != nil {
		active := v.track.ActiveAt(v.position(now).Seconds())
		if !sameCues(active, v.activeCues) {
			v.activeCues = active
			v.events = append(v.events, EventCueChange)
		}
	}

	events := v.events
	v.events = nil
	return events
}

func (v *Video) checkDecoder(now time.Time) {
	select {
	case <-v.stream.Done():
	default:
		return
	}
	if v.paused {
		return
	}
	err := v.stream.Err()
	if err != nil {
		v.logger.Error().Err(err).Str(log.FieldEvent, "video.decoder_exited").Str(log.FieldURL, v.url).Msg("decoder stopped unexpectedly")
		v.events = append(v.events, EventError)
	}
	v.finish(now, err)
}

func (v *Video) finish(now time.Time, err error) {
	v.base = v.position(now)
	if err == nil && v.info.Duration > 0 {
		v.base = v.info.Duration
	}
	v.paused = true
	v.ended = true
	v.stop()
	v.events = append(v.events, EventTimeUpdate, EventPause, EventEnded)
	v.logger.Info().Str(log.FieldEvent, "video.ended").Str(log.FieldURL, v.url).Msg("playback ended")
}

// Close stops decoding and unloads the video.
func (v *Video) Close() error {
	v.stop()
	*v = Video{src: v.src, prober: v.prober, clock: v.clock, logger: v.logger, sink: v.sink, volume: v.volume, paused: true}
	return nil
}

func sameCues(a, b []subtitle.Cue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
