// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/nostalgia/internal/library"
	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
	"github.com/ManuGH/nostalgia/internal/playback"
	"github.com/ManuGH/nostalgia/internal/render"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type fakeProber struct {
	info playback.MediaInfo
	err  error
}

func (p *fakeProber) Probe(context.Context, string) (playback.MediaInfo, error) {
	return p.info, p.err
}

type fakeStream struct {
	frame  playback.Frame
	done   chan struct{}
	closed bool
}

func (s *fakeStream) Latest() (playback.Frame, bool) { return s.frame, s.frame.Image != nil }
func (s *fakeStream) Done() <-chan struct{}          { return s.done }
func (s *fakeStream) Err() error                     { return nil }
func (s *fakeStream) Close() error {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

type fakeSource struct {
	starts []playback.StartOptions
	frame  *image.RGBA
}

func (s *fakeSource) Start(_ context.Context, opts playback.StartOptions) (playback.FrameStream, error) {
	s.starts = append(s.starts, opts)
	return &fakeStream{frame: playback.Frame{Image: s.frame}, done: make(chan struct{})}, nil
}

type fakePrefs struct {
	enabled *bool
	saved   []bool
}

func (p *fakePrefs) ShadersEnabled(context.Context) (bool, error) {
	if p.enabled == nil {
		return true, nil
	}
	return *p.enabled, nil
}

func (p *fakePrefs) SetShadersEnabled(_ context.Context, enabled bool) error {
	p.saved = append(p.saved, enabled)
	return nil
}

type fakeCatalog struct{ screens []library.MenuScreen }

func (c *fakeCatalog) Menu(context.Context) ([]library.MenuScreen, error) { return c.screens, nil }

type harness struct {
	shell  *Shell
	c      *Context
	clock  *fakeClock
	source *fakeSource
	prober *fakeProber
	prefs  *fakePrefs
}

func newHarness(t *testing.T, edit func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		clock:  newFakeClock(),
		source: &fakeSource{frame: image.NewRGBA(image.Rect(0, 0, 64, 36))},
		prober: &fakeProber{info: playback.MediaInfo{Duration: time.Minute, Width: 64, Height: 36, FPS: 25}},
		prefs:  &fakePrefs{},
	}
	deps := Deps{
		Source:  h.source,
		Prober:  h.prober,
		Prefs:   h.prefs,
		Catalog: &fakeCatalog{screens: channelScreens()},
		Clock:   h.clock.Now,
	}
	if edit != nil {
		edit(&deps)
	}
	s, err := New(context.Background(), Options{
		Width: 64, Height: 36, FPS: 30,
		SubtitleMode: render.SubtitleTexture,
		MediaBaseURL: "http://127.0.0.1:8088",
		Version:      "test",
		Volume:       1,
	}, deps)
	require.NoError(t, err)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	h.shell, h.c = s, s.c
	return h
}

func (h *harness) tick(d time.Duration) {
	h.shell.Tick(h.clock.Advance(d))
}

// writeVideo creates a placeholder video file, optionally with a sibling .vtt.
func writeVideo(t *testing.T, vtt string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	if vtt != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tape.vtt"), []byte(vtt), 0o644))
	}
	return path
}

func TestShell_StartsOnMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.tick(33 * time.Millisecond)

	st := h.shell.State()
	assert.Equal(t, PageMain, st.Menu)
	assert.True(t, st.ShaderEnabled)
	assert.True(t, st.ShaderReady)
	assert.Equal(t, render.Uploaded.String(), st.Capture)
	assert.Equal(t, uint64(1), st.Frames)
	assert.False(t, st.Playing)
	assert.NoError(t, h.shell.ShaderErr())
}

func TestShell_NewRejectsBadSize(t *testing.T) {
	_, err := New(context.Background(), Options{Width: 0, Height: 10}, Deps{})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestShell_ShaderPreferenceOff(t *testing.T) {
	off := false
	h := newHarness(t, func(d *Deps) { d.Prefs = &fakePrefs{enabled: &off} })
	h.tick(33 * time.Millisecond)

	assert.False(t, h.shell.State().ShaderEnabled)
	assert.Equal(t, metrics.FrameDisabled, h.c.LastCapture().Outcome)
	assert.False(t, h.c.LastCapture().OverlayVisible)
}

func TestShell_ShaderToggleRefreshesTwice(t *testing.T) {
	h := newHarness(t, nil)
	h.tick(10 * time.Millisecond)
	require.False(t, h.c.capture.Pending())

	h.c.SetShaderEnabled(context.Background(), true)
	assert.Equal(t, []bool{true}, h.prefs.saved)

	h.tick(10 * time.Millisecond)
	assert.Equal(t, render.Uploaded, h.c.LastCapture().State)

	h.tick(10 * time.Millisecond)
	assert.Equal(t, render.CaptureIdle, h.c.LastCapture().State, "nothing new to capture")

	h.tick(10 * time.Millisecond)
	assert.Equal(t, render.Uploaded, h.c.LastCapture().State, "deferred refresh after 25ms")
}

func TestShell_PlayLoadsSiblingSubtitlesAndEscapeExits(t *testing.T) {
	h := newHarness(t, nil)
	path := writeVideo(t, "WEBVTT\n\n00:00.000 --> 00:05.000\n<00:00.500>Hello <00:01.000>world\n")
	ctx := context.Background()

	require.NoError(t, h.c.Play(ctx, PlayRequest{Path: path}))
	require.True(t, h.c.Playing())
	require.Len(t, h.source.starts, 1)
	assert.Equal(t, "http://127.0.0.1:8088/vhs"+filepath.ToSlash(path), h.source.starts[0].URL)
	assert.Equal(t, image.Pt(64, 36), h.source.starts[0].Size)
	assert.Equal(t, 1, h.c.Video().TextTrack().Len())
	assert.Equal(t, 6, h.c.Events().Len())

	h.tick(100 * time.Millisecond)
	st := h.shell.State()
	assert.True(t, st.Playing)
	assert.Equal(t, "tape", st.Title)
	assert.Equal(t, "Hello world", st.Subtitle)

	e := h.c.Key("Escape", false)
	assert.True(t, e.DefaultPrevented())
	assert.True(t, e.Stopped())
	assert.False(t, h.c.Playing())
	assert.False(t, h.c.Video().Loaded())
	assert.Empty(t, h.c.capture.Subtitle())
	assert.True(t, h.c.capture.Pending())
	assert.Equal(t, 2, h.c.Events().Len())
	assert.Equal(t, PageMain, h.c.Menu().Current().Key, "escape never reaches the menu")
}

func TestShell_QAlsoExits(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.c.Play(context.Background(), PlayRequest{Path: writeVideo(t, "")}))
	assert.Nil(t, h.c.Video().TextTrack())
	h.c.Key("q", false)
	assert.False(t, h.c.Playing())
}

func TestShell_SpaceTogglesPause(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.c.Play(context.Background(), PlayRequest{Path: writeVideo(t, "")}))
	require.False(t, h.c.Video().Paused())

	h.c.Key(" ", false)
	assert.True(t, h.c.Video().Paused())
	h.c.Key("Space", false)
	assert.False(t, h.c.Video().Paused())
	assert.Len(t, h.source.starts, 2, "resume restarts the decoder")
}

func TestShell_CueChangeClearsSubtitle(t *testing.T) {
	h := newHarness(t, nil)
	path := writeVideo(t, "WEBVTT\n\n00:00.000 --> 00:01.000\nfirst\n\n00:03.000 --> 00:04.000\nsecond\n")
	require.NoError(t, h.c.Play(context.Background(), PlayRequest{Path: path}))

	h.tick(100 * time.Millisecond)
	assert.Equal(t, "first", h.shell.State().Subtitle)

	h.tick(time.Second)
	assert.Empty(t, h.shell.State().Subtitle)

	h.tick(2 * time.Second)
	assert.Equal(t, "second", h.shell.State().Subtitle)
}

func TestShell_EndedExitsPlayback(t *testing.T) {
	h := newHarness(t, nil)
	h.prober.info.Duration = time.Second
	require.NoError(t, h.c.Play(context.Background(), PlayRequest{Path: writeVideo(t, "")}))

	h.tick(500 * time.Millisecond)
	assert.True(t, h.c.Playing())
	h.tick(600 * time.Millisecond)
	assert.False(t, h.c.Playing())
	assert.Equal(t, 2, h.c.Events().Len())
}

func TestShell_PlayProbeFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.prober.err = errors.New("ffprobe failed")
	err := h.c.Play(context.Background(), PlayRequest{Path: "/nope.mp4"})
	require.Error(t, err)
	assert.False(t, h.c.Playing())
	assert.Empty(t, h.source.starts)

	assert.Error(t, h.c.Play(context.Background(), PlayRequest{}))
}

func TestShell_PlayerCommandsNeedVideo(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.c.Pause(), ErrNotPlaying)
	assert.ErrorIs(t, h.c.Resume(), ErrNotPlaying)
	assert.ErrorIs(t, h.c.SeekBy(5), ErrNotPlaying)
}

func TestShell_MenuPlaysChannelItem(t *testing.T) {
	h := newHarness(t, nil)
	path := writeVideo(t, "")
	h.c.catalog = &fakeCatalog{screens: []library.MenuScreen{
		channelScreens()[0],
		{Key: "c1", Header: "CARTOONS", Items: []library.MenuItem{
			{Label: "my tape", Action: "play", Video: path},
			{Label: "BACK", Action: "navigate", Target: "channels"},
		}},
	}}
	require.NoError(t, h.c.RefreshChannels(context.Background()))

	h.c.Key("Enter", false) // CHANNEL LIST
	h.c.Key("ArrowRight", false)
	require.Equal(t, "c1", h.c.Menu().Current().Key)
	h.c.Key("Enter", false)

	require.True(t, h.c.Playing())
	assert.Equal(t, "my tape", h.shell.State().Title)

	h.c.Key("ArrowRight", true)
	assert.InDelta(t, 10, h.c.Video().CurrentTime(), 1e-9)
	h.c.Key("ArrowLeft", false)
	assert.InDelta(t, 5, h.c.Video().CurrentTime(), 1e-9)
	assert.Equal(t, "c1", h.c.Menu().Current().Key, "arrows seek while playing")

	h.c.Key("Escape", false)
	h.c.Key("ArrowLeft", false)
	assert.Equal(t, PageChannels, h.c.Menu().Current().Key)
}

func TestShell_SKeyTogglesShader(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Key("s", false)
	assert.False(t, h.c.ShaderEnabled())
	assert.Equal(t, []bool{false}, h.prefs.saved)

	h.c.Menu().Navigate(PageOptions)
	assert.Equal(t, "SHADERS: OFF", h.c.Menu().Screen().Items[0])
	h.c.Key("Enter", false)
	assert.True(t, h.c.ShaderEnabled())
}

func TestShell_Resize(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.c.Resize(32, 18))
	assert.Equal(t, image.Rect(0, 0, 32, 18), h.c.capture.Canvas().Bounds())
	h.tick(time.Millisecond)
	assert.Equal(t, 32, h.shell.State().Width)
	assert.Equal(t, image.Rect(0, 0, 32, 18), h.c.Snapshot().Bounds())

	assert.ErrorIs(t, h.c.Resize(0, 18), ErrInvalidSize)
}

func TestShell_SetSubtitle(t *testing.T) {
	h := newHarness(t, nil)
	h.c.SetSubtitle("a <00:01.000>b", 0, 2)
	h.tick(time.Millisecond)
	assert.Equal(t, "a b", h.shell.State().Subtitle)
	h.c.ClearSubtitle()
	h.tick(time.Millisecond)
	assert.Empty(t, h.shell.State().Subtitle)
}

func TestShell_SnapshotWithoutShader(t *testing.T) {
	h := newHarness(t, nil)
	h.c.SetShaderEnabled(context.Background(), false)
	img := h.c.Snapshot()
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x18, B: 0xa8, A: 0xff}, img.RGBAAt(63, 35))
}

func TestShell_Do(t *testing.T) {
	h := newHarness(t, nil)
	boom := errors.New("boom")

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.shell.Do(context.Background(), func(c *Context) error {
			c.Menu().Down()
			return boom
		})
	}()

	var got error
	require.Eventually(t, func() bool {
		h.tick(time.Millisecond)
		select {
		case got = <-errCh:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, got, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.shell.Do(ctx, func(*Context) error { return nil }), context.Canceled)

	h.shell.Close()
	assert.ErrorIs(t, h.shell.Do(context.Background(), func(*Context) error { return nil }), ErrClosed)
}

func TestShell_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, err := New(context.Background(), Options{Width: 16, Height: 9, FPS: 60}, Deps{
		Source: &fakeSource{},
		Prober: &fakeProber{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	handled, err := s.Key(ctx, "ArrowDown", false)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Eventually(t, func() bool { return s.State().Selected == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-runErr)
	<-s.Done()
	assert.False(t, s.State().ShaderReady)
}

func TestShell_DoPublishesStateBeforeReturning(t *testing.T) {
	tests := []struct {
		name  string
		run   func(ctx context.Context, s *Shell) error
		check func(t *testing.T, st State)
	}{
		{
			name: "shader off",
			run:  func(ctx context.Context, s *Shell) error { return s.SetShaderEnabled(ctx, false) },
			check: func(t *testing.T, st State) {
				assert.False(t, st.ShaderEnabled)
			},
		},
		{
			name: "subtitle cue",
			run:  func(ctx context.Context, s *Shell) error { return s.SetSubtitle(ctx, "HELLO", 0, 10) },
			check: func(t *testing.T, st State) {
				assert.Equal(t, "HELLO", st.Subtitle)
			},
		},
		{
			name: "menu key",
			run: func(ctx context.Context, s *Shell) error {
				_, err := s.Key(ctx, "ArrowDown", false)
				return err
			},
			check: func(t *testing.T, st State) {
				assert.Equal(t, 1, st.Selected)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			s, err := New(context.Background(), Options{Width: 64, Height: 36, FPS: 30}, Deps{
				Source: &fakeSource{frame: image.NewRGBA(image.Rect(0, 0, 64, 36))},
				Prober: &fakeProber{},
				Prefs:  &fakePrefs{},
				Clock:  clock.Now,
			})
			require.NoError(t, err)
			t.Cleanup(s.Close)

			// Not started: no frame callback runs, so only Do can publish.
			errc := make(chan error, 1)
			go func() { errc <- tt.run(context.Background(), s) }()
			var runErr error
			require.Eventually(t, func() bool {
				s.Tick(clock.Advance(time.Millisecond))
				select {
				case runErr = <-errc:
					return true
				default:
					return false
				}
			}, time.Second, time.Millisecond)
			require.NoError(t, runErr)
			tt.check(t, s.State())
		})
	}
}

type fakeAudioStream struct{ done chan struct{} }

func (a *fakeAudioStream) Done() <-chan struct{} { return a.done }
func (a *fakeAudioStream) Close() error          { return nil }

type fakeAudioSink struct{ starts []playback.AudioOptions }

func (s *fakeAudioSink) Start(_ context.Context, opts playback.AudioOptions) (playback.AudioStream, error) {
	s.starts = append(s.starts, opts)
	return &fakeAudioStream{done: make(chan struct{})}, nil
}

func TestShell_PlayPrefersSeparateAudioTrack(t *testing.T) {
	tests := []struct {
		name    string
		audio   bool
		wantURL func(video, audio string) string
	}{
		{"separate track", true, func(_, audio string) string { return "http://127.0.0.1:8088/vhs" + filepath.ToSlash(audio) }},
		{"video track fallback", false, func(video, _ string) string { return "http://127.0.0.1:8088/vhs" + filepath.ToSlash(video) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeAudioSink{}
			h := newHarness(t, func(d *Deps) { d.Audio = sink })
			video := writeVideo(t, "")
			audio := strings.TrimSuffix(video, ".mp4") + "_audio.mp4"
			req := PlayRequest{Path: video}
			if tt.audio {
				req.Audio = audio
			}

			require.NoError(t, h.c.Play(context.Background(), req))
			require.Len(t, sink.starts, 1)
			assert.Equal(t, tt.wantURL(video, audio), sink.starts[0].URL)
		})
	}
}

func TestShell_VolumeKeysWhilePlaying(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		key   string
		shift bool
		want  float64
	}{
		{"up", 0.5, "ArrowUp", false, 0.55},
		{"up with shift", 0.5, "ArrowUp", true, 0.6},
		{"down", 0.5, "ArrowDown", false, 0.45},
		{"down with shift", 0.5, "ArrowDown", true, 0.4},
		{"capped at full", 1, "ArrowUp", true, 1},
		{"floored at mute", 0.02, "ArrowDown", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(d *Deps) { d.Audio = &fakeAudioSink{} })
			require.NoError(t, h.c.Play(context.Background(), PlayRequest{Path: writeVideo(t, "")}))
			h.c.SetVolume(tt.start)

			e := h.c.Key(tt.key, tt.shift)
			assert.True(t, e.DefaultPrevented())
			assert.InDelta(t, tt.want, h.shell.State().Volume, 1e-9)
			assert.Equal(t, PageMain, h.c.Menu().Current().Key)
			assert.Equal(t, 0, h.c.Menu().Selected(), "menu stays put while playing")
		})
	}
}

func TestShell_ArrowsNavigateWhenIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.c.SetVolume(0.5)
	h.c.Key("ArrowDown", false)
	assert.Equal(t, 1, h.c.Menu().Selected())
	assert.InDelta(t, 0.5, h.shell.State().Volume, 1e-9)
}

func TestShell_Fullscreen(t *testing.T) {
	tests := []struct {
		name   string
		toggle func(t *testing.T, h *harness)
	}{
		{"f key", func(_ *testing.T, h *harness) { h.c.Key("f", false) }},
		{"options entry", func(_ *testing.T, h *harness) {
			h.c.Menu().Navigate(PageOptions)
			h.c.Key("ArrowDown", false)
			h.c.Key("Enter", false)
		}},
		{"command", func(t *testing.T, h *harness) {
			errc := make(chan error, 1)
			go func() { errc <- h.shell.SetFullscreen(context.Background(), true) }()
			require.Eventually(t, func() bool {
				h.tick(time.Millisecond)
				return len(errc) == 1
			}, time.Second, time.Millisecond)
			require.NoError(t, <-errc)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			require.False(t, h.shell.State().Fullscreen)

			tt.toggle(t, h)

			assert.True(t, h.c.Fullscreen())
			assert.True(t, h.shell.State().Fullscreen)
			assert.Equal(t, "FULLSCREEN: ON", h.c.Menu().pages[PageOptions].Entries[1].Label)
		})
	}
}

func TestShell_PlayerLogsCarrySession(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf, Level: "debug"})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	h := newHarness(t, nil)
	path := writeVideo(t, "")
	require.NoError(t, h.c.Play(context.Background(), PlayRequest{Path: path, Title: "My Tape"}))
	h.c.Exit()

	entries := map[string]map[string]any{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if ev, _ := entry[log.FieldEvent].(string); strings.HasPrefix(ev, "player.") {
			entries[ev] = entry
		}
	}
	require.Contains(t, entries, "player.play")
	require.Contains(t, entries, "player.exit")
	for ev, entry := range entries {
		assert.Equal(t, "player", entry[log.FieldComponent], ev)
		assert.Equal(t, path, entry[log.FieldPath], ev)
		assert.Equal(t, "My Tape", entry["title"], ev)
	}
	session, _ := entries["player.play"]["session"].(string)
	assert.Len(t, session, 36)
	assert.Equal(t, session, entries["player.exit"]["session"], "one session per playback")
}
