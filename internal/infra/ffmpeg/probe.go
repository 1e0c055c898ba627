// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/playback"
)

var _ playback.Prober = (*Prober)(nil)

// ErrNoVideoStream is returned when the probed media has no decodable video.
var ErrNoVideoStream = errors.New("no playable video stream")

const maxStderr = 4096

// Prober runs ffprobe.
type Prober struct {
	bin string
}

// NewProber creates a prober using the given ffprobe binary.
func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{bin: bin}
}

// Probe reports duration, geometry and frame rate. A non-zero exit is
// tolerated when ffprobe still printed a usable description.
func (p *Prober) Probe(ctx context.Context, url string) (playback.MediaInfo, error) {
	// #nosec G204 -- binary comes from config, arguments are built here
	cmd := exec.CommandContext(ctx, p.bin, probeArgs(url)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, runErr := cmd.Output()
	info, parseErr := parseProbe(out)
	if parseErr == nil {
		if runErr != nil {
			log.L().Warn().
				Err(runErr).
				Str(log.FieldEvent, "ffprobe.nonzero_exit").
				Str(log.FieldURL, url).
				Str("stderr", truncate(stderr.String())).
				Msg("ffprobe non-zero exit but output accepted")
		}
		return info, nil
	}
	if runErr != nil {
		return playback.MediaInfo{}, fmt.Errorf("ffprobe failed: %w (stderr: %s)", runErr, truncate(stderr.String()))
	}
	return playback.MediaInfo{}, parseErr
}

func truncate(s string) string {
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}

type probeData struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Duration     string `json:"duration,omitempty"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func parseProbe(out []byte) (playback.MediaInfo, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return playback.MediaInfo{}, fmt.Errorf("json decode: %w", err)
	}
	if data.Format.FormatName == "" {
		return playback.MediaInfo{}, fmt.Errorf("ffprobe returned no format")
	}

	var info playback.MediaInfo
	found := false
	for _, s := range data.Streams {
		if s.CodecType != "video" || s.CodecName == "" {
			continue
		}
		found = true
		info.Width, info.Height = s.Width, s.Height
		info.FPS = parseRate(s.AvgFrameRate)
		info.Duration = parseSeconds(s.Duration)
		break
	}
	if !found {
		return playback.MediaInfo{}, ErrNoVideoStream
	}
	if info.Duration == 0 {
		info.Duration = parseSeconds(data.Format.Duration)
	}
	return info, nil
}

// parseRate reads ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
