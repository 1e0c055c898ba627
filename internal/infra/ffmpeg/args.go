// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ManuGH/nostalgia/internal/playback"
)

// decodeArgs builds a realtime decode to raw RGBA frames on stdout.
func decodeArgs(opts playback.StartOptions) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-re",
	}
	if opts.Offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(opts.Offset.Seconds(), 'f', 3, 64))
	}
	args = append(args,
		"-i", opts.URL,
		"-an", "-sn",
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d", strconv.FormatFloat(opts.FPS, 'f', -1, 64), opts.Size.X, opts.Size.Y),
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"pipe:1",
	)
	return args
}

// audioArgs builds a windowless ffplay run of the sound track only.
func audioArgs(opts playback.AudioOptions) []string {
	volume := int(math.Round(min(max(opts.Volume, 0), 1) * 100))
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-nodisp", "-autoexit",
		"-vn", "-sn",
		"-volume", strconv.Itoa(volume),
	}
	if opts.Offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(opts.Offset.Seconds(), 'f', 3, 64))
	}
	return append(args, opts.URL)
}

func probeArgs(url string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		url,
	}
}
