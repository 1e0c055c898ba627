// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nostalgia/internal/playback"
)

const sampleProbe = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac", "duration": "61.0"},
    {"codec_type": "video", "codec_name": "h264", "width": 640, "height": 480,
     "avg_frame_rate": "30000/1001", "duration": "60.500000"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "61.000000"}
}`

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(sampleProbe))
	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 480, info.Height)
	assert.InDelta(t, 29.97, info.FPS, 0.01)
	assert.Equal(t, 60500*time.Millisecond, info.Duration)
}

func TestParseProbeFallsBackToFormatDuration(t *testing.T) {
	out := `{"streams":[{"codec_type":"video","codec_name":"vp9","width":2,"height":2,"avg_frame_rate":"25"}],
	"format":{"format_name":"webm","duration":"12.25"}}`
	info, err := parseProbe([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 12250*time.Millisecond, info.Duration)
	assert.Equal(t, 25.0, info.FPS)
}

func TestParseProbeErrors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want error
	}{
		{name: "audio only", out: `{"streams":[{"codec_type":"audio","codec_name":"aac"}],"format":{"format_name":"mp4"}}`, want: ErrNoVideoStream},
		{name: "video without codec", out: `{"streams":[{"codec_type":"video"}],"format":{"format_name":"mp4"}}`, want: ErrNoVideoStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProbe([]byte(tt.out))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := parseProbe([]byte(`{"streams":[]}`))
	assert.ErrorContains(t, err, "no format")

	_, err = parseProbe([]byte("not json"))
	assert.ErrorContains(t, err, "json decode")
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 24.0, parseRate("24/1"))
	assert.Equal(t, 0.0, parseRate(""))
	assert.Equal(t, 50.0, parseRate("50"))
}

func TestProberImplementsInterface(t *testing.T) {
	var p playback.Prober = NewProber("")
	assert.NotNil(t, p)
}
