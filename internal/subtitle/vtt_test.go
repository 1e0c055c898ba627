// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVTT = "\ufeffWEBVTT - karaoke\r\n" +
	"\r\n" +
	"NOTE this block is ignored\r\n" +
	"\r\n" +
	"STYLE\r\n" +
	"::cue { color: white }\r\n" +
	"\r\n" +
	"intro\r\n" +
	"00:00:00.500 --> 00:00:02.000 align:center\r\n" +
	"<00:00.500>Hello <00:01.000>there\r\n" +
	"\r\n" +
	"00:03.000 --> 00:05.000\r\n" +
	"second line one\r\n" +
	"second line two\r\n" +
	"\r\n" +
	"broken\r\n" +
	"00:06.000 -> 00:07.000\r\n" +
	"skipped\r\n"

func TestParseVTT(t *testing.T) {
	track, err := ParseVTT(strings.NewReader(sampleVTT))
	require.NoError(t, err)

	want := []Cue{
		{ID: "intro", Start: 0.5, End: 2, Text: "<00:00.500>Hello <00:01.000>there"},
		{Start: 3, End: 5, Text: "second line one\nsecond line two"},
	}
	if diff := cmp.Diff(want, track.Cues()); diff != "" {
		t.Errorf("cues mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVTT_MissingHeader(t *testing.T) {
	_, err := ParseVTT(strings.NewReader("00:01.000 --> 00:02.000\nhi\n"))
	assert.ErrorIs(t, err, ErrNotWebVTT)

	_, err = ParseVTT(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNotWebVTT)

	_, err = ParseVTT(strings.NewReader("WEBVTTX\n"))
	assert.ErrorIs(t, err, ErrNotWebVTT)
}

func TestTrack_ActiveAt(t *testing.T) {
	track := NewTrack([]Cue{
		{Start: 4, End: 6, Text: "late"},
		{Start: 0, End: 2, Text: "early"},
		{Start: 1, End: 5, Text: "long"},
	})

	assert.Empty(t, track.ActiveAt(-1))
	assert.Equal(t, []string{"early"}, texts(track.ActiveAt(0)))
	assert.Equal(t, []string{"early", "long"}, texts(track.ActiveAt(1.5)))
	assert.Equal(t, []string{"long"}, texts(track.ActiveAt(2)))
	assert.Equal(t, []string{"long", "late"}, texts(track.ActiveAt(4.5)))
	assert.Empty(t, track.ActiveAt(6))

	first, ok := track.First(1.5)
	require.True(t, ok)
	assert.Equal(t, "early", first.Text)

	_, ok = track.First(10)
	assert.False(t, ok)
}

func TestTrack_Nil(t *testing.T) {
	var track *Track
	assert.Zero(t, track.Len())
	assert.Nil(t, track.Cues())
	_, ok := track.First(0)
	assert.False(t, ok)
}

func TestCue_Timeline(t *testing.T) {
	cue := Cue{Start: 0, End: 3, Text: "<00:01.000>Hello <00:02.000>world"}
	assert.Equal(t, [][]WordSpan{{
		{Text: "Hello", From: 1, To: 2},
		{Text: "world", From: 2, To: 3},
	}}, cue.Timeline())
}

func TestLoadVTT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.vtt")
	require.NoError(t, os.WriteFile(path, []byte(sampleVTT), 0o600))

	track, err := LoadVTT(path)
	require.NoError(t, err)
	assert.Equal(t, 2, track.Len())

	_, err = LoadVTT(filepath.Join(dir, "missing.vtt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func texts(cues []Cue) []string {
	out := make([]string, 0, len(cues))
	for _, c := range cues {
		out = append(out, c.Text)
	}
	return out
}
