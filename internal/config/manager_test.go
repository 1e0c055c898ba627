// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "config.yaml")

	want := Defaults()
	want.DataDir = dir
	want.Library.Root = filepath.Join(dir, "tapes")
	want.FFmpeg.FFprobeBin = "ffprobe"
	want.FFmpeg.FFplayBin = "ffplay"
	want.Audio.Volume = 0.4
	want.Protocol.StrictRanges = true
	want.Render.ScanRoll = 0.75
	want.Version = "v9"

	require.NoError(t, NewManager(path).Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := NewLoader(path, "v9").Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch after save/load (-want +got):\n%s", diff)
	}
}

func TestEncode_UsesFileSchemaKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Defaults()))

	out := buf.String()
	assert.Contains(t, out, "strictRanges: false")
	assert.Contains(t, out, "subtitleMode: texture")
	assert.Contains(t, out, "127.0.0.1:8088")
	assert.NotContains(t, out, "version")
}
