// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nostalgia/internal/library"
)

func TestChannelsCLI_PrintsTableAndExports(t *testing.T) {
	dataDir := t.TempDir()
	root := filepath.Join(dataDir, "channels")
	writeChannel(t, root, "cartoons", "aladdin.mp4", "aladdin.vtt", "aladdin_audio.mp4")
	writeChannel(t, root, "news", "evening.mp4")
	path := writeConfig(t, "dataDir: "+dataDir+"\n")
	export := filepath.Join(t.TempDir(), "menu.json")

	var stdout, stderr bytes.Buffer
	code := channelsCLI(context.Background(), []string{"--config", path, "--export", export}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "CARTOONS")
	assert.Contains(t, out, "NEWS")
	assert.Contains(t, out, "2 channels, 2 items")
	assert.Contains(t, out, "menu written to")

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	var menu []library.MenuScreen
	require.NoError(t, json.Unmarshal(data, &menu))
	assert.NotEmpty(t, menu)
}

func TestChannelsCLI_MissingRoot(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, "dataDir: "+dataDir+"\nlibrary:\n  root: "+filepath.Join(dataDir, "gone")+"\n")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, channelsCLI(context.Background(), []string{"--config", path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Scan of")
}

func TestChannelsCLI_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, channelsCLI(context.Background(), []string{"--bogus"}, &stdout, &stderr))
}
