// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) under a temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestScan_GroupsByBaseName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"cartoons/aladdin.mp4":       "vvvv",
		"cartoons/aladdin_audio.mp4": "aa",
		"cartoons/aladdin.vtt":       "WEBVTT\n",
		"cartoons/bambi.mp4":         "vv",
		"cartoons/orphan.vtt":        "WEBVTT\n",
		"cartoons/notes.txt":         "x",
		"news/evening.mp4":           "v",
		"loose.mp4":                  "v",
	})
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	snap, err := Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, snap.Channels, 2)
	assert.Equal(t, "CARTOONS", snap.Channels[0].Label)
	assert.Equal(t, 2, snap.Channels[0].ItemCount)
	assert.Equal(t, "NEWS", snap.Channels[1].Label)

	require.Len(t, snap.Items, 3)
	var aladdin Item
	for _, it := range snap.Items {
		if it.Label == "aladdin" {
			aladdin = it
		}
	}
	assert.Equal(t, filepath.Join(resolved, "cartoons", "aladdin.mp4"), aladdin.Video)
	assert.Equal(t, filepath.Join(resolved, "cartoons", "aladdin_audio.mp4"), aladdin.Audio)
	assert.Equal(t, filepath.Join(resolved, "cartoons", "aladdin.vtt"), aladdin.Subtitles)
	assert.Equal(t, int64(4), aladdin.SizeBytes)
	assert.Equal(t, ChannelID("cartoons"), aladdin.ChannelID)

	// loose.mp4, notes.txt and the orphan subtitle group
	assert.Equal(t, 3, snap.Skipped)
	assert.Equal(t, int64(7), snap.TotalBytes())
}

func TestScan_EmptyChannelOmitted(t *testing.T) {
	root := writeTree(t, map[string]string{"music/track_audio.mp4": "a"})
	snap, err := Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, snap.Channels)
	assert.Empty(t, snap.Items)
}

func TestScan_Errors(t *testing.T) {
	_, err := Scan(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoRoot)

	_, err = Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "resolve root path")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Scan(ctx, writeTree(t, map[string]string{"a/b.mp4": "v"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_SkipsEscapingSymlink(t *testing.T) {
	outside := writeTree(t, map[string]string{"secret.mp4": "v"})
	root := writeTree(t, map[string]string{"tv/show.mp4": "v"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.mp4"), filepath.Join(root, "tv", "secret.mp4")))

	snap, err := Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "show", snap.Items[0].Label)
	assert.Equal(t, 1, snap.Errors)
}

func TestChannelLabelAndID(t *testing.T) {
	assert.Equal(t, "МУЛЬТФИЛЬМЫ", ChannelLabel("мультфильмы"))
	assert.Equal(t, "KIDS", ChannelLabel("tv/kids"))
	assert.Equal(t, ChannelID("a/b"), ChannelID("a/b"))
	assert.NotEqual(t, ChannelID("a"), ChannelID("b"))
	assert.Len(t, ChannelID("x"), 12)
}
