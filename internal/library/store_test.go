// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "library.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot() Snapshot {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return Snapshot{
		Channels: []Channel{
			{ID: "c1", Label: "CARTOONS", Dir: "cartoons", ItemCount: 2, ScannedAt: now},
			{ID: "n1", Label: "NEWS", Dir: "news", ItemCount: 1, ScannedAt: now},
		},
		Items: []Item{
			{ChannelID: "c1", Label: "bambi", Video: "/lib/cartoons/bambi.mp4", SizeBytes: 10},
			{ChannelID: "c1", Label: "aladdin", Video: "/lib/cartoons/aladdin.mp4", Subtitles: "/lib/cartoons/aladdin.vtt"},
			{ChannelID: "n1", Label: "evening", Video: "/lib/news/evening.mp4"},
		},
	}
}

func TestStore_ReplaceAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Replace(ctx, sampleSnapshot()))

	channels, err := s.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "CARTOONS", channels[0].Label)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), channels[0].ScannedAt)

	items, err := s.Items(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "aladdin", items[0].Label)
	assert.Equal(t, "/lib/cartoons/aladdin.vtt", items[0].Subtitles)
	assert.Equal(t, int64(10), items[1].SizeBytes)

	// a second replace drops what is gone
	snap := sampleSnapshot()
	snap.Channels = snap.Channels[1:]
	snap.Items = snap.Items[2:]
	require.NoError(t, s.Replace(ctx, snap))

	channels, err = s.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	_, err = s.Items(ctx, "c1")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestStore_ChannelNotFound(t *testing.T) {
	_, err := newTestStore(t).Channel(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestStore_ShadersPreference(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	enabled, err := s.ShadersEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled, "missing preference means enabled")

	require.NoError(t, s.SetShadersEnabled(ctx, false))
	enabled, err = s.ShadersEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetPreference(ctx, PrefShadersEnabled, "garbage"))
	enabled, err = s.ShadersEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestStore_Verify(t *testing.T) {
	assert.NoError(t, newTestStore(t).Verify(context.Background()))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.sqlite")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetShadersEnabled(ctx, false))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	enabled, err := s.ShadersEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}
