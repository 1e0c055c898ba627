// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMediaPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"TripleSlash", "vhs:///home/me/tapes/a.mp4", "/home/me/tapes/a.mp4"},
		{"MissingLeadingSlash", "vhs://home/me/tapes/a.mp4", "/home/me/tapes/a.mp4"},
		{"PercentEncoded", "vhs:///home/me/My%20Tapes/a%23b.mp4", "/home/me/My Tapes/a#b.mp4"},
		{"QueryAndFragmentDropped", "vhs:///tmp/a.mp4?t=10#frag", "/tmp/a.mp4"},
		{"DotSegmentsCleaned", "vhs:///tmp/x/../a.mp4", "/tmp/a.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveMediaPath(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMediaPath_Errors(t *testing.T) {
	_, err := ResolveMediaPath("file:///tmp/a.mp4")
	require.ErrorIs(t, err, ErrInvalidScheme)

	_, err = ResolveMediaPath("vhs:///tmp/%zz.mp4")
	require.ErrorIs(t, err, ErrInvalidPath)

	_, err = ResolveMediaPath("vhs://")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestMediaURL_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "My Tapes", "a#1 100%.mp4")
	got, err := ResolveMediaPath(MediaURL(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestMediaHTTPURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	assert.Equal(t, "http://127.0.0.1:8088/vhs/home/me/My%20Tapes/a.mp4",
		MediaHTTPURL("http://127.0.0.1:8088/", "/home/me/My Tapes/a.mp4"))
}
