// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrawScreen(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 640, 360))
	DrawScreen(dst, Screen{
		Title:    "channels",
		Items:    []string{"CARTOONS", "MOVIES"},
		Selected: 1,
		Footer:   "PLAY",
	})

	assert.Equal(t, screenBlue, dst.RGBAAt(0, 0))
	assert.Equal(t, screenBlue, dst.RGBAAt(639, 359))
	assert.NotEmpty(t, pixelsMatching(dst, SubtitleAmber), "selected item is highlighted")
	assert.NotEmpty(t, pixelsMatching(dst, SubtitleWhite))
}

func TestDrawScreen_NoSelection(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 320, 180))
	DrawScreen(dst, Screen{Title: "no signal", Items: []string{"A"}, Selected: -1})

	assert.Empty(t, pixelsMatching(dst, SubtitleAmber))
	assert.NotEmpty(t, pixelsMatching(dst, SubtitleWhite))
}

func TestDrawScreen_ScrollsToSelection(t *testing.T) {
	items := make([]string, 40)
	for i := range items {
		items[i] = "ITEM"
	}
	dst := image.NewRGBA(image.Rect(0, 0, 320, 180))
	DrawScreen(dst, Screen{Items: items, Selected: 39})

	assert.NotEmpty(t, pixelsMatching(dst, SubtitleAmber), "selection stays visible")
}
