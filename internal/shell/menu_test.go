// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nostalgia/internal/library"
)

func channelScreens() []library.MenuScreen {
	return []library.MenuScreen{
		{Key: "channels", Header: library.FormatHeader("channels"), Items: []library.MenuItem{
			{Label: "CARTOONS", Action: "navigate", Target: "c1"},
			{Label: "BACK", Action: "navigate", Target: "main"},
		}},
		{Key: "c1", Header: library.FormatHeader("cartoons"), Items: []library.MenuItem{
			{Label: "aladdin", Action: "play", Video: "/lib/cartoons/aladdin.mp4", Subtitles: "/lib/cartoons/aladdin.vtt"},
			{Label: "BACK", Action: "navigate", Target: "channels"},
		}},
	}
}

func TestMenu_Navigation(t *testing.T) {
	m := NewMenu("1.2.3")
	assert.Equal(t, PageMain, m.Current().Key)
	assert.Equal(t, "--------- MENU ---------", m.Current().Header)

	m.Up()
	assert.Equal(t, 2, m.Selected(), "wraps to the bottom")
	m.Down()
	assert.Equal(t, 0, m.Selected())

	m.Down()
	e := m.Activate()
	assert.Equal(t, ActionNavigate, e.Action)
	assert.Equal(t, PageOptions, m.Current().Key)
	assert.Equal(t, 0, m.Selected())

	require.True(t, m.Back())
	assert.Equal(t, PageMain, m.Current().Key)
	assert.Equal(t, 1, m.Selected(), "selection restored")
	assert.False(t, m.Back())
}

func TestMenu_InfoShowsVersion(t *testing.T) {
	m := NewMenu("1.2.3")
	require.True(t, m.Navigate(PageInfo))
	assert.Equal(t, "VERSION: 1.2.3", m.Current().Entries[1].Label)
	assert.False(t, m.Navigate("missing"))
}

func TestMenu_Channels(t *testing.T) {
	m := NewMenu("dev")
	require.True(t, m.Navigate(PageChannels))
	assert.Equal(t, []string{"BACK"}, m.Screen().Items)

	m.SetChannels(channelScreens())
	assert.Equal(t, []string{"CARTOONS", "BACK"}, m.Screen().Items)

	m.Activate()
	require.Equal(t, "c1", m.Current().Key)
	e := m.Activate()
	assert.Equal(t, ActionPlay, e.Action)
	assert.Equal(t, "/lib/cartoons/aladdin.mp4", e.Item.Video)
	assert.Equal(t, "/lib/cartoons/aladdin.vtt", e.Item.Subtitles)

	require.True(t, m.Back())
	assert.Equal(t, PageChannels, m.Current().Key)
	require.True(t, m.Back())
	assert.Equal(t, PageMain, m.Current().Key)
}

func TestMenu_RescanDropsVanishedPage(t *testing.T) {
	m := NewMenu("dev")
	m.SetChannels(channelScreens())
	require.True(t, m.Navigate("c1"))

	m.SetChannels(channelScreens()[:1])
	assert.Equal(t, PageChannels, m.Current().Key)
	assert.Equal(t, 0, m.Selected())
	assert.NotNil(t, m.pages[PageMain], "main page survives a rescan")
}

func TestMenu_OptionLabels(t *testing.T) {
	tests := []struct {
		name  string
		set   func(m *Menu, on bool)
		index int
		off   string
		on    string
	}{
		{"shader", (*Menu).SetShaderLabel, 0, "SHADERS: OFF", "SHADERS: ON"},
		{"fullscreen", (*Menu).SetFullscreenLabel, 1, "FULLSCREEN: OFF", "FULLSCREEN: ON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMenu("dev")
			require.True(t, m.Navigate(PageOptions))
			tt.set(m, false)
			assert.Equal(t, tt.off, m.Screen().Items[tt.index])
			tt.set(m, true)
			assert.Equal(t, tt.on, m.Screen().Items[tt.index])
			assert.Equal(t, "BACK", m.Screen().Items[2])
		})
	}
}

func TestMenu_Screen(t *testing.T) {
	s := NewMenu("9").Screen()
	assert.Equal(t, "--------- MENU ---------", s.Title)
	assert.Equal(t, []string{"CHANNEL LIST", "OPTIONS", "INFO"}, s.Items)
	assert.Equal(t, 0, s.Selected)
	assert.Equal(t, "NOSTALGIA 9", s.Footer)
}
