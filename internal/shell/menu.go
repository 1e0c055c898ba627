// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package shell

import (
	"github.com/ManuGH/nostalgia/internal/library"
	"github.com/ManuGH/nostalgia/internal/render"
)

// Menu page keys.
const (
	PageMain     = "main"
	PageChannels = "channels"
	PageOptions  = "options"
	PageInfo     = "info"
)

// MenuAction is what activating an entry does.
type MenuAction string

const (
	ActionNone         MenuAction = "none"
	ActionNavigate     MenuAction = "navigate"
	ActionToggleShader MenuAction = "toggle_shader"
	ActionFullscreen   MenuAction = "toggle_fullscreen"
	ActionPlay         MenuAction = "play"
)

// MenuEntry is one selectable row.
type MenuEntry struct {
	Label  string
	Action MenuAction
	Target string       // page key for ActionNavigate
	Item   library.Item // for ActionPlay
}

// MenuPage is one screen of entries.
type MenuPage struct {
	Key     string
	Header  string
	Entries []MenuEntry
}

// Menu is the idle screen navigation state.
type Menu struct {
	pages    map[string]*MenuPage
	parents  map[string]string
	current  string
	selected int
	history  map[string]int
	footer   string
}

// NewMenu builds the static pages. Channels are filled by SetChannels.
func NewMenu(version string) *Menu {
	m := &Menu{
		pages:   map[string]*MenuPage{},
		parents: map[string]string{},
		current: PageMain,
		history: map[string]int{},
		footer:  "NOSTALGIA " + version,
	}
	m.add(&MenuPage{Key: PageMain, Header: library.FormatHeader("menu"), Entries: []MenuEntry{
		{Label: "CHANNEL LIST", Action: ActionNavigate, Target: PageChannels},
		{Label: "OPTIONS", Action: ActionNavigate, Target: PageOptions},
		{Label: "INFO", Action: ActionNavigate, Target: PageInfo},
	}})
	m.add(&MenuPage{Key: PageOptions, Header: library.FormatHeader("options"), Entries: []MenuEntry{
		{Label: shaderLabel(true), Action: ActionToggleShader},
		{Label: fullscreenLabel(false), Action: ActionFullscreen},
		{Label: "BACK", Action: ActionNavigate, Target: PageMain},
	}})
	m.add(&MenuPage{Key: PageInfo, Header: library.FormatHeader("info"), Entries: []MenuEntry{
		{Label: "NOSTALGIA PLAYER", Action: ActionNone},
		{Label: "VERSION: " + version, Action: ActionNone},
		{Label: "BACK", Action: ActionNavigate, Target: PageMain},
	}})
	m.SetChannels(nil)
	return m
}

func shaderLabel(enabled bool) string {
	if enabled {
		return "SHADERS: ON"
	}
	return "SHADERS: OFF"
}

func fullscreenLabel(on bool) string {
	if on {
		return "FULLSCREEN: ON"
	}
	return "FULLSCREEN: OFF"
}

func (m *Menu) add(p *MenuPage) {
	m.pages[p.Key] = p
	for _, e := range p.Entries {
		if e.Action == ActionNavigate && e.Target != "" && e.Target != PageMain {
			if _, ok := m.parents[e.Target]; !ok {
				m.parents[e.Target] = p.Key
			}
		}
	}
}

// SetChannels replaces the channel pages with screens built by the library.
// The first screen is the channel index. If the current page vanished the
// menu falls back to the channel index.
func (m *Menu) SetChannels(screens []library.MenuScreen) {
	for key, parent := range m.parents {
		if parent == PageChannels {
			delete(m.pages, key)
			delete(m.parents, key)
		}
	}
	if len(screens) == 0 {
		screens = []library.MenuScreen{{
			Key:    PageChannels,
			Header: library.FormatHeader("channels"),
			Items:  []library.MenuItem{{Label: "BACK", Action: "navigate", Target: PageMain}},
		}}
	}
	for _, s := range screens {
		p := &MenuPage{Key: s.Key, Header: s.Header}
		for _, it := range s.Items {
			e := MenuEntry{Label: it.Label, Action: ActionNone, Target: it.Target}
			switch it.Action {
			case "navigate":
				e.Action = ActionNavigate
			case "play":
				e.Action = ActionPlay
				e.Item = library.Item{ChannelID: s.Key, Label: it.Label, Video: it.Video, Audio: it.Audio, Subtitles: it.Subtitles}
			}
			p.Entries = append(p.Entries, e)
		}
		m.add(p)
	}
	if _, ok := m.pages[m.current]; !ok {
		m.current = PageChannels
		m.selected = 0
	}
	m.selected = min(m.selected, len(m.pages[m.current].Entries)-1)
}

// SetShaderLabel updates the options entry.
func (m *Menu) SetShaderLabel(enabled bool) {
	m.setOptionLabel(ActionToggleShader, shaderLabel(enabled))
}

// SetFullscreenLabel updates the options entry.
func (m *Menu) SetFullscreenLabel(on bool) {
	m.setOptionLabel(ActionFullscreen, fullscreenLabel(on))
}

func (m *Menu) setOptionLabel(action MenuAction, label string) {
	p := m.pages[PageOptions]
	for i := range p.Entries {
		if p.Entries[i].Action == action {
			p.Entries[i].Label = label
		}
	}
}

// Current returns the page on screen.
func (m *Menu) Current() *MenuPage { return m.pages[m.current] }

// Selected returns the highlighted index.
func (m *Menu) Selected() int { return m.selected }

// Up moves the highlight, wrapping at the top.
func (m *Menu) Up() {
	n := len(m.Current().Entries)
	m.selected = (m.selected - 1 + n) % n
}

// Down moves the highlight, wrapping at the bottom.
func (m *Menu) Down() {
	m.selected = (m.selected + 1) % len(m.Current().Entries)
}

// Navigate opens page key, restoring its last highlight.
func (m *Menu) Navigate(key string) bool {
	if _, ok := m.pages[key]; !ok {
		return false
	}
	m.history[m.current] = m.selected
	m.current = key
	m.selected = min(m.history[key], len(m.pages[key].Entries)-1)
	return true
}

// Back returns to the parent page. It reports false on the main page.
func (m *Menu) Back() bool {
	if m.current == PageMain {
		return false
	}
	parent, ok := m.parents[m.current]
	if !ok {
		parent = PageMain
	}
	return m.Navigate(parent)
}

// Activate performs navigation entries and returns the highlighted entry so
// the caller can handle the rest.
func (m *Menu) Activate() MenuEntry {
	e := m.Current().Entries[m.selected]
	if e.Action == ActionNavigate {
		m.Navigate(e.Target)
	}
	return e
}

// Screen renders the current page for the idle screen.
func (m *Menu) Screen() render.Screen {
	p := m.Current()
	items := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		items[i] = e.Label
	}
	return render.Screen{Title: p.Header, Items: items, Selected: m.selected, Footer: m.footer}
}
