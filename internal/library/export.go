// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/renameio/v2"
)

const headerWidth = 24

// MenuScreen is one page of the exported channel menu.
type MenuScreen struct {
	Key    string     `json:"key"`
	Header string     `json:"header"`
	Items  []MenuItem `json:"items"`
}

// MenuItem is one row of a menu page.
type MenuItem struct {
	Label     string `json:"label"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Video     string `json:"video,omitempty"`
	Audio     string `json:"audio,omitempty"`
	Subtitles string `json:"subtitles,omitempty"`
}

// FormatHeader centres an upper-cased title in a 24 column dash rule,
// e.g. "--------- MENU ---------".
func FormatHeader(title string) string {
	title = upper.String(title)
	pad := headerWidth - 2 - utf8.RuneCountInString(title)
	if pad < 2 {
		return title
	}
	left := pad / 2
	return strings.Repeat("-", left) + " " + title + " " + strings.Repeat("-", pad-left)
}

// Menu builds the channel menu pages. BACK rows are added here; they are
// navigation and never stored.
func (s *Service) Menu(ctx context.Context) ([]MenuScreen, error) {
	channels, err := s.store.Channels(ctx)
	if err != nil {
		return nil, err
	}

	index := MenuScreen{Key: "channels", Header: FormatHeader("channels")}
	pages := make([]MenuScreen, 0, len(channels)+1)
	for _, ch := range channels {
		index.Items = append(index.Items, MenuItem{Label: ch.Label, Action: "navigate", Target: ch.ID})

		items, err := s.store.Items(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		page := MenuScreen{Key: ch.ID, Header: FormatHeader(ch.Label)}
		for _, it := range items {
			page.Items = append(page.Items, MenuItem{
				Label:     it.Label,
				Action:    "play",
				Video:     it.Video,
				Audio:     it.Audio,
				Subtitles: it.Subtitles,
			})
		}
		page.Items = append(page.Items, MenuItem{Label: "BACK", Action: "navigate", Target: "channels"})
		pages = append(pages, page)
	}
	index.Items = append(index.Items, MenuItem{Label: "BACK", Action: "navigate", Target: "main"})
	return append([]MenuScreen{index}, pages...), nil
}

// Export writes the channel menu to path as JSON, atomically.
func (s *Service) Export(ctx context.Context, path string) error {
	menu, err := s.Menu(ctx)
	if err != nil {
		return fmt.Errorf("build menu: %w", err)
	}
	data, err := json.MarshalIndent(menu, "", "  ")
	if err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
