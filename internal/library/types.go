// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package library indexes the channel directory: every sub-directory of the
// library root is a channel, every video inside it a programme.
package library

import (
	"errors"
	"time"
)

var (
	// ErrChannelNotFound is returned for unknown channel ids.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrScanRunning is returned when a scan is already in progress.
	ErrScanRunning = errors.New("library scan already running")
	// ErrNoRoot is returned when no library root is configured.
	ErrNoRoot = errors.New("library root not configured")
)

// Channel is one directory of the library.
type Channel struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Dir       string    `json:"dir"` // relative to the root
	ItemCount int       `json:"item_count"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Item is one playable programme. Paths are absolute so they can be handed
// to the vhs protocol directly.
type Item struct {
	ChannelID string `json:"channel_id"`
	Label     string `json:"label"`
	Video     string `json:"video"`
	Audio     string `json:"audio,omitempty"`
	Subtitles string `json:"subtitles,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
}

// Snapshot is the result of walking the root.
type Snapshot struct {
	Channels []Channel
	Items    []Item
	Skipped  int // files that did not form a playable group
	Errors   int
}

// TotalBytes sums the video sizes.
func (s Snapshot) TotalBytes() int64 {
	var n int64
	for _, it := range s.Items {
		n += it.SizeBytes
	}
	return n
}

// ScanResult describes one completed scan.
type ScanResult struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Channels int       `json:"channels"`
	Items    int       `json:"items"`
	Skipped  int       `json:"skipped"`
	Errors   int       `json:"errors"`
}
