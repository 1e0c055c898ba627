// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ManuGH/nostalgia/internal/log"
)

const audioSuffix = "_audio"

var upper = cases.Upper(language.Und)

// group collects the files sharing a base name.
type group struct {
	video, audio, subtitles string
	size                    int64
}

// baseName strips the extension and the audio suffix.
func baseName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.TrimSuffix(base, audioSuffix)
}

// ChannelID derives a stable, URL-safe id from a channel's relative directory.
func ChannelID(relDir string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(relDir)))
	return hex.EncodeToString(sum[:6])
}

// ChannelLabel is the menu label of a channel directory.
func ChannelLabel(dir string) string {
	return upper.String(filepath.Base(dir))
}

// Scan walks root. Files are grouped by directory and base name: name.mp4 is
// the video, name_audio.mp4 the audio track and name.vtt the subtitles. Only
// groups with a video become items; files directly in root are ignored.
// Symlinks that resolve outside root are skipped.
func Scan(ctx context.Context, root string) (Snapshot, error) {
	var snap Snapshot
	if root == "" {
		return snap, ErrNoRoot
	}
	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return snap, fmt.Errorf("resolve root path: %w", err)
	}
	rootResolved = filepath.Clean(rootResolved)

	groups := map[string]map[string]*group{} // rel dir -> base -> files
	err = filepath.WalkDir(rootResolved, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			snap.Errors++
			logScanError("walk", walkErr, path)
			if d != nil && d.IsDir() && path != rootResolved {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		relDir, err := filepath.Rel(rootResolved, filepath.Dir(path))
		if err != nil || relDir == "." {
			snap.Skipped++
			return nil
		}

		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			snap.Skipped++
			logScanError("symlink", err, path)
			return nil
		}
		if rel, err := filepath.Rel(rootResolved, resolved); err != nil || strings.HasPrefix(rel, "..") {
			snap.Errors++
			logScanError("confinement", fmt.Errorf("path escape: %s", rel), path)
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".mp4" && ext != ".vtt" {
			snap.Skipped++
			return nil
		}

		dirGroups, ok := groups[relDir]
		if !ok {
			dirGroups = map[string]*group{}
			groups[relDir] = dirGroups
		}
		base := baseName(name)
		g, ok := dirGroups[base]
		if !ok {
			g = &group{}
			dirGroups[base] = g
		}

		switch {
		case ext == ".vtt":
			g.subtitles = path
		case strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), audioSuffix):
			g.audio = path
		default:
			g.video = path
			if info, err := os.Stat(resolved); err == nil {
				g.size = info.Size()
			} else {
				snap.Errors++
				logScanError("stat", err, path)
			}
		}
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("walk library: %w", err)
	}

	now := time.Now().UTC()
	for relDir, dirGroups := range groups {
		ch := Channel{
			ID:        ChannelID(relDir),
			Label:     ChannelLabel(relDir),
			Dir:       filepath.ToSlash(relDir),
			ScannedAt: now,
		}
		for base, g := range dirGroups {
			if g.video == "" {
				snap.Skipped++
				continue
			}
			snap.Items = append(snap.Items, Item{
				ChannelID: ch.ID,
				Label:     base,
				Video:     g.video,
				Audio:     g.audio,
				Subtitles: g.subtitles,
				SizeBytes: g.size,
			})
			ch.ItemCount++
		}
		if ch.ItemCount > 0 {
			snap.Channels = append(snap.Channels, ch)
		}
	}

	sort.Slice(snap.Channels, func(i, j int) bool {
		if snap.Channels[i].Label != snap.Channels[j].Label {
			return snap.Channels[i].Label < snap.Channels[j].Label
		}
		return snap.Channels[i].Dir < snap.Channels[j].Dir
	})
	sort.Slice(snap.Items, func(i, j int) bool {
		if snap.Items[i].ChannelID != snap.Items[j].ChannelID {
			return snap.Items[i].ChannelID < snap.Items[j].ChannelID
		}
		return snap.Items[i].Label < snap.Items[j].Label
	})
	return snap, nil
}

func logScanError(phase string, err error, path string) {
	logger := log.WithComponent("library")
	logger.Warn().
		Err(err).
		Str(log.FieldEvent, "library.scan_error").
		Str("phase", phase).
		Str(log.FieldPath, path).
		Msg("library scan error")
}
