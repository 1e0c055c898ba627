// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrNotWebVTT is returned when the input does not start with a WEBVTT header.
var ErrNotWebVTT = errors.New("subtitle: missing WEBVTT header")

// Cue is one timed block of a subtitle track, in seconds.
type Cue struct {
	ID    string
	Start float64
	End   float64
	Text  string
}

// ActiveAt reports whether the cue is showing at t.
func (c Cue) ActiveAt(t float64) bool {
	return c.Start <= t && t < c.End
}

// Timeline parses the cue text into word spans.
func (c Cue) Timeline() [][]WordSpan {
	return Parse(c.Text, c.Start, c.End)
}

// Track is an ordered, immutable list of cues.
type Track struct {
	cues []Cue
}

// NewTrack builds a track from cues, ordering them by start time.
func NewTrack(cues []Cue) *Track {
	sorted := append([]Cue(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &Track{cues: sorted}
}

// Cues returns a copy of the track's cues.
func (t *Track) Cues() []Cue {
	if t == nil {
		return nil
	}
	return append([]Cue(nil), t.cues...)
}

// Len returns the number of cues.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.cues)
}

// ActiveAt returns the cues showing at time at, in track order.
func (t *Track) ActiveAt(at float64) []Cue {
	if t == nil {
		return nil
	}
	var active []Cue
	for _, c := range t.cues {
		if c.Start > at {
			break
		}
		if c.ActiveAt(at) {
			active = append(active, c)
		}
	}
	return active
}

// First returns the first cue active at time at.
func (t *Track) First(at float64) (Cue, bool) {
	active := t.ActiveAt(at)
	if len(active) == 0 {
		return Cue{}, false
	}
	return active[0], true
}

// LoadVTT reads a WebVTT file from disk.
func LoadVTT(path string) (*Track, error) {
	f, err := os.Open(path) // #nosec G304 -- subtitle path comes from the library scan
	if err != nil {
		return nil, fmt.Errorf("open subtitles: %w", err)
	}
	defer func() { _ = f.Close() }()

	track, err := ParseVTT(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return track, nil
}

// ParseVTT reads WebVTT cue blocks. NOTE, STYLE and REGION blocks are
// skipped, and so are blocks whose timing line does not parse.
func ParseVTT(r io.Reader) (*Track, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotWebVTT
	}
	header := strings.TrimPrefix(strings.TrimRight(sc.Text(), "\r"), "\ufeff")
	if header != "WEBVTT" && !strings.HasPrefix(header, "WEBVTT ") && !strings.HasPrefix(header, "WEBVTT\t") {
		return nil, ErrNotWebVTT
	}

	var (
		cues  []Cue
		block []string
	)
	flush := func() {
		if cue, ok := parseBlock(block); ok {
			cues = append(cues, cue)
		}
		block = block[:0]
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vtt: %w", err)
	}
	flush()
	return NewTrack(cues), nil
}

func parseBlock(lines []string) (Cue, bool) {
	if len(lines) == 0 {
		return Cue{}, false
	}
	switch first := lines[0]; {
	case first == "NOTE" || strings.HasPrefix(first, "NOTE ") || strings.HasPrefix(first, "NOTE\t"):
		return Cue{}, false
	case first == "STYLE" || first == "REGION":
		return Cue{}, false
	}

	var cue Cue
	if !strings.Contains(lines[0], "-->") {
		cue.ID = lines[0]
		lines = lines[1:]
		if len(lines) == 0 {
			return Cue{}, false
		}
	}
	start, end, ok := parseTiming(lines[0])
	if !ok {
		return Cue{}, false
	}
	cue.Start, cue.End = start, end
	cue.Text = strings.Join(lines[1:], "\n")
	return cue, true
}

// parseTiming reads "start --> end [settings]".
func parseTiming(line string) (float64, float64, bool) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, false
	}
	start, ok := parseTimestamp(strings.TrimSpace(left))
	if !ok {
		return 0, 0, false
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, false
	}
	end, ok := parseTimestamp(fields[0])
	if !ok || end < start {
		return 0, 0, false
	}
	return start, end, true
}
