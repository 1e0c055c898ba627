// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package subtitle turns WebVTT cues into karaoke-style timed word spans.
package subtitle

import (
	"strconv"
	"strings"
)

// WordSpan is one timed run of text. A word is active on [From, To).
type WordSpan struct {
	Text string
	From float64
	To   float64
}

// WordState classifies a span against the playback clock.
type WordState int

const (
	Pending WordState = iota
	Active
	Spoken
)

func (s WordState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Spoken:
		return "spoken"
	default:
		return "unknown"
	}
}

// StateAt returns the state of w at playback time t (seconds).
func (w WordSpan) StateAt(t float64) WordState {
	switch {
	case t < w.From:
		return Pending
	case t < w.To:
		return Active
	default:
		return Spoken
	}
}

// Progress returns how far t has swept through w, in [0,1].
func (w WordSpan) Progress(t float64) float64 {
	if w.To <= w.From {
		if t >= w.To {
			return 1
		}
		return 0
	}
	p := (t - w.From) / (w.To - w.From)
	return min(max(p, 0), 1)
}

// Parse splits cue text into lines of timed words.
//
// Inline markers <MM:SS.mmm> or <HH:MM:SS.mmm> start a word that lasts until
// the next marker on the same line, or until cueEnd for the last one. Text
// before the first marker runs from cueStart to the first marker. A line
// without markers is a single span over the whole cue. Styling tags such as
// <i> or <c.yellow> are dropped from the text. A malformed timestamp tag or
// markers going backwards degrade the line to a single untimed span.
// Empty words and empty lines are omitted.
func Parse(text string, cueStart, cueEnd float64) [][]WordSpan {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out [][]WordSpan
	for _, line := range strings.Split(text, "\n") {
		if spans := parseLine(line, cueStart, cueEnd); len(spans) > 0 {
			out = append(out, spans)
		}
	}
	return out
}

type marker struct {
	at   float64
	text string
}

func parseLine(line string, cueStart, cueEnd float64) []WordSpan {
	leading, markers, ok := scanLine(line)
	if !ok {
		return wholeLine(stripTags(line), cueStart, cueEnd)
	}
	if len(markers) == 0 {
		return wholeLine(leading, cueStart, cueEnd)
	}

	spans := make([]WordSpan, 0, len(markers)+1)
	if lead := strings.TrimSpace(leading); lead != "" {
		spans = append(spans, WordSpan{Text: lead, From: cueStart, To: markers[0].at})
	}
	for i, m := range markers {
		word := strings.TrimSpace(m.text)
		if word == "" {
			continue
		}
		to := cueEnd
		if i < len(markers)-1 {
			to = markers[i+1].at
		}
		spans = append(spans, WordSpan{Text: word, From: m.at, To: to})
	}
	return spans
}

func wholeLine(text string, cueStart, cueEnd float64) []WordSpan {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []WordSpan{{Text: text, From: cueStart, To: cueEnd}}
}

// scanLine walks the tags of a line. It returns the text before the first
// timestamp marker, the markers with the text that follows each, and false
// on an anomaly.
func scanLine(line string) (string, []marker, bool) {
	var (
		leading strings.Builder
		markers []marker
		cur     = &leading
	)
	for {
		open := strings.IndexByte(line, '<')
		if open < 0 {
			cur.WriteString(line)
			break
		}
		closing := strings.IndexByte(line[open:], '>')
		if closing < 0 {
			cur.WriteString(line)
			break
		}
		cur.WriteString(line[:open])
		tag := line[open+1 : open+closing]
		line = line[open+closing+1:]

		if tag == "" || tag[0] < '0' || tag[0] > '9' {
			// Styling tag, not a word boundary.
			continue
		}
		at, ok := parseTimestamp(tag)
		if !ok {
			return "", nil, false
		}
		if n := len(markers); n > 0 && at < markers[n-1].at {
			return "", nil, false
		}
		if n := len(markers); n > 0 {
			markers[n-1].text = cur.String()
		}
		markers = append(markers, marker{at: at})
		cur = &strings.Builder{}
	}
	if n := len(markers); n > 0 {
		markers[n-1].text = cur.String()
	}
	return leading.String(), markers, true
}

// parseTimestamp accepts MM:SS.mmm and HH:MM:SS.mmm (hours may exceed two digits).
func parseTimestamp(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	secs, frac, ok := strings.Cut(parts[len(parts)-1], ".")
	if !ok || len(secs) != 2 || len(frac) != 3 || !digits(secs) || !digits(frac) {
		return 0, false
	}
	mins := parts[len(parts)-2]
	if len(mins) != 2 || !digits(mins) {
		return 0, false
	}

	s64, _ := strconv.Atoi(secs)
	ms, _ := strconv.Atoi(frac)
	m64, _ := strconv.Atoi(mins)
	if s64 > 59 || m64 > 59 {
		return 0, false
	}
	total := float64(m64*60+s64) + float64(ms)/1000

	if len(parts) == 3 {
		hours := parts[0]
		if len(hours) < 2 || !digits(hours) {
			return 0, false
		}
		h, err := strconv.Atoi(hours)
		if err != nil {
			return 0, false
		}
		total += float64(h * 3600)
	}
	return total, true
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func stripTags(line string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(line, '<')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(line[open:], '>')
		if closing < 0 {
			break
		}
		b.WriteString(line[:open])
		line = line[open+closing+1:]
	}
	b.WriteString(line)
	return b.String()
}
