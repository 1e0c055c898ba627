// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ManuGH/nostalgia/internal/subtitle"
)

// Subtitle colours.
var (
	SubtitleAmber   = color.RGBA{R: 0xf1, G: 0xa9, B: 0x00, A: 0xff}
	SubtitleWhite   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	SubtitleOutline = color.RGBA{A: 0xff}
)

const lineSpacing = 1.2

// outlineOffsets approximate a 3px round stroke around each glyph.
var outlineOffsets = []image.Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
	{-2, 0}, {2, 0}, {0, -2}, {0, 2},
}

// FontSize returns the subtitle font size in pixels for a viewport.
func FontSize(width, height int) float64 {
	return math.Min(0.0275*float64(width), 0.08*float64(height))
}

// WordBox is the laid-out position of one word.
type WordBox struct {
	Span  subtitle.WordSpan
	X     fixed.Int26_6
	Width fixed.Int26_6
}

// LineBox is the laid-out position of one subtitle line.
type LineBox struct {
	Words    []WordBox
	X        fixed.Int26_6
	Width    fixed.Int26_6
	Bottom   float64
	Baseline fixed.Int26_6
}

// Layout is the geometry of a timeline on a given viewport.
type Layout struct {
	FontSize float64
	Lines    []LineBox
}

// Rasterizer draws karaoke subtitles with word-level highlighting.
type Rasterizer struct {
	font  *opentype.Font
	faces map[int]font.Face
}

// NewRasterizer loads the embedded monospace face.
func NewRasterizer() (*Rasterizer, error) {
	f, err := opentype.Parse(gomonobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse subtitle font: %w", err)
	}
	return &Rasterizer{font: f, faces: make(map[int]font.Face)}, nil
}

// face returns a cached face, keyed by quarter pixels.
func (r *Rasterizer) face(size float64) (font.Face, error) {
	key := int(math.Round(size * 4))
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("subtitle face %.2fpx: %w", size, err)
	}
	r.faces[key] = f
	return f, nil
}

// Layout centres each line horizontally and stacks lines upwards so the last
// line's bottom sits one font size above the bottom edge.
func (r *Rasterizer) Layout(width, height int, lines [][]subtitle.WordSpan) (Layout, error) {
	size := FontSize(width, height)
	out := Layout{FontSize: size}
	if len(lines) == 0 || size <= 0 {
		return out, nil
	}
	face, err := r.face(size)
	if err != nil {
		return out, err
	}
	descent := face.Metrics().Descent
	space := font.MeasureString(face, " ")

	// Lines stack around an anchor one font size above the bottom edge.
	mid := float64(len(lines)-1) / 2
	for i, line := range lines {
		texts := make([]string, len(line))
		for j, w := range line {
			texts[j] = w.Text
		}
		lineWidth := font.MeasureString(face, strings.TrimSpace(strings.Join(texts, " ")))

		bottom := float64(height) - size + (float64(i)-mid)*size*lineSpacing
		box := LineBox{
			X:        fixed.I(width)/2 - lineWidth/2,
			Width:    lineWidth,
			Bottom:   bottom,
			Baseline: fixed.Int26_6(bottom*64) - descent,
		}
		x := box.X
		for _, w := range line {
			ww := font.MeasureString(face, w.Text)
			box.Words = append(box.Words, WordBox{Span: w, X: x, Width: ww})
			x += ww + space
		}
		out.Lines = append(out.Lines, box)
	}
	return out, nil
}

// Draw renders lines onto dst at playback time t. Spoken words are amber,
// pending words white, and the active word gets an amber sweep proportional
// to its progress.
func (r *Rasterizer) Draw(dst *image.RGBA, lines [][]subtitle.WordSpan, t float64) error {
	b := dst.Bounds()
	layout, err := r.Layout(b.Dx(), b.Dy(), lines)
	if err != nil || len(layout.Lines) == 0 {
		return err
	}
	face, err := r.face(layout.FontSize)
	if err != nil {
		return err
	}
	m := face.Metrics()

	for _, line := range layout.Lines {
		for _, w := range line.Words {
			dot := fixed.Point26_6{X: w.X + fixed.I(b.Min.X), Y: line.Baseline + fixed.I(b.Min.Y)}
			drawOutlined(dst, face, dot, w.Span.Text, wordColor(w.Span, t))

			if w.Span.StateAt(t) != subtitle.Active {
				continue
			}
			sweep := int(math.Round(float64(w.Width) / 64 * w.Span.Progress(t)))
			if sweep <= 0 {
				continue
			}
			x0 := dot.X.Floor()
			rect := image.Rect(x0, (dot.Y-m.Ascent).Floor()-2, x0+sweep, (dot.Y+m.Descent).Ceil()+2)
			clip := dst.SubImage(rect).(*image.RGBA)
			fill(clip, face, dot, w.Span.Text, SubtitleAmber)
		}
	}
	return nil
}

func wordColor(w subtitle.WordSpan, t float64) color.RGBA {
	if w.StateAt(t) == subtitle.Spoken {
		return SubtitleAmber
	}
	return SubtitleWhite
}

func drawOutlined(dst *image.RGBA, face font.Face, dot fixed.Point26_6, text string, c color.RGBA) {
	for _, off := range outlineOffsets {
		fill(dst, face, dot.Add(fixed.P(off.X, off.Y)), text, SubtitleOutline)
	}
	fill(dst, face, dot, text, c)
}

func fill(dst *image.RGBA, face font.Face, dot fixed.Point26_6, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  dot,
	}
	d.DrawString(text)
}

// Close releases cached faces.
func (r *Rasterizer) Close() error {
	for k, f := range r.faces {
		_ = f.Close()
		delete(r.faces, k)
	}
	return nil
}
