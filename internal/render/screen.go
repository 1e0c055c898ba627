// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Low-resolution surface the on-screen display is drawn on before upscaling.
const (
	screenWidth  = 320
	screenHeight = 180
	screenMargin = 16
	screenLineH  = 14
)

var screenBlue = color.RGBA{R: 0x10, G: 0x18, B: 0xa8, A: 0xff}

// Screen is the on-screen display shown when no video is playing.
type Screen struct {
	Title    string
	Items    []string
	Selected int // index into Items; out of range selects nothing
	Footer   string
}

// DrawScreen renders s into dst, replacing its contents.
func DrawScreen(dst *image.RGBA, s Screen) {
	low := image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight))
	draw.Draw(low, low.Bounds(), &image.Uniform{C: screenBlue}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawLine(low, face, screenMargin, screenMargin+face.Ascent, strings.ToUpper(s.Title), SubtitleWhite)

	maxItems := (screenHeight - 2*screenMargin - 2*screenLineH) / screenLineH
	first := 0
	if s.Selected >= maxItems {
		first = s.Selected - maxItems + 1
	}
	y := screenMargin + face.Ascent + 2*screenLineH
	for i := first; i < len(s.Items) && i < first+maxItems; i++ {
		prefix, c := "  ", SubtitleWhite
		if i == s.Selected {
			prefix, c = "> ", SubtitleAmber
		}
		drawLine(low, face, screenMargin, y, prefix+s.Items[i], c)
		y += screenLineH
	}

	if s.Footer != "" {
		drawLine(low, face, screenMargin, screenHeight-screenMargin, s.Footer, SubtitleWhite)
	}

	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), low, low.Bounds(), xdraw.Src, nil)
}

func drawLine(dst draw.Image, face font.Face, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
