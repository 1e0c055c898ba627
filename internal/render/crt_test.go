// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarpUV(t *testing.T) {
	_, _, ok := WarpUV(0.01, 0.5)
	assert.False(t, ok, "left padding")
	_, _, ok = WarpUV(0.5, 0.99)
	assert.False(t, ok, "bottom padding")

	wu, wv, ok := WarpUV(0.5, 0.5)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, wu, 1e-12)
	assert.InDelta(t, 0.5, wv, 1e-12)

	// Off-centre points are pushed outwards.
	wu, wv, ok = WarpUV(0.9, 0.9)
	assert.True(t, ok)
	inner := (0.9 - CRTPadding) / (1 - 2*CRTPadding)
	assert.Greater(t, wu, inner)
	assert.Greater(t, wv, inner)
}

func TestInsideScreen(t *testing.T) {
	assert.True(t, InsideScreen(0.5, 0.5))
	assert.True(t, InsideScreen(0.5, 0.01))
	assert.False(t, InsideScreen(0, 0), "rounded corner")
	assert.False(t, InsideScreen(1.01, 0.5))
	assert.False(t, InsideScreen(0.5, -0.01))
}

func TestScanlineDarkening(t *testing.T) {
	assert.InDelta(t, 0.125, ScanlineDarkening(0.5, math.Pi, 0, 0), 1e-12)
	assert.InDelta(t, 0, ScanlineDarkening(0, 100, 0, 0), 1e-12)
	assert.InDelta(t, 0, ScanlineDarkening(0, 100, 5, 0), 1e-12, "no roll keeps scanlines still")
	assert.InDelta(t, 0.125, ScanlineDarkening(0, 100, math.Pi/2, 1), 1e-12)

	for v := 0.0; v <= 1; v += 0.01 {
		d := ScanlineDarkening(v, 720, 3, 2)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, 0.125)
	}
}

func TestCRTKernel(t *testing.T) {
	white := solidSampler{1, 1, 1, 1}
	red := solidSampler{1, 0, 0, 1}

	u := NewUniforms()
	u.Set2f(UniformResolution, 640, 480)
	frag := &Fragment{uniforms: &u, samplers: map[string]Sampler{UniformChannel0: white}}

	frag.UV = [2]float64{0.005, 0.5}
	assert.Equal(t, [4]float64{0, 0, 0, 1}, crtKernel(frag), "padding is black")

	frag.UV = [2]float64{0.5, 0.5}
	c := crtKernel(frag)
	assert.GreaterOrEqual(t, c[0], 0.875)
	assert.Equal(t, c[0], c[1])
	assert.Equal(t, 1.0, c[3])

	frag.samplers[UniformSubtitleChannel] = red
	c = crtKernel(frag)
	assert.GreaterOrEqual(t, c[0], 0.875)
	assert.Zero(t, c[1], "opaque subtitle replaces the picture")
}

func TestCRTSourcesCompileOnSoftwareDevice(t *testing.T) {
	d := NewSoftwareDevice(8, 8)
	vs, err := d.CompileShader(VertexShader, CRTVertexSource)
	assert.NoError(t, err)
	fs, err := d.CompileShader(FragmentShader, CRTFragmentSource)
	assert.NoError(t, err)
	_, err = d.LinkProgram(vs, fs)
	assert.NoError(t, err)
}

type solidSampler [4]float64

func (s solidSampler) Sample(float64, float64) [4]float64 { return s }
