// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import "math"

// CRT effect constants.
const (
	CRTWarp         = 0.25  // screen curvature
	CRTScan         = 0.50  // darkness between scanlines
	CRTCornerRadius = 0.03  // corner rounding
	CRTPadding      = 0.015 // black border around the screen
)

// Uniform names shared by the CRT program and the compositor.
const (
	UniformResolution      = "iResolution"
	UniformTime            = "iTime"
	UniformScanRoll        = "iScanRoll"
	UniformChannel0        = "iChannel0"
	UniformSubtitleChannel = "subtitleChannel"
)

// CRTVertexSource maps the clip-space quad to uv with v growing downwards.
const CRTVertexSource = `
attribute vec2 position;
varying vec2 vUv;
void main() {
  vUv = vec2(position.x * 0.5 + 0.5, 0.5 - position.y * 0.5);
  gl_Position = vec4(position, 0.0, 1.0);
}
`

// CRTFragmentSource is the single post-process pass.
const CRTFragmentSource = `
precision mediump float;
varying vec2 vUv;
uniform vec2 iResolution;
uniform float iTime;
uniform float iScanRoll;
uniform sampler2D iChannel0;
uniform sampler2D subtitleChannel;

void main() {
  float warp = 0.25;
  float scan = 0.50;
  float cornerRadius = 0.03;
  float padding = 0.015;

  vec2 uv = vUv;
  if (uv.x < padding || uv.x > 1.0 - padding || uv.y < padding || uv.y > 1.0 - padding) {
    gl_FragColor = vec4(0.0, 0.0, 0.0, 1.0);
    return;
  }
  uv = (uv - vec2(padding)) / (1.0 - 2.0 * padding);

  vec2 dc = abs(0.5 - uv);
  dc *= dc;

  vec2 warpedUV = uv;
  warpedUV.x -= 0.5; warpedUV.x *= 1.0 + (dc.y * (0.3 * warp)); warpedUV.x += 0.5;
  warpedUV.y -= 0.5; warpedUV.y *= 1.0 + (dc.x * (0.4 * warp)); warpedUV.y += 0.5;

  float warpedY = warpedUV.y * iResolution.y;
  float apply = abs(sin(warpedY + iTime * iScanRoll) * 0.25 * scan);

  vec3 color = texture2D(iChannel0, warpedUV).rgb;
  vec4 subtitleColor = texture2D(subtitleChannel, warpedUV);
  color = mix(color, subtitleColor.rgb, subtitleColor.a);

  vec2 fromCenter = abs(warpedUV - 0.5) * 2.0;
  float cornerDistance = length(max(fromCenter - vec2(1.0 - cornerRadius), 0.0)) / cornerRadius;

  if (warpedUV.x < 0.0 || warpedUV.x > 1.0 || warpedUV.y < 0.0 || warpedUV.y > 1.0 || cornerDistance > 1.0) {
    color = vec3(0.0);
    apply = 0.0;
  }

  gl_FragColor = vec4(mix(color, vec3(0.0), apply), 1.0);
}
`

func init() {
	RegisterKernel(CRTFragmentSource, crtKernel)
}

// WarpUV applies the padding mask and barrel distortion. ok is false inside the padding.
func WarpUV(u, v float64) (wu, wv float64, ok bool) {
	if u < CRTPadding || u > 1-CRTPadding || v < CRTPadding || v > 1-CRTPadding {
		return 0, 0, false
	}
	u = (u - CRTPadding) / (1 - 2*CRTPadding)
	v = (v - CRTPadding) / (1 - 2*CRTPadding)

	dcx, dcy := 0.5-u, 0.5-v
	dcx *= dcx
	dcy *= dcy

	wu = (u-0.5)*(1+dcy*0.3*CRTWarp) + 0.5
	wv = (v-0.5)*(1+dcx*0.4*CRTWarp) + 0.5
	return wu, wv, true
}

// ScanlineDarkening returns the black mix factor for a warped row.
func ScanlineDarkening(warpedV, height, t, roll float64) float64 {
	return math.Abs(math.Sin(warpedV*height+t*roll) * 0.25 * CRTScan)
}

// InsideScreen reports whether a warped coordinate lies on the rounded screen.
func InsideScreen(wu, wv float64) bool {
	if wu < 0 || wu > 1 || wv < 0 || wv > 1 {
		return false
	}
	fx := math.Max(math.Abs(wu-0.5)*2-(1-CRTCornerRadius), 0)
	fy := math.Max(math.Abs(wv-0.5)*2-(1-CRTCornerRadius), 0)
	return math.Hypot(fx, fy)/CRTCornerRadius <= 1
}

func crtKernel(f *Fragment) [4]float64 {
	wu, wv, ok := WarpUV(f.UV[0], f.UV[1])
	if !ok || !InsideScreen(wu, wv) {
		return [4]float64{0, 0, 0, 1}
	}

	res := f.Vec2(UniformResolution)
	apply := ScanlineDarkening(wv, res[1], f.Float(UniformTime), f.Float(UniformScanRoll))

	c := f.Texture(UniformChannel0).Sample(wu, wv)
	s := f.Texture(UniformSubtitleChannel).Sample(wu, wv)
	// Textures hold premultiplied alpha.
	var out [4]float64
	for i := 0; i < 3; i++ {
		mixed := c[i]*(1-s[3]) + s[i]
		out[i] = mixed * (1 - apply)
	}
	out[3] = 1
	return out
}
