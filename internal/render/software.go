// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"fmt"
	"image"
	"math"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Sampler reads a texture at normalised coordinates. Results are RGBA in [0,1].
type Sampler interface {
	Sample(u, v float64) [4]float64
}

// Fragment is the input of one fragment kernel invocation.
type Fragment struct {
	UV       [2]float64
	uniforms *Uniforms
	samplers map[string]Sampler
}

// Float returns a float uniform, or 0 when unset.
func (f *Fragment) Float(name string) float64 { return f.uniforms.Floats[name] }

// Vec2 returns a vec2 uniform, or the zero vector when unset.
func (f *Fragment) Vec2(name string) [2]float64 { return f.uniforms.Vec2s[name] }

// Texture returns the sampler bound to name. Unbound samplers read transparent black.
func (f *Fragment) Texture(name string) Sampler {
	if s, ok := f.samplers[name]; ok {
		return s
	}
	return emptySampler{}
}

// FragmentKernel is the native implementation of a fragment program.
type FragmentKernel func(f *Fragment) [4]float64

var (
	kernelsMu sync.RWMutex
	kernels   = map[string]FragmentKernel{}
)

// RegisterKernel binds a fragment shader source to its native implementation
// so the software device can link programs that use it.
func RegisterKernel(fragmentSource string, k FragmentKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[normalizeSource(fragmentSource)] = k
}

func lookupKernel(source string) (FragmentKernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := kernels[normalizeSource(source)]
	return k, ok
}

func normalizeSource(src string) string {
	return strings.Join(strings.Fields(src), " ")
}

var declRE = regexp.MustCompile(`(?m)^\s*(attribute|varying|uniform)\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*;`)

type softShader struct {
	kind     ShaderKind
	source   string
	varyings map[string]string
	uniforms map[string]string
}

type softProgram struct {
	kernel   FragmentKernel
	uniforms map[string]string
}

type softTexture struct {
	img *image.RGBA
}

// SoftwareDevice rasterises on the CPU. Fragment shading runs in parallel row bands.
type SoftwareDevice struct {
	next     Handle
	shaders  map[Handle]*softShader
	programs map[Handle]*softProgram
	textures map[Handle]*softTexture
	units    map[int]Handle
	fb       *image.RGBA
	bands    int
}

// NewSoftwareDevice creates a device with a width x height framebuffer.
func NewSoftwareDevice(width, height int) *SoftwareDevice {
	d := &SoftwareDevice{
		shaders:  make(map[Handle]*softShader),
		programs: make(map[Handle]*softProgram),
		textures: make(map[Handle]*softTexture),
		units:    make(map[int]Handle),
		bands:    runtime.GOMAXPROCS(0),
	}
	d.Viewport(width, height)
	return d
}

func (d *SoftwareDevice) alloc() Handle {
	d.next++
	return d.next
}

// CompileShader checks the source for the structure every stage needs and
// records its declarations. The info log is part of the returned error.
func (d *SoftwareDevice) CompileShader(kind ShaderKind, source string) (Handle, error) {
	if err := checkSource(kind, source); err != nil {
		return 0, fmt.Errorf("%w: %s shader: %v", ErrShaderCompile, kind, err)
	}
	sh := &softShader{
		kind:     kind,
		source:   source,
		varyings: make(map[string]string),
		uniforms: make(map[string]string),
	}
	for _, m := range declRE.FindAllStringSubmatch(source, -1) {
		switch m[1] {
		case "varying":
			sh.varyings[m[3]] = m[2]
		case "uniform":
			sh.uniforms[m[3]] = m[2]
		}
	}
	h := d.alloc()
	d.shaders[h] = sh
	return h, nil
}

func checkSource(kind ShaderKind, src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("empty source")
	}
	depth := 0
	line := 1
	for _, r := range src {
		switch r {
		case '\n':
			line++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("ERROR: 0:%d: unexpected '}'", line)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("ERROR: 0:%d: unexpected end of file", line)
	}
	if !strings.Contains(src, "void main()") {
		return fmt.Errorf("ERROR: missing main function")
	}
	out := "gl_Position"
	if kind == FragmentShader {
		out = "gl_FragColor"
	}
	if !strings.Contains(src, out) {
		return fmt.Errorf("ERROR: %s is never written", out)
	}
	return nil
}

// LinkProgram pairs a vertex and fragment shader. Every varying the fragment
// stage reads must be declared by the vertex stage with the same type, and
// the fragment source must have a registered kernel.
func (d *SoftwareDevice) LinkProgram(vertex, fragment Handle) (Handle, error) {
	vs, ok := d.shaders[vertex]
	if !ok || vs.kind != VertexShader {
		return 0, fmt.Errorf("%w: invalid vertex shader %d", ErrShaderLink, vertex)
	}
	fs, ok := d.shaders[fragment]
	if !ok || fs.kind != FragmentShader {
		return 0, fmt.Errorf("%w: invalid fragment shader %d", ErrShaderLink, fragment)
	}
	for name, typ := range fs.varyings {
		if vt, ok := vs.varyings[name]; !ok || vt != typ {
			return 0, fmt.Errorf("%w: varying %q not written by vertex stage", ErrShaderLink, name)
		}
	}
	for name, typ := range fs.uniforms {
		if vt, ok := vs.uniforms[name]; ok && vt != typ {
			return 0, fmt.Errorf("%w: uniform %q declared as %s and %s", ErrShaderLink, name, vt, typ)
		}
	}
	kernel, ok := lookupKernel(fs.source)
	if !ok {
		return 0, fmt.Errorf("%w: no native kernel for fragment program", ErrShaderLink)
	}

	uniforms := make(map[string]string, len(vs.uniforms)+len(fs.uniforms))
	for n, t := range vs.uniforms {
		uniforms[n] = t
	}
	for n, t := range fs.uniforms {
		uniforms[n] = t
	}
	h := d.alloc()
	d.programs[h] = &softProgram{kernel: kernel, uniforms: uniforms}
	return h, nil
}

func (d *SoftwareDevice) DeleteShader(h Handle)  { delete(d.shaders, h) }
func (d *SoftwareDevice) DeleteProgram(h Handle) { delete(d.programs, h) }

func (d *SoftwareDevice) CreateTexture() Handle {
	h := d.alloc()
	d.textures[h] = &softTexture{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
	return h
}

func (d *SoftwareDevice) UploadTexture(tex Handle, img *image.RGBA) error {
	t, ok := d.textures[tex]
	if !ok {
		return fmt.Errorf("upload texture %d: %w", tex, ErrUnknownHandle)
	}
	b := img.Bounds()
	if t.img.Bounds().Dx() != b.Dx() || t.img.Bounds().Dy() != b.Dy() {
		t.img = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(t.img.Pix[y*t.img.Stride:y*t.img.Stride+b.Dx()*4], src[:b.Dx()*4])
	}
	return nil
}

func (d *SoftwareDevice) BindTexture(unit int, tex Handle) error {
	if _, ok := d.textures[tex]; !ok {
		return fmt.Errorf("bind texture %d: %w", tex, ErrUnknownHandle)
	}
	d.units[unit] = tex
	return nil
}

func (d *SoftwareDevice) DeleteTexture(h Handle) {
	delete(d.textures, h)
	for unit, bound := range d.units {
		if bound == h {
			delete(d.units, unit)
		}
	}
}

func (d *SoftwareDevice) Viewport(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if d.fb != nil && d.fb.Bounds().Dx() == width && d.fb.Bounds().Dy() == height {
		return
	}
	d.fb = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (d *SoftwareDevice) Clear(r, g, b, a float64) {
	px := [4]uint8{toByte(r), toByte(g), toByte(b), toByte(a)}
	for i := 0; i < len(d.fb.Pix); i += 4 {
		copy(d.fb.Pix[i:i+4], px[:])
	}
}

func (d *SoftwareDevice) Framebuffer() *image.RGBA { return d.fb }

// DrawArrays supports the full-viewport quad: a 4-vertex triangle strip whose
// vertex stage maps clip space to uv with v growing downwards.
func (d *SoftwareDevice) DrawArrays(program Handle, mode Primitive, first, count int, u Uniforms) error {
	prog, ok := d.programs[program]
	if !ok {
		return fmt.Errorf("draw program %d: %w", program, ErrUnknownHandle)
	}
	if mode != TriangleStrip || first != 0 || count != 4 {
		return fmt.Errorf("draw: only a 4-vertex triangle strip quad is supported")
	}

	samplers := make(map[string]Sampler, len(u.Samplers))
	for name, unit := range u.Samplers {
		if prog.uniforms[name] != "sampler2D" {
			continue
		}
		if tex, ok := d.textures[d.units[unit]]; ok {
			samplers[name] = bilinear{img: tex.img}
		}
	}

	fb := d.fb
	w, h := fb.Bounds().Dx(), fb.Bounds().Dy()
	bands := min(max(d.bands, 1), h)
	rows := (h + bands - 1) / bands

	var g errgroup.Group
	for y0 := 0; y0 < h; y0 += rows {
		y1 := min(y0+rows, h)
		g.Go(func() error {
			frag := Fragment{uniforms: &u, samplers: samplers}
			for y := y0; y < y1; y++ {
				row := fb.Pix[y*fb.Stride:]
				frag.UV[1] = (float64(y) + 0.5) / float64(h)
				for x := 0; x < w; x++ {
					frag.UV[0] = (float64(x) + 0.5) / float64(w)
					c := prog.kernel(&frag)
					i := x * 4
					row[i], row[i+1], row[i+2], row[i+3] = toByte(c[0]), toByte(c[1]), toByte(c[2]), toByte(c[3])
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func toByte(v float64) uint8 {
	return uint8(math.Round(min(max(v, 0), 1) * 255))
}

type emptySampler struct{}

func (emptySampler) Sample(float64, float64) [4]float64 { return [4]float64{} }

// bilinear samples with linear filtering and clamp-to-edge wrapping.
type bilinear struct {
	img *image.RGBA
}

func (b bilinear) Sample(u, v float64) [4]float64 {
	w, h := b.img.Bounds().Dx(), b.img.Bounds().Dy()
	if w == 0 || h == 0 {
		return [4]float64{}
	}
	x := u*float64(w) - 0.5
	y := v*float64(h) - 0.5
	fx, fy := math.Floor(x), math.Floor(y)
	tx, ty := x-fx, y-fy
	x0, y0 := clampInt(int(fx), w), clampInt(int(fy), h)
	x1, y1 := clampInt(int(fx)+1, w), clampInt(int(fy)+1, h)

	var out [4]float64
	p00 := b.img.Pix[y0*b.img.Stride+x0*4:]
	p10 := b.img.Pix[y0*b.img.Stride+x1*4:]
	p01 := b.img.Pix[y1*b.img.Stride+x0*4:]
	p11 := b.img.Pix[y1*b.img.Stride+x1*4:]
	for c := 0; c < 4; c++ {
		top := float64(p00[c])*(1-tx) + float64(p10[c])*tx
		bottom := float64(p01[c])*(1-tx) + float64(p11[c])*tx
		out[c] = (top*(1-ty) + bottom*ty) / 255
	}
	return out
}

func clampInt(v, n int) int {
	return min(max(v, 0), n-1)
}
