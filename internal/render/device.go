// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package render

import (
	"errors"
	"image"
)

var (
	// ErrShaderCompile is returned when a shader stage fails to compile.
	ErrShaderCompile = errors.New("shader compile failed")
	// ErrShaderLink is returned when a program fails to link.
	ErrShaderLink = errors.New("shader link failed")
	// ErrUnknownHandle is returned for handles the device never issued or already released.
	ErrUnknownHandle = errors.New("unknown device handle")
)

// Handle names a device object (shader, program or texture).
type Handle uint32

// ShaderKind selects a pipeline stage.
type ShaderKind int

const (
	VertexShader ShaderKind = iota
	FragmentShader
)

func (k ShaderKind) String() string {
	if k == VertexShader {
		return "vertex"
	}
	return "fragment"
}

// Primitive is the topology passed to DrawArrays.
type Primitive int

const (
	TriangleStrip Primitive = iota
	Triangles
)

// Uniforms holds the values bound to a program for one draw.
// Sampler uniforms carry texture unit numbers.
type Uniforms struct {
	Floats   map[string]float64
	Vec2s    map[string][2]float64
	Samplers map[string]int
}

// NewUniforms returns an empty uniform set.
func NewUniforms() Uniforms {
	return Uniforms{
		Floats:   make(map[string]float64),
		Vec2s:    make(map[string][2]float64),
		Samplers: make(map[string]int),
	}
}

// Set1f sets a float uniform.
func (u Uniforms) Set1f(name string, v float64) { u.Floats[name] = v }

// Set2f sets a vec2 uniform.
func (u Uniforms) Set2f(name string, x, y float64) { u.Vec2s[name] = [2]float64{x, y} }

// Set1i binds a sampler uniform to a texture unit.
func (u Uniforms) Set1i(name string, unit int) { u.Samplers[name] = unit }

// Device is the subset of a GPU API the compositor needs. Implementations
// are not safe for concurrent use; the render goroutine owns the device.
type Device interface {
	CompileShader(kind ShaderKind, source string) (Handle, error)
	LinkProgram(vertex, fragment Handle) (Handle, error)
	DeleteShader(h Handle)
	DeleteProgram(h Handle)

	CreateTexture() Handle
	// UploadTexture copies img into the texture, replacing its size and contents.
	UploadTexture(tex Handle, img *image.RGBA) error
	BindTexture(unit int, tex Handle) error
	DeleteTexture(h Handle)

	Viewport(width, height int)
	Clear(r, g, b, a float64)
	DrawArrays(program Handle, mode Primitive, first, count int, u Uniforms) error

	// Framebuffer returns the current colour buffer. It stays valid until the next Viewport call.
	Framebuffer() *image.RGBA
}
