package gpu

// BufferID identifies a buffer owned by a Context. The zero value is never a valid buffer.
type BufferID uint32

// ProgramID identifies a compiled program owned by a Context. The zero value is never a valid program.
type ProgramID uint32

// TextureID identifies a texture owned by a Context. The zero value is never a valid texture.
type TextureID uint32

// RenderTargetID identifies an off-screen render target. DefaultRenderTarget addresses the
// context's own framebuffer (the window surface or the software device's frame).
type RenderTargetID uint32

// DefaultRenderTarget is the context's presentable framebuffer.
const DefaultRenderTarget RenderTargetID = 0

// BufferTarget names the binding point a buffer is attached to while it is filled.
type BufferTarget int

const (
	// BufferTargetArray binds per-vertex and per-instance attribute data.
	BufferTargetArray BufferTarget = iota

	// BufferTargetElementArray binds triangle index data.
	BufferTargetElementArray

	// BufferTargetUniform binds uniform block data.
	BufferTargetUniform
)

// String returns the binding point's name.
func (t BufferTarget) String() string {
	switch t {
	case BufferTargetArray:
		return "array"
	case BufferTargetElementArray:
		return "element_array"
	case BufferTargetUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// Usage is the hint passed along with every buffer upload.
type Usage int

const (
	// UsageStatic marks data written once and drawn many times.
	UsageStatic Usage = iota

	// UsageDynamic marks data rewritten repeatedly.
	UsageDynamic
)

// String returns the hint's name.
func (u Usage) String() string {
	if u == UsageDynamic {
		return "dynamic"
	}
	return "static"
}

// TextureFormat is the texel format of a texture.
type TextureFormat int

const (
	// TextureFormatRGBA8 stores 8-bit normalized colour channels.
	TextureFormatRGBA8 TextureFormat = iota

	// TextureFormatRGBA16F stores half-float channels. Used for G-buffer attachments.
	TextureFormatRGBA16F

	// TextureFormatDepth32F stores a single float depth value.
	TextureFormatDepth32F
)

// IsDepth reports whether the format holds depth values.
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth32F
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is a debug name.
	Label string

	// Width and Height are the texture dimensions in texels.
	Width, Height uint32

	// Format is the texel format.
	Format TextureFormat

	// Data is optional initial RGBA8 pixel data (Width*Height*4 bytes). Only valid for TextureFormatRGBA8.
	Data []byte

	// RenderAttachment marks the texture as usable in a render target.
	RenderAttachment bool

	// Repeat selects wrapping texture addressing instead of clamping when sampled.
	Repeat bool
}

// DepthTest selects the depth comparison applied to incoming fragments.
type DepthTest int

const (
	// DepthTestAlways disables depth rejection.
	DepthTestAlways DepthTest = iota

	// DepthTestLess passes fragments closer than the stored depth.
	DepthTestLess

	// DepthTestLessEqual passes fragments closer than or equal to the stored depth.
	DepthTestLessEqual
)

// BlendMode selects how fragment colours combine with the target.
type BlendMode int

const (
	// BlendNone replaces the target colour.
	BlendNone BlendMode = iota

	// BlendAdditive adds the fragment colour to the target colour.
	BlendAdditive

	// BlendAlpha mixes by the fragment alpha.
	BlendAlpha
)

// CullMode selects which triangle faces are discarded before rasterization.
// Counter-clockwise winding is front facing.
type CullMode int

const (
	// CullNone rasterizes both faces.
	CullNone CullMode = iota

	// CullBack discards back faces.
	CullBack

	// CullFront discards front faces.
	CullFront
)

// RenderStates is the fixed-function state a draw is issued with.
type RenderStates struct {
	DepthTest  DepthTest
	DepthWrite bool
	ColorWrite bool
	Blend      BlendMode
	Cull       CullMode
}

// DefaultRenderStates returns the opaque geometry state: depth tested and written, colour written, no blending.
//
// Returns:
//   - RenderStates: the default state
func DefaultRenderStates() RenderStates {
	return RenderStates{
		DepthTest:  DepthTestLess,
		DepthWrite: true,
		ColorWrite: true,
		Blend:      BlendNone,
		Cull:       CullNone,
	}
}

// DrawCall describes the geometry consumed by one draw.
type DrawCall struct {
	// VertexCount is the number of vertices drawn when Indices is zero.
	VertexCount uint32

	// Indices is an element buffer holding uint32 indices, or zero for a non-indexed draw.
	Indices BufferID

	// IndexCount is the number of indices drawn when Indices is set.
	IndexCount uint32

	// InstanceCount is the number of instances drawn. Zero is treated as one.
	InstanceCount uint32
}

// Instances returns the effective instance count.
func (d DrawCall) Instances() uint32 {
	if d.InstanceCount == 0 {
		return 1
	}
	return d.InstanceCount
}

// ClearValues selects which attachments Clear resets and to what.
type ClearValues struct {
	// Color, when non-nil, is written to every colour attachment.
	Color *[4]float32

	// Depth, when non-nil, is written to the depth attachment.
	Depth *float32
}
