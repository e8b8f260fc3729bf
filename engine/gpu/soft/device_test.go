package soft

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ndcVertexSource = `//@oxy:kernel test_ndc
//@oxy:attribute 0 position vec3

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = vec4<f32>(in.position, 1.0);
    return out;
}
`

const clipVertexSource = `//@oxy:kernel test_clip
//@oxy:attribute 0 clip vec4

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = in.clip;
    return out;
}
`

const solidFragmentSource = `//@oxy:kernel test_solid
//@oxy:uniform color vec4

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return uniforms.color;
}
`

func init() {
	RegisterVertexKernel("test_ndc", func(b *Bindings) (VertexShader, error) {
		positions := b.Attribute("position")
		return func(vertex, _ int) (mgl32.Vec4, Varyings) {
			return positions.Vec3(vertex).Vec4(1), Varyings{}
		}, nil
	})
	RegisterVertexKernel("test_clip", func(b *Bindings) (VertexShader, error) {
		clips := b.Attribute("clip")
		return func(vertex, _ int) (mgl32.Vec4, Varyings) {
			return clips.Vec4(vertex), Varyings{}
		}, nil
	})
	RegisterFragmentKernel("test_solid", func(b *Bindings) (FragmentShader, error) {
		c := b.Vec4("color")
		return func(Varyings) (Outputs, bool) {
			return Outputs{c}, true
		}, nil
	})
}

func uploadFloats(t *testing.T, d *Device, values ...float32) gpu.BufferID {
	t.Helper()
	id, err := d.CreateBuffer()
	require.NoError(t, err)
	d.BindBuffer(gpu.BufferTargetArray, id)
	require.NoError(t, d.BufferData(gpu.BufferTargetArray, common.SliceToBytes(values), gpu.UsageStatic))
	d.UnbindBuffer(gpu.BufferTargetArray)
	return id
}

// quad covers the whole target at depth z with two counter-clockwise triangles.
func quad(z float32) []float32 {
	return []float32{
		-1, -1, z, 1, -1, z, 1, 1, z,
		-1, -1, z, 1, 1, z, -1, 1, z,
	}
}

func solidProgram(t *testing.T, d *Device, color mgl32.Vec4) gpu.ProgramID {
	t.Helper()
	p, err := d.CreateProgram(ndcVertexSource, solidFragmentSource)
	require.NoError(t, err)
	require.NoError(t, d.SetUniformVec4(p, "color", color))
	return p
}

func drawQuad(t *testing.T, d *Device, p gpu.ProgramID, z float32, states gpu.RenderStates) {
	t.Helper()
	buf := uploadFloats(t, d, quad(z)...)
	require.NoError(t, d.UseAttribute(p, "position", buf))
	require.NoError(t, d.Draw(p, states, gpu.DrawCall{VertexCount: 6}))
}

func TestBufferLifecycle(t *testing.T) {
	d := New(4, 4)

	id, err := d.CreateBuffer()
	require.NoError(t, err)

	assert.Error(t, d.BufferData(gpu.BufferTargetArray, []byte{1, 2, 3, 4}, gpu.UsageStatic), "nothing bound")

	d.BindBuffer(gpu.BufferTargetArray, id)
	require.NoError(t, d.BufferData(gpu.BufferTargetArray, []byte{1, 2, 3, 4}, gpu.UsageStatic))
	require.NoError(t, d.BufferData(gpu.BufferTargetArray, nil, gpu.UsageDynamic))

	info, ok := d.Buffer(id)
	require.True(t, ok)
	assert.Equal(t, BufferInfo{Size: 0, Usage: gpu.UsageDynamic, Uploads: 2}, info)

	d.DeleteBuffer(id)
	d.DeleteBuffer(id)
	_, ok = d.Buffer(id)
	assert.False(t, ok)
	assert.Equal(t, 1, d.Stats().BuffersDeleted)
	assert.Error(t, d.BufferData(gpu.BufferTargetArray, []byte{1}, gpu.UsageStatic), "deleting unbinds")
}

func TestBufferLimit(t *testing.T) {
	d := New(4, 4, WithMaxBuffers(1))
	_, err := d.CreateBuffer()
	require.NoError(t, err)
	_, err = d.CreateBuffer()
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestCreateProgramErrors(t *testing.T) {
	d := New(4, 4)

	_, err := d.CreateProgram(ndcVertexSource, "@fragment fn fs_main() {}")
	assert.ErrorContains(t, err, "kernel")

	unknown := "//@oxy:kernel nope\n@fragment fn fs_main() {}"
	_, err = d.CreateProgram(ndcVertexSource, unknown)
	assert.ErrorContains(t, err, `unknown fragment kernel "nope"`)

	_, err = d.CreateProgram(ndcVertexSource, "//@oxy:bogus\n@fragment fn fs_main() {}")
	assert.Error(t, err)
	assert.Zero(t, d.LivePrograms())
}

func TestSetUniformValidation(t *testing.T) {
	d := New(4, 4)
	p := solidProgram(t, d, mgl32.Vec4{1, 1, 1, 1})

	assert.Error(t, d.SetUniformFloat(p, "color", 1), "format mismatch")
	assert.Error(t, d.SetUniformVec4(p, "missing", [4]float32{}), "undeclared")
	assert.Error(t, d.SetUniformVec4(gpu.ProgramID(999), "color", [4]float32{}), "unknown program")
}

func TestDrawRequiresDeclaredBindings(t *testing.T) {
	d := New(4, 4)
	p := solidProgram(t, d, mgl32.Vec4{1, 0, 0, 1})

	err := d.Draw(p, gpu.DefaultRenderStates(), gpu.DrawCall{VertexCount: 6})
	assert.ErrorContains(t, err, `attribute "position" is not bound`)
	assert.Zero(t, d.Stats().Draws)

	buf := uploadFloats(t, d, 0, 0, 0)
	require.NoError(t, d.UseAttribute(p, "position", buf))
	err = d.Draw(p, gpu.DefaultRenderStates(), gpu.DrawCall{VertexCount: 6})
	assert.ErrorContains(t, err, "holds 1 vertices")
}

func TestDrawFillsTarget(t *testing.T) {
	d := New(8, 8)
	red := mgl32.Vec4{1, 0, 0, 1}
	p := solidProgram(t, d, red)

	drawQuad(t, d, p, 0.5, gpu.DefaultRenderStates())

	for y := range 8 {
		for x := range 8 {
			assert.Equal(t, red, d.Pixel(x, y), "pixel %d,%d", x, y)
		}
	}
	assert.Equal(t, 1, d.Stats().Draws)
}

func TestSharedEdgeShadedOnce(t *testing.T) {
	d := New(16, 16)
	p := solidProgram(t, d, mgl32.Vec4{0.25, 0.25, 0.25, 0.25})
	states := gpu.RenderStates{DepthTest: gpu.DepthTestAlways, ColorWrite: true, Blend: gpu.BlendAdditive}

	drawQuad(t, d, p, 0, states)

	for y := range 16 {
		for x := range 16 {
			require.Equal(t, mgl32.Vec4{0.25, 0.25, 0.25, 0.25}, d.Pixel(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestDepthTest(t *testing.T) {
	d := New(4, 4)
	depth := float32(1)
	require.NoError(t, d.Clear(gpu.ClearValues{Color: &[4]float32{}, Depth: &depth}))

	near := solidProgram(t, d, mgl32.Vec4{0, 1, 0, 1})
	far := solidProgram(t, d, mgl32.Vec4{0, 0, 1, 1})

	drawQuad(t, d, near, 0.2, gpu.DefaultRenderStates())
	drawQuad(t, d, far, 0.8, gpu.DefaultRenderStates())
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, d.Pixel(1, 1))

	noDepth := gpu.DefaultRenderStates()
	noDepth.DepthTest = gpu.DepthTestAlways
	drawQuad(t, d, far, 0.8, noDepth)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, d.Pixel(1, 1))

	outside := solidProgram(t, d, mgl32.Vec4{1, 1, 1, 1})
	drawQuad(t, d, outside, 1.5, noDepth)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, d.Pixel(1, 1), "fragments beyond the far plane are clipped")
}

func TestNearPlaneClipping(t *testing.T) {
	d := New(8, 8)
	white := mgl32.Vec4{1, 1, 1, 1}
	p, err := d.CreateProgram(clipVertexSource, solidFragmentSource)
	require.NoError(t, err)
	require.NoError(t, d.SetUniformVec4(p, "color", white))

	// Two vertices in front of the camera on the bottom edge, the third behind the eye (w < 0).
	// The near plane cuts both edges to the apex at NDC y = 0, leaving the bottom half covered.
	buf := uploadFloats(t, d,
		-1, -1, 0.5, 1,
		1, -1, 0.5, 1,
		0, 3, -1.5, -0.5,
	)
	require.NoError(t, d.UseAttribute(p, "clip", buf))
	states := gpu.RenderStates{DepthTest: gpu.DepthTestAlways, ColorWrite: true}
	require.NoError(t, d.Draw(p, states, gpu.DrawCall{VertexCount: 3}))

	for y := range 8 {
		for x := range 8 {
			want := mgl32.Vec4{}
			if y >= 4 {
				want = white
			}
			assert.Equal(t, want, d.Pixel(x, y), "pixel %d,%d", x, y)
		}
	}

	d2 := New(4, 4)
	p2, err := d2.CreateProgram(clipVertexSource, solidFragmentSource)
	require.NoError(t, err)
	require.NoError(t, d2.SetUniformVec4(p2, "color", white))
	require.NoError(t, d2.UseAttribute(p2, "clip", uploadFloats(t, d2,
		-1, -1, -0.5, -1,
		1, -1, -0.5, -1,
		0, 1, -0.5, -1,
	)))
	require.NoError(t, d2.Draw(p2, states, gpu.DrawCall{VertexCount: 3}))
	for y := range 4 {
		for x := range 4 {
			assert.Equal(t, mgl32.Vec4{}, d2.Pixel(x, y), "triangle behind the eye drew pixel %d,%d", x, y)
		}
	}
}

func TestCulling(t *testing.T) {
	d := New(4, 4)
	p := solidProgram(t, d, mgl32.Vec4{1, 1, 1, 1})

	states := gpu.DefaultRenderStates()
	states.Cull = gpu.CullFront
	drawQuad(t, d, p, 0.5, states)
	assert.Equal(t, mgl32.Vec4{}, d.Pixel(2, 2), "counter-clockwise quad is front facing")

	states.Cull = gpu.CullBack
	drawQuad(t, d, p, 0.5, states)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, d.Pixel(2, 2))
}

func TestIndexedDraw(t *testing.T) {
	d := New(4, 4)
	p := solidProgram(t, d, mgl32.Vec4{1, 1, 0, 1})
	buf := uploadFloats(t, d, -1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0)
	require.NoError(t, d.UseAttribute(p, "position", buf))

	idx, err := d.CreateBuffer()
	require.NoError(t, err)
	d.BindBuffer(gpu.BufferTargetElementArray, idx)
	require.NoError(t, d.BufferData(gpu.BufferTargetElementArray, common.SliceToBytes([]uint32{0, 1, 2, 0, 2, 3}), gpu.UsageStatic))

	err = d.Draw(p, gpu.DefaultRenderStates(), gpu.DrawCall{Indices: idx, IndexCount: 7})
	assert.Error(t, err, "index count beyond buffer")

	require.NoError(t, d.Draw(p, gpu.DefaultRenderStates(), gpu.DrawCall{Indices: idx, IndexCount: 6}))
	assert.Equal(t, mgl32.Vec4{1, 1, 0, 1}, d.Pixel(0, 3))
	assert.Equal(t, mgl32.Vec4{1, 1, 0, 1}, d.Pixel(3, 0))
}

func TestRenderTargets(t *testing.T) {
	d := New(8, 8)

	color, err := d.CreateTexture(gpu.TextureDescriptor{Width: 4, Height: 4, Format: gpu.TextureFormatRGBA16F, RenderAttachment: true})
	require.NoError(t, err)
	depth, err := d.CreateTexture(gpu.TextureDescriptor{Width: 4, Height: 4, Format: gpu.TextureFormatDepth32F, RenderAttachment: true})
	require.NoError(t, err)
	small, err := d.CreateTexture(gpu.TextureDescriptor{Width: 2, Height: 2, Format: gpu.TextureFormatDepth32F})
	require.NoError(t, err)

	_, err = d.CreateRenderTarget([]gpu.TextureID{color}, small)
	assert.ErrorContains(t, err, "expected 4x4")
	_, err = d.CreateRenderTarget([]gpu.TextureID{depth}, 0)
	assert.Error(t, err)

	rt, err := d.CreateRenderTarget([]gpu.TextureID{color}, depth)
	require.NoError(t, err)
	require.NoError(t, d.BindRenderTarget(rt))

	p := solidProgram(t, d, mgl32.Vec4{0, 0, 1, 1})
	drawQuad(t, d, p, 0.5, gpu.RenderStates{DepthTest: gpu.DepthTestAlways, DepthWrite: true, ColorWrite: true})

	px, ok := d.TexturePixel(color, 3, 3)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, px)
	z, _ := d.TexturePixel(depth, 0, 0)
	assert.InDelta(t, 0.5, z[0], 1e-6)
	assert.Equal(t, mgl32.Vec4{}, d.Pixel(0, 0), "framebuffer untouched")

	d.DeleteRenderTarget(rt)
	assert.Error(t, d.BindRenderTarget(rt))
	w, h := d.TextureSize(color)
	assert.Equal(t, [2]uint32{4, 4}, [2]uint32{w, h}, "textures survive their target")
}

func TestCreateTextureValidation(t *testing.T) {
	d := New(4, 4, WithMaxTextures(1))

	_, err := d.CreateTexture(gpu.TextureDescriptor{Width: 0, Height: 1})
	assert.Error(t, err)
	_, err = d.CreateTexture(gpu.TextureDescriptor{Width: 1, Height: 1, Format: gpu.TextureFormatRGBA8, Data: []byte{1, 2, 3}})
	assert.Error(t, err)

	id, err := d.CreateTexture(gpu.TextureDescriptor{Width: 1, Height: 1, Format: gpu.TextureFormatRGBA8, Data: []byte{255, 0, 0, 255}})
	require.NoError(t, err)
	px, _ := d.TexturePixel(id, 0, 0)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, px)

	_, err = d.CreateTexture(gpu.TextureDescriptor{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestParallelRasterMatchesSerial(t *testing.T) {
	render := func(workers int) *Device {
		d := New(96, 96, WithWorkers(workers))
		p := solidProgram(t, d, mgl32.Vec4{0.5, 0.25, 1, 1})
		buf := uploadFloats(t, d, -0.9, -0.7, 0.3, 0.8, -0.2, 0.3, -0.1, 0.95, 0.3)
		require.NoError(t, d.UseAttribute(p, "position", buf))
		require.NoError(t, d.Draw(p, gpu.DefaultRenderStates(), gpu.DrawCall{VertexCount: 3}))
		return d
	}
	serial, parallel := render(1), render(4)
	assert.Equal(t, serial.Image().Pix, parallel.Image().Pix)
}

func TestResize(t *testing.T) {
	d := New(4, 4)
	d.Resize(10, 6)
	w, h := d.FramebufferSize()
	assert.Equal(t, 10, w)
	assert.Equal(t, 6, h)
	assert.Equal(t, 10, d.Image().Bounds().Dx())
}
