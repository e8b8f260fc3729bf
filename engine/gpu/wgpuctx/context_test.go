package wgpuctx

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layoutVertex = `//@oxy:attribute 2 uv vec2
//@oxy:attribute 0 position vec3
//@oxy:instance 3 model mat4
//@oxy:input uvs
//@oxy:uniform tint vec3
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    return out;
}
`

const layoutFragment = `//@oxy:input uvs
//@oxy:texture albedo color
//@oxy:texture gbuffer_normal data
//@oxy:texture shadow depth
@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

func compileLayout(t *testing.T) *shader.Program {
	t.Helper()
	p, err := shader.Compile(layoutVertex, layoutFragment)
	require.NoError(t, err)
	return p
}

func TestVertexLayouts(t *testing.T) {
	p := compileLayout(t)
	attrs, layouts := vertexLayouts(&p.Reflection)

	require.Len(t, layouts, 3)
	assert.Equal(t, []string{"position", "uv", "model"}, []string{attrs[0].Name, attrs[1].Name, attrs[2].Name})

	assert.Equal(t, uint64(12), layouts[0].ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[0].Format)

	assert.Equal(t, uint64(8), layouts[1].ArrayStride)
	assert.Equal(t, uint32(2), layouts[1].Attributes[0].ShaderLocation)

	model := layouts[2]
	assert.Equal(t, uint64(64), model.ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeInstance, model.StepMode)
	require.Len(t, model.Attributes, 4)
	for col, a := range model.Attributes {
		assert.Equal(t, wgpu.VertexFormatFloat32x4, a.Format)
		assert.Equal(t, uint64(col*16), a.Offset)
		assert.Equal(t, uint32(3+col), a.ShaderLocation)
	}
}

func TestBindGroupLayoutEntries(t *testing.T) {
	p := compileLayout(t)
	groups := bindGroupLayoutEntries(&p.Reflection)

	assert.Empty(t, groups[shader.BlockGroup])

	require.Len(t, groups[shader.UniformGroup], 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, groups[shader.UniformGroup][0].Buffer.Type)
	assert.Equal(t, uint64(16), groups[shader.UniformGroup][0].Buffer.MinBindingSize)

	textures := groups[shader.TextureGroup]
	require.Len(t, textures, 4)
	assert.Equal(t, uint32(0), textures[0].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, textures[0].Texture.SampleType)
	assert.Equal(t, uint32(1), textures[1].Binding)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, textures[1].Sampler.Type)
	assert.Equal(t, uint32(2), textures[2].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, textures[2].Texture.SampleType)
	assert.Equal(t, uint32(4), textures[3].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, textures[3].Texture.SampleType)
}

func TestPipelineKey(t *testing.T) {
	formats := []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float}
	opaque := gpu.DefaultRenderStates()
	additive := opaque
	additive.Blend = gpu.BlendAdditive

	assert.Equal(t, pipelineKey(formats, true, opaque), pipelineKey(formats, true, opaque))
	assert.NotEqual(t, pipelineKey(formats, true, opaque), pipelineKey(formats, false, opaque))
	assert.NotEqual(t, pipelineKey(formats, true, opaque), pipelineKey(formats, true, additive))
	assert.NotEqual(t, pipelineKey(formats, true, opaque), pipelineKey(formats[:1], true, opaque))
}

func TestStateConversions(t *testing.T) {
	assert.Nil(t, blendState(gpu.BlendNone))
	add := blendState(gpu.BlendAdditive)
	require.NotNil(t, add)
	assert.Equal(t, wgpu.BlendFactorOne, add.Color.DstFactor)
	alpha := blendState(gpu.BlendAlpha)
	require.NotNil(t, alpha)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, alpha.Color.SrcFactor)

	assert.Equal(t, wgpu.CompareFunctionAlways, depthCompare(gpu.DepthTestAlways))
	assert.Equal(t, wgpu.CompareFunctionLessEqual, depthCompare(gpu.DepthTestLessEqual))
	assert.Equal(t, wgpu.CullModeFront, cullMode(gpu.CullFront))
	assert.Equal(t, wgpu.CullModeNone, cullMode(gpu.CullNone))

	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, textureFormat(gpu.TextureFormatRGBA8))
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, textureFormat(gpu.TextureFormatRGBA16F))
	assert.Equal(t, wgpu.TextureFormatDepth32Float, textureFormat(gpu.TextureFormatDepth32F))

	assert.Equal(t, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, bufferUsage(gpu.BufferTargetElementArray))
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, bufferUsage(gpu.BufferTargetArray))
}
