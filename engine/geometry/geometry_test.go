package geometry_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/geometry"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = material.NewColorMaterial(mgl32.Vec4{1, 0, 0, 1})

func setup(t *testing.T) (*soft.Device, program.Cache, camera.Camera) {
	t.Helper()
	dev := soft.New(32, 32, soft.WithWorkers(1))
	cam := camera.NewCamera()
	t.Cleanup(cam.Destroy)
	return dev, program.NewCache(dev), cam
}

func positionsOnly() common.CPUMesh {
	return common.CPUMesh{Positions: []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}}
}

func TestMesh_RenderWritesSurface(t *testing.T) {
	dev, cache, cam := setup(t)
	mesh, err := geometry.NewMesh(dev, cache, geometry.NewCube(2))
	require.NoError(t, err)
	defer mesh.Destroy()

	require.NoError(t, mesh.RenderWithMaterial(red, cam, nil))
	assert.Equal(t, 1, dev.Stats().Draws)

	// The geometry kernels write the world position and specular power to the first attachment.
	p := dev.Pixel(16, 16)
	assert.InDelta(t, 1.0, p[2], 1e-3)
	assert.InDelta(t, material.DefaultSurface.Power, p[3], 1e-3)

	mesh.SetTransformation(mgl32.Translate3D(0, 0, 1))
	require.NoError(t, mesh.RenderWithMaterial(red, cam, nil))
	assert.InDelta(t, 2.0, dev.Pixel(16, 16)[2], 1e-3)
	assert.InDelta(t, 2.0, mesh.AABB().Max.Z(), 1e-5)
}

func TestMesh_MissingAttribute(t *testing.T) {
	tests := []struct {
		name    string
		mesh    common.CPUMesh
		mat     material.Material
		missing string
	}{
		{"color without normals", positionsOnly(), red, geometry.AttributeNormal},
		{"texture without normals", positionsOnly(), material.TextureMaterial{}, geometry.AttributeNormal},
		{"texture without uvs", func() common.CPUMesh {
			m := positionsOnly()
			m.ComputeNormals()
			return m
		}(), material.TextureMaterial{}, geometry.AttributeUV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, cache, cam := setup(t)
			mesh, err := geometry.NewMesh(dev, cache, tt.mesh)
			require.NoError(t, err)
			defer mesh.Destroy()

			err = mesh.RenderWithMaterial(tt.mat, cam, nil)
			var missing *geometry.MissingAttributeError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.missing, missing.Name)
			assert.Zero(t, dev.Stats().Draws)
			assert.Zero(t, dev.Stats().ProgramsCreated)
			assert.Zero(t, cache.Len())
		})
	}
}

func customStage(inputs ...string) string {
	src := "//@oxy:kernel geometry_color\n//@oxy:include gbuffer\n"
	for _, in := range inputs {
		src += "//@oxy:input " + in + "\n"
	}
	return src + `
@fragment
fn fs_main(in: VertexOutput) -> GBufferOutput {
    var out: GBufferOutput;
    out.position = vec4<f32>(in.pos, 1.0);
    return out;
}
`
}

func TestMesh_CustomMaterialsWithSameNameKeepTheirOwnPrograms(t *testing.T) {
	dev, cache, cam := setup(t)
	cpu := positionsOnly()
	cpu.ComputeNormals()
	mesh, err := geometry.NewMesh(dev, cache, cpu)
	require.NoError(t, err)
	defer mesh.Destroy()

	flat := material.CustomMaterial{Name: "water", Source: customStage("pos", "nor")}
	require.NoError(t, mesh.RenderWithMaterial(flat, cam, nil))
	assert.Equal(t, 1, dev.Stats().Draws)

	textured := material.CustomMaterial{Name: "water", Source: customStage("pos", "uvs")}
	err = mesh.RenderWithMaterial(textured, cam, nil)
	var missing *geometry.MissingAttributeError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, geometry.AttributeUV, missing.Name)
	assert.Equal(t, 1, dev.Stats().Draws)
	assert.Equal(t, 1, cache.Len())
}

func TestMesh_DepthMaterialNeedsOnlyPositions(t *testing.T) {
	dev, cache, cam := setup(t)
	mesh, err := geometry.NewMesh(dev, cache, positionsOnly())
	require.NoError(t, err)
	defer mesh.Destroy()

	require.NoError(t, mesh.RenderWithMaterial(material.Depth, cam, nil))
	assert.Equal(t, 1, dev.Stats().Draws)
}

func TestMesh_SharesAndReleasesPrograms(t *testing.T) {
	dev, cache, cam := setup(t)
	a, err := geometry.NewMesh(dev, cache, geometry.NewCube(1))
	require.NoError(t, err)
	b, err := geometry.NewMesh(dev, cache, geometry.NewPlane(4, 4))
	require.NoError(t, err)

	require.NoError(t, a.RenderWithMaterial(red, cam, nil))
	require.NoError(t, b.RenderWithMaterial(red, cam, nil))
	require.NoError(t, a.RenderWithMaterial(material.NewColorMaterial(mgl32.Vec4{0, 1, 0, 1}), cam, nil))

	sig := program.Signature{Material: material.KindColor, Geometry: a.Capability()}
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 2, cache.Users(sig))
	assert.Equal(t, 1, dev.Stats().ProgramsCreated)

	a.Destroy()
	a.Destroy()
	assert.Equal(t, 1, cache.Users(sig))
	assert.Equal(t, 1, dev.LivePrograms())

	b.Destroy()
	assert.Zero(t, cache.Len())
	assert.Zero(t, dev.LivePrograms())

	cam.Destroy()
	assert.Zero(t, dev.LiveBuffers())
}

func TestMesh_RenderAfterDestroy(t *testing.T) {
	dev, cache, cam := setup(t)
	mesh, err := geometry.NewMesh(dev, cache, geometry.NewCube(1))
	require.NoError(t, err)
	mesh.Destroy()

	assert.ErrorIs(t, mesh.RenderWithMaterial(red, cam, nil), geometry.ErrDestroyed)
}

func TestNewMesh_InvalidLeavesNoBuffers(t *testing.T) {
	dev, cache, _ := setup(t)
	bad := geometry.NewCube(1)
	bad.UVs = bad.UVs[:3]

	_, err := geometry.NewMesh(dev, cache, bad)
	require.Error(t, err)
	assert.Zero(t, dev.LiveBuffers())
}

func TestInstancedMesh_ZeroInstancesDrawNothing(t *testing.T) {
	dev, cache, cam := setup(t)
	mesh, err := geometry.NewInstancedMesh(dev, cache, geometry.NewCube(1), nil)
	require.NoError(t, err)
	defer mesh.Destroy()

	require.NoError(t, mesh.RenderWithMaterial(red, cam, nil))
	assert.Zero(t, dev.Stats().Draws)
	assert.Zero(t, cache.Len())

	require.NoError(t, mesh.UpdateTransformations([]mgl32.Mat4{
		mgl32.Translate3D(-0.25, 0, 0),
		mgl32.Translate3D(0.25, 0, 0),
	}))
	assert.Equal(t, 2, mesh.InstanceCount())
	require.NoError(t, mesh.RenderWithMaterial(red, cam, nil))
	assert.Equal(t, 1, dev.Stats().Draws)

	// Both instances overlap the centre of the frame.
	assert.InDelta(t, 0.5, dev.Pixel(16, 16)[2], 1e-3)
}

func TestInstancedMesh_UsesItsOwnProgram(t *testing.T) {
	dev, cache, cam := setup(t)
	static, err := geometry.NewMesh(dev, cache, geometry.NewCube(1))
	require.NoError(t, err)
	defer static.Destroy()
	instanced, err := geometry.NewInstancedMesh(dev, cache, geometry.NewCube(1), []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	defer instanced.Destroy()

	require.NoError(t, static.RenderWithMaterial(red, cam, nil))
	require.NoError(t, instanced.RenderWithMaterial(red, cam, nil))

	assert.True(t, instanced.Capability().Instanced)
	assert.False(t, static.Capability().Instanced)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 1, cache.Users(program.Signature{Material: material.KindColor, Geometry: instanced.Capability()}))
}

// renderNormals draws a geometry into a G-buffer shaped target and returns the normal attachment.
func renderNormals(t *testing.T, build func(dev *soft.Device, cache program.Cache) geometry.Geometry) []mgl32.Vec4 {
	t.Helper()
	dev, cache, cam := setup(t)
	cam.SetView(mgl32.Vec3{3, 2, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	var colors []gpu.TextureID
	for range 3 {
		id, err := dev.CreateTexture(gpu.TextureDescriptor{Width: 32, Height: 32, Format: gpu.TextureFormatRGBA16F, RenderAttachment: true})
		require.NoError(t, err)
		colors = append(colors, id)
	}
	depth, err := dev.CreateTexture(gpu.TextureDescriptor{Width: 32, Height: 32, Format: gpu.TextureFormatDepth32F, RenderAttachment: true})
	require.NoError(t, err)
	rt, err := dev.CreateRenderTarget(colors, depth)
	require.NoError(t, err)
	require.NoError(t, dev.BindRenderTarget(rt))
	far := float32(1)
	require.NoError(t, dev.Clear(gpu.ClearValues{Color: &[4]float32{}, Depth: &far}))

	g := build(dev, cache)
	defer g.Destroy()
	require.NoError(t, g.RenderWithMaterial(red, cam, nil))

	out := make([]mgl32.Vec4, 0, 32*32)
	for y := range 32 {
		for x := range 32 {
			n, ok := dev.TexturePixel(colors[1], x, y)
			require.True(t, ok)
			out = append(out, n)
		}
	}
	return out
}

func TestInstancedMesh_NonUniformScaleNormals(t *testing.T) {
	scale := mgl32.Scale3D(3, 1, 1)
	rotate := mgl32.HomogRotate3DZ(mgl32.DegToRad(45))

	plain := renderNormals(t, func(dev *soft.Device, cache program.Cache) geometry.Geometry {
		m, err := geometry.NewMesh(dev, cache, geometry.NewCube(1))
		require.NoError(t, err)
		m.SetTransformation(scale.Mul4(rotate))
		return m
	})
	instanced := renderNormals(t, func(dev *soft.Device, cache program.Cache) geometry.Geometry {
		m, err := geometry.NewInstancedMesh(dev, cache, geometry.NewCube(1), []mgl32.Mat4{scale})
		require.NoError(t, err)
		m.SetTransformation(rotate)
		return m
	})

	covered := 0
	for i := range plain {
		if plain[i].Vec3().Len() > 0 {
			covered++
		}
		for c := range 3 {
			require.InDelta(t, plain[i][c], instanced[i][c], 1e-4, "normal at pixel %d", i)
		}
	}
	assert.Greater(t, covered, 0)
}

func TestInstancedMesh_AABB(t *testing.T) {
	dev, cache, _ := setup(t)
	mesh, err := geometry.NewInstancedMesh(dev, cache, geometry.NewCube(2), []mgl32.Mat4{
		mgl32.Translate3D(5, 0, 0),
		mgl32.Translate3D(-5, 0, 0),
	})
	require.NoError(t, err)
	defer mesh.Destroy()

	box := mesh.AABB()
	assert.InDelta(t, -6, box.Min.X(), 1e-5)
	assert.InDelta(t, 6, box.Max.X(), 1e-5)
	assert.InDelta(t, 1, box.Max.Y(), 1e-5)
}

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name     string
		mesh     common.CPUMesh
		vertices int
		indices  int
	}{
		{"plane", geometry.NewPlane(2, 3), 4, 6},
		{"cube", geometry.NewCube(1), 24, 36},
		{"fullscreen quad", geometry.NewFullscreenQuad(), 4, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.mesh
			require.NoError(t, m.Validate())
			assert.Len(t, m.Positions, tt.vertices)
			assert.Len(t, m.Normals, tt.vertices)
			assert.Len(t, m.UVs, tt.vertices)
			assert.Len(t, m.Indices, tt.indices)

			// Every triangle winds counter-clockwise around its vertex normal.
			for i := 0; i < len(m.Indices); i += 3 {
				p0, p1, p2 := m.Positions[m.Indices[i]], m.Positions[m.Indices[i+1]], m.Positions[m.Indices[i+2]]
				face := p1.Sub(p0).Cross(p2.Sub(p0))
				assert.Greater(t, face.Dot(m.Normals[m.Indices[i]]), float32(0))
			}
		})
	}

	cube := geometry.NewCube(1)
	for i, n := range cube.Normals {
		assert.Greater(t, n.Dot(cube.Positions[i]), float32(0), "cube normal %d points inward", i)
	}
	plane := geometry.NewPlane(2, 3).AABB()
	assert.InDelta(t, 1.5, plane.Max.Z(), 1e-6)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, geometry.NewPlane(1, 1).Normals[0])
}
