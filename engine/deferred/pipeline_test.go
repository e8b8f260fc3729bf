package deferred_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/geometry"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 64

var (
	clearColor = mgl32.Vec4{0.8, 0.8, 0.8, 1}
	matte      = material.NewColorMaterial(mgl32.Vec4{1, 1, 1, 1}, material.WithSpecular(0, 1))
)

func newPipeline(t *testing.T, opts ...deferred.PipelineBuilderOption) (*soft.Device, deferred.Pipeline) {
	t.Helper()
	dev := soft.New(size, size)
	opts = append([]deferred.PipelineBuilderOption{deferred.WithShadowMapResolution(256)}, opts...)
	p, err := deferred.New(dev, size, size, clearColor, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	p.AmbientLight().SetIntensity(0)
	return dev, p
}

func newShape(t *testing.T, p deferred.Pipeline, mesh common.CPUMesh, transform mgl32.Mat4) object.Object {
	t.Helper()
	m, err := geometry.NewMesh(p.Context(), p.Programs(), mesh)
	require.NoError(t, err)
	m.SetTransformation(transform)
	shape := object.NewShape(m, matte)
	t.Cleanup(shape.Destroy)
	return shape
}

// pixelAt reads the framebuffer at the projection of a world-space point.
func pixelAt(t *testing.T, dev *soft.Device, cam camera.Camera, world mgl32.Vec3) mgl32.Vec3 {
	t.Helper()
	ndc := cam.Project(world)
	x := int((ndc.X()*0.5 + 0.5) * size)
	y := int((0.5 - ndc.Y()*0.5) * size)
	require.True(t, x >= 0 && x < size && y >= 0 && y < size, "%v projects outside the frame", world)
	return dev.Pixel(x, y).Vec3()
}

func TestPipeline_DirectionalShadowAndBackFaces(t *testing.T) {
	dev, p := newPipeline(t,
		deferred.WithShadowBias(0.005),
		deferred.WithSceneBounds(common.NewAABB(mgl32.Vec3{-5, -1, -5}, mgl32.Vec3{5, 2, 5})),
	)
	p.Camera().SetView(mgl32.Vec3{6, 4, 8}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	sun, err := p.DirectionalLight(0)
	require.NoError(t, err)
	sun.SetDirection(mgl32.Vec3{1, -1, 0})
	sun.SetIntensity(0.3)
	require.NoError(t, sun.EnableShadows())

	objects := []object.Object{
		newShape(t, p, geometry.NewCube(2), mgl32.Ident4()),
		newShape(t, p, geometry.NewPlane(20, 20), mgl32.Translate3D(0, -1, 0)),
	}
	require.NoError(t, p.Render(objects))
	assert.Equal(t, deferred.PhaseIdle, p.Phase())

	lit := 0.3 * mgl32.Vec3{0, 1, 0}.Dot(mgl32.Vec3{-1, 1, 0}.Normalize())
	cam := p.Camera()

	ground := pixelAt(t, dev, cam, mgl32.Vec3{2, -1, 3})
	assert.InDelta(t, lit, ground.X(), 0.01)
	assert.InDelta(t, lit, ground.Z(), 0.01)

	shadowed := pixelAt(t, dev, cam, mgl32.Vec3{2, -1, 0})
	assert.InDelta(t, 0, shadowed.X(), 1e-4)

	// The +X face points away from the light.
	away := pixelAt(t, dev, cam, mgl32.Vec3{1, 0, 0.2})
	assert.InDelta(t, 0, away.Len(), 1e-4)

	// The top face is lit at the same angle as the ground.
	top := pixelAt(t, dev, cam, mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, lit, top.Y(), 0.01)

	// Without the shadow map the ground under the cube's shadow is lit again.
	sun.DisableShadows()
	require.NoError(t, p.Render(objects))
	assert.InDelta(t, lit, pixelAt(t, dev, cam, mgl32.Vec3{2, -1, 0}).X(), 0.01)
}

func TestPipeline_SpotLightConeAttenuationAndShadow(t *testing.T) {
	dev, p := newPipeline(t)
	cam := p.Camera()
	cam.SetView(mgl32.Vec3{0, 10, -8}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 1, 0})

	spot, err := p.SpotLight(0)
	require.NoError(t, err)
	spot.SetPosition(mgl32.Vec3{0, 5, 1})
	spot.SetDirection(mgl32.Vec3{0, -6, -1})
	spot.SetCutoff(mgl32.DegToRad(30))
	spot.SetColor(mgl32.Vec3{1, 1, 1})
	spot.SetIntensity(1)
	spot.SetAttenuation(light.Attenuation{Constant: 1})
	require.NoError(t, spot.EnableShadows())

	objects := []object.Object{
		newShape(t, p, geometry.NewCube(2), mgl32.Ident4()),
		newShape(t, p, geometry.NewPlane(20, 20), mgl32.Translate3D(0, -1, 0)),
	}
	var (
		lit      = mgl32.Vec3{-2.5, -1, 1.5}
		occluded = mgl32.Vec3{0, -1, -1.5}
		outside  = mgl32.Vec3{4.5, -1, 0}
		top      = mgl32.Vec3{0, 1, 0}
	)
	require.NoError(t, p.Render(objects))

	ground := pixelAt(t, dev, cam, lit)
	assert.Greater(t, ground.X(), float32(0))
	assert.Greater(t, pixelAt(t, dev, cam, top).X(), ground.X())
	assert.InDelta(t, 0, pixelAt(t, dev, cam, outside).Len(), 1e-6)
	assert.InDelta(t, 0, pixelAt(t, dev, cam, occluded).Len(), 1e-6)

	// Doubling the constant term halves the received light.
	spot.SetAttenuation(light.Attenuation{Constant: 2})
	require.NoError(t, p.Render(objects))
	assert.InDelta(t, ground.X()/2, pixelAt(t, dev, cam, lit).X(), 1e-4)

	// Without the shadow map the ground behind the cube is inside the cone and lit.
	spot.DisableShadows()
	require.NoError(t, p.Render(objects))
	assert.Greater(t, pixelAt(t, dev, cam, occluded).X(), float32(0))
	assert.InDelta(t, 0, pixelAt(t, dev, cam, outside).Len(), 1e-6)
}

func TestPipeline_PointLightsAreOrderIndependent(t *testing.T) {
	dev, p := newPipeline(t)
	cam := p.Camera()
	cam.SetView(mgl32.Vec3{0, 6, 0.01}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1})
	objects := []object.Object{newShape(t, p, geometry.NewPlane(10, 10), mgl32.Ident4())}

	green, red := mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}
	left, right := mgl32.Vec3{-2, 2, 0}, mgl32.Vec3{2, 2, 0}
	centre := mgl32.Vec3{0, 0, 0}

	place := func(slot int, color, position mgl32.Vec3, intensity float32) {
		l, err := p.PointLight(slot)
		require.NoError(t, err)
		l.SetColor(color)
		l.SetPosition(position)
		l.SetIntensity(intensity)
	}
	render := func() mgl32.Vec3 {
		require.NoError(t, p.Render(objects))
		return pixelAt(t, dev, cam, centre)
	}

	place(0, green, left, 0.5)
	place(1, red, right, 0)
	greenOnly := render()

	place(0, green, left, 0)
	place(1, red, right, 0.5)
	redOnly := render()

	place(0, green, left, 0.5)
	place(1, red, right, 0.5)
	both := render()

	place(0, red, right, 0.5)
	place(1, green, left, 0.5)
	swapped := render()

	assert.Greater(t, both.X(), float32(0))
	assert.InDelta(t, both.X(), both.Y(), 0.02)
	assert.InDelta(t, greenOnly.Y()+redOnly.Y(), both.Y(), 1e-5)
	assert.InDelta(t, greenOnly.X()+redOnly.X(), both.X(), 1e-5)
	assert.Equal(t, both, swapped)
}

func TestPipeline_BackgroundTakesClearColor(t *testing.T) {
	dev, p := newPipeline(t)
	require.NoError(t, p.Render(nil))
	assert.Equal(t, clearColor, dev.Pixel(0, 0))
	assert.Equal(t, clearColor, dev.Pixel(size-1, size-1))
}

func TestPipeline_PassOrder(t *testing.T) {
	_, p := newPipeline(t)
	noop := func(camera.Camera) error { return nil }

	assert.ErrorIs(t, p.LightPass(), deferred.ErrPipelineOutOfOrder)

	require.NoError(t, p.ShadowPass(noop))
	assert.Equal(t, deferred.PhaseShadow, p.Phase())
	assert.ErrorIs(t, p.LightPass(), deferred.ErrPipelineOutOfOrder)
	assert.ErrorIs(t, p.ShadowPass(noop), deferred.ErrPipelineOutOfOrder)
	assert.Equal(t, deferred.PhaseShadow, p.Phase())

	require.NoError(t, p.GeometryPass(noop))
	assert.Equal(t, deferred.PhaseGeometry, p.Phase())
	assert.ErrorIs(t, p.ShadowPass(noop), deferred.ErrPipelineOutOfOrder)
	assert.ErrorIs(t, p.GeometryPass(noop), deferred.ErrPipelineOutOfOrder)
	assert.Equal(t, deferred.PhaseGeometry, p.Phase())
	require.NoError(t, p.LightPass())
	assert.Equal(t, deferred.PhaseIdle, p.Phase())

	// The G-buffer is consumed, a second light pass needs a fresh geometry pass.
	assert.ErrorIs(t, p.LightPass(), deferred.ErrPipelineOutOfOrder)

	// A frame without shadows is valid.
	require.NoError(t, p.GeometryPass(noop))
	require.NoError(t, p.LightPass())
}

func TestPipeline_FailedGeometryPassInvalidatesFrame(t *testing.T) {
	dev, p := newPipeline(t)
	boom := errors.New("boom")

	err := p.GeometryPass(func(camera.Camera) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "geometry pass")
	assert.Equal(t, deferred.PhaseIdle, p.Phase())
	assert.ErrorIs(t, p.LightPass(), deferred.ErrPipelineOutOfOrder)

	// A missing attribute aborts the pass the same way and nothing is drawn.
	bare := newShapeWithoutNormals(t, p)
	draws := dev.Stats().Draws
	err = p.GeometryPass(func(cam camera.Camera) error {
		return object.RenderAll([]object.Object{bare}, cam, nil)
	})
	var missing *geometry.MissingAttributeError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, geometry.AttributeNormal, missing.Name)
	assert.Equal(t, draws, dev.Stats().Draws)
	assert.ErrorIs(t, p.LightPass(), deferred.ErrPipelineOutOfOrder)
}

func newShapeWithoutNormals(t *testing.T, p deferred.Pipeline) object.Object {
	t.Helper()
	m, err := geometry.NewMesh(p.Context(), p.Programs(), common.CPUMesh{
		Positions: []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}},
	})
	require.NoError(t, err)
	shape := object.NewShape(m, matte)
	t.Cleanup(shape.Destroy)
	return shape
}

func TestPipeline_NestedPassesAreRejected(t *testing.T) {
	_, p := newPipeline(t)
	err := p.GeometryPass(func(camera.Camera) error {
		if err := p.LightPass(); err != nil {
			return err
		}
		return p.Resize(32, 32)
	})
	assert.ErrorIs(t, err, deferred.ErrPipelineOutOfOrder)
	assert.Equal(t, deferred.PhaseIdle, p.Phase())
}

func TestPipeline_ViewportMismatch(t *testing.T) {
	dev, p := newPipeline(t)
	noop := func(camera.Camera) error { return nil }

	dev.Resize(40, 30)
	assert.ErrorIs(t, p.ShadowPass(noop), deferred.ErrViewportMismatch)
	assert.ErrorIs(t, p.GeometryPass(noop), deferred.ErrViewportMismatch)

	require.NoError(t, p.Resize(40, 30))
	w, h := p.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	assert.InDelta(t, 40.0/30.0, p.Camera().Aspect(), 1e-6)
	require.NoError(t, p.GeometryPass(noop))
	require.NoError(t, p.LightPass())
}

func TestPipeline_LightSlots(t *testing.T) {
	_, p := newPipeline(t, deferred.WithPointLights(2), deferred.WithSpotLights(99))

	tests := []struct {
		name  string
		get   func(int) (light.Light, error)
		slots int
		kind  light.LightType
	}{
		{"directional", p.DirectionalLight, light.MaxDirectionalLights, light.LightTypeDirectional},
		{"point", p.PointLight, 2, light.LightTypePoint},
		{"spot", p.SpotLight, light.MaxSpotLights, light.LightTypeSpot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.slots {
				l, err := tt.get(i)
				require.NoError(t, err)
				assert.Equal(t, tt.kind, l.Type())
				assert.Zero(t, l.Intensity())
			}
			_, err := tt.get(tt.slots)
			assert.ErrorIs(t, err, deferred.ErrLightIndexOutOfRange)
			_, err = tt.get(-1)
			assert.ErrorIs(t, err, deferred.ErrLightIndexOutOfRange)
		})
	}

	assert.Equal(t, light.LightTypeAmbient, p.AmbientLight().Type())
	assert.Len(t, p.Lights(), 1+light.MaxDirectionalLights+2+light.MaxSpotLights)
}

func TestPipeline_ShadowToggling(t *testing.T) {
	dev, p := newPipeline(t)
	textures := dev.LiveTextures()

	sun, err := p.DirectionalLight(1)
	require.NoError(t, err)
	spot, err := p.SpotLight(0)
	require.NoError(t, err)
	bulb, err := p.PointLight(0)
	require.NoError(t, err)

	require.NoError(t, sun.EnableShadows())
	require.NoError(t, sun.EnableShadows())
	require.NoError(t, spot.EnableShadows())
	assert.Error(t, bulb.EnableShadows())
	assert.Equal(t, textures+2, dev.LiveTextures())
	assert.Equal(t, uint32(256), sun.ShadowMap().Resolution())

	var cameras []camera.Camera
	record := func(cam camera.Camera) error {
		cameras = append(cameras, cam)
		return nil
	}
	require.NoError(t, p.ShadowPass(record))
	require.Len(t, cameras, 2)
	assert.Same(t, sun.ShadowMap().Camera(), cameras[0])
	assert.Same(t, spot.ShadowMap().Camera(), cameras[1])

	sun.DisableShadows()
	spot.DisableShadows()
	assert.False(t, sun.IsShadowsEnabled())
	assert.Equal(t, textures, dev.LiveTextures())

	// Finish the frame before the next shadow pass.
	noop := func(camera.Camera) error { return nil }
	require.NoError(t, p.GeometryPass(noop))
	require.NoError(t, p.LightPass())

	cameras = nil
	require.NoError(t, p.ShadowPass(record))
	assert.Empty(t, cameras)
}

func TestPipeline_ProgramsAreShared(t *testing.T) {
	_, p := newPipeline(t)
	objects := []object.Object{
		newShape(t, p, geometry.NewCube(1), mgl32.Translate3D(-1, 0, 0)),
		newShape(t, p, geometry.NewCube(1), mgl32.Translate3D(1, 0, 0)),
	}
	require.NoError(t, p.Render(objects))

	sig := program.Signature{Material: material.KindColor, Geometry: program.Capability{Normals: true, UVs: true}}
	assert.Equal(t, 2, p.Programs().Users(sig))
	assert.Equal(t, 1, p.Programs().Compiles())
}

func TestPipeline_DestroyReleasesEverything(t *testing.T) {
	dev := soft.New(size, size)
	p, err := deferred.New(dev, size, size, clearColor, deferred.WithShadowMapResolution(64))
	require.NoError(t, err)

	sun, err := p.DirectionalLight(0)
	require.NoError(t, err)
	sun.SetIntensity(1)
	require.NoError(t, sun.EnableShadows())

	mesh, err := geometry.NewMesh(dev, p.Programs(), geometry.NewCube(1))
	require.NoError(t, err)
	require.NoError(t, p.Render([]object.Object{object.NewShape(mesh, matte)}))

	p.Destroy()
	p.Destroy()
	mesh.Destroy()

	assert.Zero(t, dev.LiveBuffers())
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LivePrograms())
	assert.Zero(t, dev.LiveRenderTargets())
	assert.ErrorIs(t, p.GeometryPass(func(camera.Camera) error { return nil }), deferred.ErrDestroyed)
}

func TestNew_FailureLeavesNothingAllocated(t *testing.T) {
	dev := soft.New(size, size, soft.WithMaxTextures(2))
	_, err := deferred.New(dev, size, size, clearColor)
	require.ErrorIs(t, err, soft.ErrLimitReached)
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveBuffers())
	assert.Zero(t, dev.LiveRenderTargets())

	_, err = deferred.New(dev, 0, size, clearColor)
	assert.Error(t, err)
}
