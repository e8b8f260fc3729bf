package light_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shadowSource struct {
	ctx    gpu.Context
	bounds common.AABB
}

func (s *shadowSource) Context() gpu.Context        { return s.ctx }
func (s *shadowSource) ShadowMapResolution() uint32 { return 32 }
func (s *shadowSource) SceneBounds() common.AABB    { return s.bounds }

func TestNewLight_Defaults(t *testing.T) {
	l := light.NewLight(light.LightTypePoint)
	assert.Equal(t, light.LightTypePoint, l.Type())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, l.Color())
	assert.Equal(t, float32(1), l.Intensity())
	assert.Equal(t, light.DefaultAttenuation, l.Attenuation())
	assert.True(t, l.Enabled())
	assert.False(t, l.CanCastShadows())
	assert.Nil(t, l.ShadowMap())
}

func TestLight_SettersNormalizeAndClamp(t *testing.T) {
	l := light.NewLight(light.LightTypeSpot,
		light.WithDirection(mgl32.Vec3{0, 0, -4}),
		light.WithCutoff(math32.Pi),
	)
	assert.InDelta(t, 1, l.Direction().Len(), 1e-6)
	assert.Less(t, l.Cutoff(), float32(math32.Pi/2))

	l.SetDirection(mgl32.Vec3{})
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Direction())

	l.SetCutoff(-1)
	assert.Greater(t, l.Cutoff(), float32(0))
}

func TestGPULightData_MarshalRoundTrip(t *testing.T) {
	var in light.GPULightData
	in.AmbientColor = [3]float32{0.1, 0.2, 0.3}
	in.AmbientIntensity = 0.4
	in.Counts = [3]float32{4, 8, 4}
	in.ShadowBias = 0.005
	in.Directional[3].Direction = [3]float32{0, -1, 0}
	in.Directional[3].ShadowMatrix = mgl32.Translate3D(1, 2, 3)
	in.Point[7].Attenuation = [3]float32{1, 0.5, 0.25}
	in.Spot[3].CosCutoff = 0.9
	in.Spot[3].ShadowEnabled = 1

	buf := in.Marshal()
	require.Len(t, buf, light.GPULightDataSize)
	assert.Equal(t, 1312, in.Size())

	var out light.GPULightData
	require.NoError(t, out.Unmarshal(buf))
	assert.Equal(t, in, out)

	assert.Error(t, out.Unmarshal(buf[:100]))
}

func TestNewGPULightData(t *testing.T) {
	ambient := light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.2))
	sun := light.NewLight(light.LightTypeDirectional, light.WithIntensity(0.5), light.WithDirection(mgl32.Vec3{1, -1, 0}))
	off := light.NewLight(light.LightTypeDirectional, light.WithEnabled(false))
	negative := light.NewLight(light.LightTypePoint, light.WithIntensity(-3))
	spot := light.NewLight(light.LightTypeSpot, light.WithCutoff(math32.Pi/4))

	points := make([]light.Light, light.MaxPointLights+3)
	for i := range points {
		points[i] = light.NewLight(light.LightTypePoint, light.WithPosition(mgl32.Vec3{float32(i), 0, 0}))
	}
	points[0] = negative

	data := light.NewGPULightData(ambient, []light.Light{sun, off}, points, []light.Light{spot}, 0.01)

	assert.Equal(t, float32(0.2), data.AmbientIntensity)
	assert.Equal(t, [3]float32{2, light.MaxPointLights, 1}, data.Counts)
	assert.Equal(t, float32(0.01), data.ShadowBias)

	assert.Equal(t, float32(0.5), data.Directional[0].Intensity)
	assert.InDelta(t, 1, mgl32.Vec3(data.Directional[0].Direction).Len(), 1e-6)
	assert.Zero(t, data.Directional[0].ShadowEnabled)
	assert.Zero(t, data.Directional[1].Intensity)

	assert.Zero(t, data.Point[0].Intensity)
	assert.Equal(t, [3]float32{7, 0, 0}, data.Point[7].Position)
	assert.Equal(t, [3]float32{1, 0.05, 0.005}, data.Point[1].Attenuation)

	assert.InDelta(t, math32.Sqrt2/2, data.Spot[0].CosCutoff, 1e-6)

	empty := light.NewGPULightData(nil, nil, nil, nil, 0)
	assert.Equal(t, [3]float32{}, empty.Counts)
	assert.Zero(t, empty.AmbientIntensity)
}

func TestLight_Shadows(t *testing.T) {
	dev := soft.New(1, 1)
	src := &shadowSource{ctx: dev, bounds: common.NewAABB(mgl32.Vec3{-2, -1, -2}, mgl32.Vec3{2, 1, 2})}

	orphan := light.NewLight(light.LightTypeDirectional)
	assert.Error(t, orphan.EnableShadows())

	point := light.NewLight(light.LightTypePoint, light.WithShadowSource(src))
	assert.Error(t, point.EnableShadows())

	sun := light.NewLight(light.LightTypeDirectional, light.WithShadowSource(src), light.WithDirection(mgl32.Vec3{0, -1, 0.2}))
	require.NoError(t, sun.EnableShadows())
	require.NoError(t, sun.EnableShadows())
	assert.Equal(t, 1, dev.LiveTextures())
	assert.Equal(t, 1, dev.LiveRenderTargets())

	sm := sun.ShadowMap()
	require.NotNil(t, sm)
	assert.Equal(t, uint32(32), sm.Resolution())
	w, h := dev.TextureSize(sm.Texture())
	assert.Equal(t, uint32(32), w)
	assert.Equal(t, uint32(32), h)
	assert.True(t, sm.Camera().IsOrthographic())

	// Every corner of the scene bounds lands inside the light's clip volume.
	for _, c := range src.bounds.Corners() {
		p := sm.Matrix().Mul4x1(c.Vec4(1))
		p = p.Mul(1 / p.W())
		assert.LessOrEqual(t, math32.Abs(p.X()), float32(1), "corner %v", c)
		assert.LessOrEqual(t, math32.Abs(p.Y()), float32(1), "corner %v", c)
		assert.GreaterOrEqual(t, p.Z(), float32(0), "corner %v", c)
		assert.LessOrEqual(t, p.Z(), float32(1), "corner %v", c)
	}

	data := light.NewGPULightData(nil, []light.Light{sun}, nil, nil, 0)
	assert.Equal(t, float32(1), data.Directional[0].ShadowEnabled)
	assert.Equal(t, [16]float32(sm.Matrix()), data.Directional[0].ShadowMatrix)

	spot := light.NewLight(light.LightTypeSpot, light.WithShadowSource(src), light.WithPosition(mgl32.Vec3{0, 4, 0}))
	require.NoError(t, spot.EnableShadows())
	assert.False(t, spot.ShadowMap().Camera().IsOrthographic())

	sun.DisableShadows()
	sun.DisableShadows()
	spot.DisableShadows()
	assert.False(t, sun.IsShadowsEnabled())
	assert.Nil(t, sun.ShadowMap())
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveRenderTargets())
	assert.Zero(t, dev.LiveBuffers())
}
