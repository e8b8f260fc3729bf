package camera_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera_Defaults(t *testing.T) {
	c := camera.NewCamera()
	assert.Equal(t, mgl32.Vec3{0, 0, 5}, c.Position())
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, c.Target())
	assert.Equal(t, float32(1), c.Aspect())
	assert.False(t, c.IsOrthographic())

	// The target sits in the middle of the view at the near/far split.
	p := c.Project(mgl32.Vec3{0, 0, 0})
	assert.InDelta(t, 0, p.X(), 1e-6)
	assert.InDelta(t, 0, p.Y(), 1e-6)
	assert.Greater(t, p.Z(), float32(0))
	assert.Less(t, p.Z(), float32(1))
}

func TestCamera_ProjectDepthRange(t *testing.T) {
	c := camera.NewCamera(camera.WithNear(1), camera.WithFar(10), camera.WithPosition(mgl32.Vec3{0, 0, 0}), camera.WithTarget(mgl32.Vec3{0, 0, -1}))
	assert.InDelta(t, 0, c.Project(mgl32.Vec3{0, 0, -1}).Z(), 1e-5)
	assert.InDelta(t, 1, c.Project(mgl32.Vec3{0, 0, -10}).Z(), 1e-5)

	right := c.Project(mgl32.Vec3{1, 1, -5})
	assert.Greater(t, right.X(), float32(0))
	assert.Greater(t, right.Y(), float32(0))
}

func TestCamera_Orthographic(t *testing.T) {
	c := camera.NewCamera(camera.WithOrthographic(2, 1), camera.WithNear(0), camera.WithFar(10))
	require.True(t, c.IsOrthographic())

	edge := c.Project(mgl32.Vec3{2, 1, 0})
	assert.InDelta(t, 1, edge.X(), 1e-5)
	assert.InDelta(t, 1, edge.Y(), 1e-5)

	c.SetAspect(4)
	edge = c.Project(mgl32.Vec3{4, 1, 0})
	assert.InDelta(t, 1, edge.X(), 1e-5)
}

func TestCamera_UniformBuffer(t *testing.T) {
	dev := soft.New(1, 1)
	c := camera.NewCamera()

	id, err := c.UniformBuffer(dev)
	require.NoError(t, err)
	info, ok := dev.Buffer(id)
	require.True(t, ok)
	assert.Equal(t, (&camera.GPUCameraUniform{}).Size(), info.Size)
	uploads := info.Uploads

	again, err := c.UniformBuffer(dev)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	info, _ = dev.Buffer(id)
	assert.Equal(t, uploads, info.Uploads)

	c.SetView(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	_, err = c.UniformBuffer(dev)
	require.NoError(t, err)
	info, _ = dev.Buffer(id)
	assert.Equal(t, uploads+1, info.Uploads)

	c.Destroy()
	c.Destroy()
	assert.Zero(t, dev.LiveBuffers())
}

func TestGPUCameraUniform_RoundTrip(t *testing.T) {
	in := camera.GPUCameraUniform{
		ViewProj:       mgl32.Translate3D(1, 2, 3),
		CameraPosition: [3]float32{4, 5, 6},
	}
	var out camera.GPUCameraUniform
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, in, out)
	assert.Error(t, out.Unmarshal(nil))
}

func TestCameraController_Orbit(t *testing.T) {
	cc := camera.NewCameraController(
		camera.WithRadius(10),
		camera.WithAzimuth(0),
		camera.WithElevation(0),
		camera.WithPivot(mgl32.Vec3{0, 1, 0}),
	)
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{0, 1, 10}, 1e-5), "got %v", cc.Position())

	// A drag of -π/2 / sensitivity pixels turns the eye a quarter towards +X.
	cc.Rotate(-(math32.Pi/2)/0.005, 0)
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{10, 1, 0}, 1e-3), "got %v", cc.Position())

	cam := camera.NewCamera()
	cc.Apply(cam)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, cam.Target())
	assert.True(t, cam.Position().ApproxEqualThreshold(mgl32.Vec3{10, 1, 0}, 1e-3))

	cc.Reset()
	assert.InDelta(t, 0, cc.Azimuth(), 1e-6)
	assert.InDelta(t, 10, cc.Radius(), 1e-6)
}

func TestCameraController_Bounds(t *testing.T) {
	cc := camera.NewCameraController(
		camera.WithRadius(5),
		camera.WithRadiusBounds(2, 8),
		camera.WithElevationBounds(0, 1),
		camera.WithZoomSpeed(1),
	)

	cc.Zoom(100)
	assert.InDelta(t, 2, cc.Radius(), 1e-6)
	cc.Zoom(-100)
	assert.InDelta(t, 8, cc.Radius(), 1e-6)

	cc.Rotate(0, 1e6)
	assert.InDelta(t, 1, cc.Elevation(), 1e-6)
	cc.Rotate(0, -1e6)
	assert.InDelta(t, 0, cc.Elevation(), 1e-6)
}

func TestCameraController_OrbitFrom(t *testing.T) {
	cc := camera.NewCameraController(camera.WithOrbitFrom(mgl32.Vec3{5, 5, 5}, mgl32.Vec3{}))

	assert.InDelta(t, math32.Sqrt(75), cc.Radius(), 1e-4)
	assert.InDelta(t, math32.Pi/4, cc.Azimuth(), 1e-5)
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{5, 5, 5}, 1e-4), "got %v", cc.Position())
}
