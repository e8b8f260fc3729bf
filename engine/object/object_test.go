package object_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
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

// recorder is an Object that records the materials it was rendered with.
type recorder struct {
	name        string
	transparent bool
	err         error
	bounds      common.AABB
	rendered    *[]string
}

func (r *recorder) AABB() common.AABB { return r.bounds }

func (r *recorder) Render(cam camera.Camera, lights []light.Light) error {
	*r.rendered = append(*r.rendered, r.name)
	return r.err
}

func (r *recorder) RenderWithMaterial(m material.Material, cam camera.Camera, lights []light.Light) error {
	*r.rendered = append(*r.rendered, r.name+":"+m.Kind())
	return r.err
}

func (r *recorder) IsTransparent() bool { return r.transparent }

func TestRenderAll(t *testing.T) {
	var rendered []string
	boom := errors.New("boom")
	objects := []object.Object{
		&recorder{name: "a", rendered: &rendered},
		&recorder{name: "glass", transparent: true, rendered: &rendered},
		&recorder{name: "b", err: boom, rendered: &rendered},
		&recorder{name: "c", rendered: &rendered},
	}

	err := object.RenderAll(objects, nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "object 2")
	assert.Equal(t, []string{"a", "b"}, rendered)

	rendered = nil
	require.ErrorIs(t, object.RenderDepthAll(objects, nil), boom)
	assert.Equal(t, []string{"a:depth", "b:depth"}, rendered)

	assert.Len(t, object.Opaque(objects), 3)
}

func TestBounds(t *testing.T) {
	var rendered []string
	objects := []object.Object{
		&recorder{bounds: common.NewAABB(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{1, 1, 1}), rendered: &rendered},
		&recorder{bounds: common.NewAABB(mgl32.Vec3{0, -3, 0}, mgl32.Vec3{2, 0, 0}), rendered: &rendered},
	}
	b := object.Bounds(objects)
	assert.Equal(t, mgl32.Vec3{-1, -3, 0}, b.Min)
	assert.Equal(t, mgl32.Vec3{2, 1, 1}, b.Max)
	assert.True(t, object.Bounds(nil).IsEmpty())
}

func TestShape_DelegatesToParts(t *testing.T) {
	dev := soft.New(16, 16, soft.WithWorkers(1))
	cache := program.NewCache(dev)
	cam := camera.NewCamera()
	defer cam.Destroy()

	mesh, err := geometry.NewMesh(dev, cache, geometry.NewCube(2))
	require.NoError(t, err)
	opaque := object.NewShape(mesh, material.NewColorMaterial(mgl32.Vec4{1, 1, 1, 1}))
	glass := object.NewShape[geometry.Mesh](mesh, material.NewColorMaterial(mgl32.Vec4{1, 1, 1, 0.5}))

	assert.False(t, opaque.IsTransparent())
	assert.True(t, glass.IsTransparent())
	assert.Equal(t, mesh.AABB(), opaque.AABB())

	objects := []object.Object{opaque, glass}
	require.NoError(t, object.RenderAll(objects, cam, nil))
	assert.Equal(t, 1, dev.Stats().Draws)

	require.NoError(t, object.RenderDepthAll(objects, cam))
	assert.Equal(t, 2, dev.Stats().Draws)
	assert.Equal(t, 2, cache.Len())

	opaque.Destroy()
	assert.Zero(t, cache.Len())
	assert.Zero(t, dev.LivePrograms())
}
