package game_object_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTarget struct {
	m     mgl32.Mat4
	calls int
}

func (s *stubTarget) SetTransformation(m mgl32.Mat4) {
	s.m = m
	s.calls++
}

type stubObject struct{}

func (stubObject) AABB() common.AABB                         { return common.EmptyAABB() }
func (stubObject) Render(camera.Camera, []light.Light) error { return nil }
func (stubObject) IsTransparent() bool                       { return false }
func (stubObject) RenderWithMaterial(material.Material, camera.Camera, []light.Light) error {
	return nil
}

func TestNewGameObject_Defaults(t *testing.T) {
	g := game_object.NewGameObject(stubObject{})

	assert.True(t, g.Enabled())
	assert.Zero(t, g.ID())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, g.Scale())
	assert.Equal(t, mgl32.Ident4(), g.Transformation())
	assert.Nil(t, g.Light())
}

func TestGameObject_Transformation(t *testing.T) {
	g := game_object.NewGameObject(stubObject{},
		game_object.WithPosition(mgl32.Vec3{1, 2, 3}),
		game_object.WithRotation(mgl32.Vec3{0, math32.Pi / 2, 0}),
		game_object.WithScale(mgl32.Vec3{2, 2, 2}),
	)

	// +X scaled by 2, turned a quarter around Y onto -Z, then translated.
	got := g.Transformation().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec3{1, 2, 1}, 1e-5), "got %v", got)
}

func TestGameObject_Update(t *testing.T) {
	target := &stubTarget{}
	l := light.NewLight(light.LightTypePoint)
	g := game_object.NewGameObject(stubObject{},
		game_object.WithTarget(target),
		game_object.WithPosition(mgl32.Vec3{0, 1, 0}),
		game_object.WithRotationSpeed(mgl32.Vec3{0, 1, 0}),
		game_object.WithLight(l, mgl32.Vec3{0, 2, 0}),
	)

	g.Update(0.5)
	require.Equal(t, 1, target.calls)
	assert.InDelta(t, 0.5, g.Rotation()[1], 1e-6)
	assert.Equal(t, g.Transformation(), target.m)
	assert.Equal(t, mgl32.Vec3{0, 3, 0}, l.Position())

	g.SetPosition(mgl32.Vec3{4, 0, 0})
	g.Update(0.5)
	assert.InDelta(t, 1.0, g.Rotation()[1], 1e-6)
	assert.Equal(t, mgl32.Vec3{4, 2, 0}, l.Position())

	g.SetLight(nil, mgl32.Vec3{})
	g.SetEnabled(false)
	g.Update(0)
	assert.False(t, g.Enabled())
	assert.Equal(t, 3, target.calls)
}
