package scene_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubObject struct {
	name      string
	destroyed *atomic.Int32
}

func (o *stubObject) AABB() common.AABB                         { return common.EmptyAABB() }
func (o *stubObject) Render(camera.Camera, []light.Light) error { return nil }
func (o *stubObject) IsTransparent() bool                       { return false }
func (o *stubObject) RenderWithMaterial(material.Material, camera.Camera, []light.Light) error {
	return nil
}
func (o *stubObject) Destroy() {
	if o.destroyed != nil {
		o.destroyed.Add(1)
	}
}

type countingTarget struct{ calls atomic.Int32 }

func (c *countingTarget) SetTransformation(mgl32.Mat4) { c.calls.Add(1) }

// stubPipeline records the objects handed to Render. Every other method panics.
type stubPipeline struct {
	deferred.Pipeline
	rendered []object.Object
	err      error
}

func (p *stubPipeline) Render(objects []object.Object) error {
	p.rendered = objects
	return p.err
}

func newScene(opts ...scene.SceneBuilderOption) scene.Scene {
	return scene.NewScene("test", append([]scene.SceneBuilderOption{scene.WithLogger(zap.NewNop()), scene.WithUpdateWorkers(2)}, opts...)...)
}

func TestScene_Registry(t *testing.T) {
	s := newScene()
	defer s.Destroy()

	a := game_object.NewGameObject(&stubObject{name: "a"})
	b := game_object.NewGameObject(&stubObject{name: "b"}, game_object.WithID(5))

	idA, err := s.Add(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idA)
	assert.Equal(t, uint64(1), a.ID())

	idB, err := s.Add(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), idB)

	_, err = s.Add(game_object.NewGameObject(&stubObject{}, game_object.WithID(5)))
	assert.Error(t, err)

	assert.Equal(t, 2, s.Count())
	assert.Same(t, b, s.Get(5))
	assert.Equal(t, []game_object.GameObject{a, b}, s.GameObjects())

	assert.Same(t, a, s.Remove(1))
	assert.Nil(t, s.Remove(1))
	assert.Nil(t, s.Get(1))

	s.Clear()
	assert.Zero(t, s.Count())
}

func TestScene_UpdateAndRender(t *testing.T) {
	targets := make([]*countingTarget, 8)
	var objects []game_object.GameObject
	for i := range targets {
		targets[i] = &countingTarget{}
		objects = append(objects, game_object.NewGameObject(&stubObject{name: fmt.Sprint(i)}, game_object.WithTarget(targets[i])))
	}
	objects[3].SetEnabled(false)

	var updates int
	s := newScene(scene.WithObjects(objects...), scene.WithUpdateFunc(func(s scene.Scene, dt float32) error {
		updates++
		assert.InDelta(t, 0.25, dt, 1e-6)
		return nil
	}))
	defer s.Destroy()

	require.NoError(t, s.Update(0.25))
	assert.Equal(t, 1, updates)
	for i, target := range targets {
		want := int32(1)
		if i == 3 {
			want = 0
		}
		assert.Equal(t, want, target.calls.Load(), "object %d", i)
	}

	p := &stubPipeline{}
	require.NoError(t, s.Render(p))
	require.Len(t, p.rendered, 7)
	assert.NotContains(t, p.rendered, objects[3].Object())

	p.err = deferred.ErrPipelineOutOfOrder
	assert.ErrorIs(t, s.Render(p), deferred.ErrPipelineOutOfOrder)

	boom := errors.New("boom")
	s.SetUpdateFunc(func(scene.Scene, float32) error { return boom })
	assert.ErrorIs(t, s.Update(0.25), boom)
}

func TestScene_Destroy(t *testing.T) {
	var destroyed atomic.Int32
	s := newScene(scene.WithObjects(
		game_object.NewGameObject(&stubObject{destroyed: &destroyed}),
		game_object.NewGameObject(&stubObject{destroyed: &destroyed}),
	))

	s.Destroy()
	s.Destroy()
	assert.Equal(t, int32(2), destroyed.Load())
	assert.Zero(t, s.Count())
}

func TestScene_Flags(t *testing.T) {
	s := newScene(scene.WithActive(true))
	defer s.Destroy()

	assert.True(t, s.Active())
	s.SetActive(false)
	assert.False(t, s.Active())

	s.SetName("other")
	assert.Equal(t, "other", s.Name())
}
