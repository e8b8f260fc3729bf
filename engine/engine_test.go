package engine_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type namedObject string

func (namedObject) AABB() common.AABB                         { return common.EmptyAABB() }
func (namedObject) Render(camera.Camera, []light.Light) error { return nil }
func (namedObject) IsTransparent() bool                       { return false }
func (namedObject) RenderWithMaterial(material.Material, camera.Camera, []light.Light) error {
	return nil
}

// stubPipeline records Render and Resize calls. Every other method panics.
type stubPipeline struct {
	deferred.Pipeline
	frames  [][]object.Object
	sizes   [][2]int
	failAt  int
	failErr error
}

func (p *stubPipeline) Render(objects []object.Object) error {
	p.frames = append(p.frames, objects)
	if p.failErr != nil && len(p.frames) >= p.failAt {
		return p.failErr
	}
	return nil
}

func (p *stubPipeline) Resize(width, height int) error {
	p.sizes = append(p.sizes, [2]int{width, height})
	return nil
}

func sceneWith(t *testing.T, active bool, names ...string) scene.Scene {
	t.Helper()
	s := scene.NewScene(names[0], scene.WithActive(active), scene.WithLogger(zap.NewNop()), scene.WithUpdateWorkers(1))
	for _, n := range names {
		_, err := s.Add(game_object.NewGameObject(namedObject(n)))
		require.NoError(t, err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func TestFrame_MergesActiveScenes(t *testing.T) {
	p := &stubPipeline{}
	presented := 0
	e := engine.NewEngine(
		engine.WithLogger(zap.NewNop()),
		engine.WithPipeline(p),
		engine.WithPresenter(func() { presented++ }),
		engine.WithScene(2, sceneWith(t, true, "c")),
		engine.WithScene(1, sceneWith(t, true, "a", "b")),
		engine.WithScene(0, sceneWith(t, false, "hidden")),
	)

	require.NoError(t, e.Frame())
	require.Len(t, p.frames, 1)
	assert.Equal(t, []object.Object{namedObject("a"), namedObject("b"), namedObject("c")}, p.frames[0])
	assert.Equal(t, 1, presented)

	e.Scene(1).SetActive(false)
	e.Scene(2).SetActive(false)
	require.NoError(t, e.Frame())
	assert.Len(t, p.frames, 1, "no active scene renders nothing")
	assert.Equal(t, 2, presented)
}

func TestFrame_NoPipeline(t *testing.T) {
	e := engine.NewEngine(engine.WithLogger(zap.NewNop()))
	assert.ErrorIs(t, e.Frame(), engine.ErrNoPipeline)
	assert.ErrorIs(t, e.Run(), engine.ErrNoPipeline)
}

func TestRun_Headless(t *testing.T) {
	p := &stubPipeline{}
	e := engine.NewEngine(
		engine.WithLogger(zap.NewNop()),
		engine.WithPipeline(p),
		engine.WithScene(0, sceneWith(t, true, "a")),
	)

	frames := 0
	e.SetRenderCallback(func(float32) {
		frames++
		if frames == 3 {
			e.Quit()
		}
	})

	require.NoError(t, e.Run())
	assert.Equal(t, 3, frames)
	assert.Len(t, p.frames, 3)
}

func TestRun_StopsOnPipelineError(t *testing.T) {
	boom := errors.New("boom")
	p := &stubPipeline{failAt: 2, failErr: boom}
	e := engine.NewEngine(
		engine.WithLogger(zap.NewNop()),
		engine.WithPipeline(p),
		engine.WithScene(0, sceneWith(t, true, "a")),
	)

	err := e.Run()
	require.ErrorIs(t, err, boom)
	assert.Len(t, p.frames, 2)
}

func TestResize(t *testing.T) {
	p := &stubPipeline{}
	var resized [2]int
	e := engine.NewEngine(
		engine.WithLogger(zap.NewNop()),
		engine.WithPipeline(p),
		engine.WithFramebufferResizer(func(w, h int) error {
			resized = [2]int{w, h}
			return nil
		}),
	)

	require.NoError(t, e.Resize(640, 480))
	assert.Equal(t, [2]int{640, 480}, resized)
	assert.Equal(t, [][2]int{{640, 480}}, p.sizes)

	fail := engine.NewEngine(
		engine.WithLogger(zap.NewNop()),
		engine.WithPipeline(p),
		engine.WithFramebufferResizer(func(int, int) error { return errors.New("lost device") }),
	)
	assert.Error(t, fail.Resize(1, 1))
	assert.Len(t, p.sizes, 1, "pipeline is not resized when the framebuffer fails")
}
