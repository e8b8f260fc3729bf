package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 48, 32
	cfg.Render.ShadowMapResolution = 128
	return cfg
}

func TestDemo_BuildsAndReleases(t *testing.T) {
	cfg := smallConfig()
	dev := soft.New(cfg.Window.Width, cfg.Window.Height)

	d, err := newDemo(dev, cfg, cfg.Window.Width, cfg.Window.Height, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, d.scene.Count())
	require.Len(t, d.spinning, 1)
	assert.Equal(t, cfg.Scene.Spin, d.spinning[0].RotationSpeed().Y())

	sun, err := d.pipeline.DirectionalLight(0)
	require.NoError(t, err)
	assert.True(t, sun.IsShadowsEnabled())
	assert.Equal(t, float32(0.3), sun.Intensity())

	require.NoError(t, d.scene.Update(0.1))
	require.NoError(t, d.scene.Render(d.pipeline))

	require.NoError(t, d.toggleShadows())
	assert.False(t, sun.IsShadowsEnabled())
	require.NoError(t, d.toggleShadows())
	assert.True(t, sun.IsShadowsEnabled())

	d.togglePointLights()
	point, err := d.pipeline.PointLight(1)
	require.NoError(t, err)
	assert.False(t, point.Enabled())

	d.togglePause()
	assert.Zero(t, d.spinning[0].RotationSpeed().Y())
	d.togglePause()
	assert.Equal(t, cfg.Scene.Spin, d.spinning[0].RotationSpeed().Y())

	d.destroy()
	assert.Zero(t, dev.LiveBuffers())
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LivePrograms())
}

func TestRunHeadless_WritesFrame(t *testing.T) {
	cfg := smallConfig()
	out := filepath.Join(t.TempDir(), "frame.png")

	require.NoError(t, runHeadless(cfg, 2, out, zap.NewNop()))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, cfg.Window.Width, img.Bounds().Dx())
	assert.Equal(t, cfg.Window.Height, img.Bounds().Dy())
}

func TestRunHeadless_RejectsZeroFrames(t *testing.T) {
	assert.Error(t, runHeadless(smallConfig(), 0, filepath.Join(t.TempDir(), "x.png"), zap.NewNop()))
}
