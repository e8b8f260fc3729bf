package buffer_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/buffer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponents(t *testing.T) {
	assert.Equal(t, 1, buffer.Components[float32]())
	assert.Equal(t, 1, buffer.Components[uint32]())
	assert.Equal(t, 2, buffer.Components[mgl32.Vec2]())
	assert.Equal(t, 3, buffer.Components[mgl32.Vec3]())
	assert.Equal(t, 4, buffer.Components[mgl32.Vec4]())
	assert.Equal(t, 16, buffer.Components[mgl32.Mat4]())
}

func TestVertexBuffer_UsageFollowsFills(t *testing.T) {
	dev := soft.New(1, 1)
	vb, err := buffer.NewVertexBuffer[mgl32.Vec3](dev)
	require.NoError(t, err)
	assert.Zero(t, vb.Count())

	require.NoError(t, vb.Fill([]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}))
	info, ok := dev.Buffer(vb.ID())
	require.True(t, ok)
	assert.Equal(t, gpu.UsageStatic, info.Usage)
	assert.Equal(t, gpu.UsageStatic, vb.Usage())
	assert.Equal(t, 24, info.Size)
	assert.Equal(t, 6, vb.Count())
	assert.Equal(t, 2, vb.ElementCount())

	require.NoError(t, vb.Fill([]mgl32.Vec3{{0, 0, 0}}))
	require.NoError(t, vb.Fill(nil))
	info, _ = dev.Buffer(vb.ID())
	assert.Equal(t, gpu.UsageDynamic, info.Usage)
	assert.Equal(t, gpu.UsageDynamic, vb.Usage())
	assert.Equal(t, 3, info.Uploads)
	assert.Zero(t, info.Size)
	assert.Zero(t, vb.Count())
}

func TestBuffer_DestroyReleasesOnce(t *testing.T) {
	dev := soft.New(1, 1)
	eb, err := buffer.NewElementBufferWithData(dev, []uint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, eb.Count())

	eb.Destroy()
	eb.Destroy()
	assert.True(t, eb.IsDestroyed())
	assert.Zero(t, eb.Count())
	assert.Equal(t, 1, dev.Stats().BuffersDeleted)
	assert.Zero(t, dev.LiveBuffers())

	assert.ErrorIs(t, eb.Fill([]uint32{0, 1, 2}), buffer.ErrDestroyed)
	assert.Equal(t, 1, dev.Stats().Uploads)
}

func TestInstanceBuffer_Matrices(t *testing.T) {
	dev := soft.New(1, 1)
	ib, err := buffer.NewInstanceBufferWithData(dev, []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(1, 2, 3)})
	require.NoError(t, err)
	t.Cleanup(ib.Destroy)

	assert.Equal(t, 2, ib.ElementCount())
	assert.Equal(t, 32, ib.Count())
	info, _ := dev.Buffer(ib.ID())
	assert.Equal(t, 128, info.Size)
}

func TestUniformBuffer(t *testing.T) {
	dev := soft.New(1, 1)
	ub, err := buffer.NewUniformBuffer(dev, 64)
	require.NoError(t, err)

	info, ok := dev.Buffer(ub.ID())
	require.True(t, ok)
	assert.Equal(t, 64, info.Size)
	assert.Equal(t, gpu.UsageStatic, info.Usage)
	assert.Equal(t, 64, ub.Size())

	assert.Error(t, ub.Update(make([]byte, 16)))
	require.NoError(t, ub.Update(make([]byte, 64)))
	assert.Equal(t, gpu.UsageDynamic, ub.Usage())

	ub.Destroy()
	ub.Destroy()
	assert.ErrorIs(t, ub.Update(make([]byte, 64)), buffer.ErrDestroyed)
	assert.Zero(t, dev.LiveBuffers())
}

func TestNewWithData_LimitReached(t *testing.T) {
	dev := soft.New(1, 1, soft.WithMaxBuffers(1))
	vb, err := buffer.NewVertexBufferWithData(dev, []float32{1})
	require.NoError(t, err)

	_, err = buffer.NewVertexBufferWithData(dev, []float32{2})
	assert.ErrorIs(t, err, soft.ErrLimitReached)
	_, err = buffer.NewUniformBuffer(dev, 16)
	assert.ErrorIs(t, err, soft.ErrLimitReached)
	assert.Equal(t, 1, dev.LiveBuffers())

	vb.Destroy()
	assert.Zero(t, dev.LiveBuffers())
}
