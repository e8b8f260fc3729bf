// Package buffer wraps GPU buffer handles. Every wrapper owns exactly one handle,
// tracks how many elements its last fill uploaded, and releases the handle exactly once.
package buffer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrDestroyed is returned when a destroyed buffer is filled.
var ErrDestroyed = errors.New("buffer has been destroyed")

// Element is the set of value types a typed buffer can hold. All of them are tightly
// packed float32 or uint32 components.
type Element interface {
	float32 | uint32 | mgl32.Vec2 | mgl32.Vec3 | mgl32.Vec4 | mgl32.Mat4
}

// Components returns the number of scalar components in one element of type T.
func Components[T Element]() int {
	var zero T
	switch any(zero).(type) {
	case mgl32.Vec2:
		return 2
	case mgl32.Vec3:
		return 3
	case mgl32.Vec4:
		return 4
	case mgl32.Mat4:
		return 16
	default:
		return 1
	}
}

// handle is the untyped core shared by all buffer wrappers.
type handle struct {
	ctx       gpu.Context
	id        gpu.BufferID
	target    gpu.BufferTarget
	fills     int
	usage     gpu.Usage
	destroyed bool
}

func newHandle(ctx gpu.Context, target gpu.BufferTarget) (handle, error) {
	id, err := ctx.CreateBuffer()
	if err != nil {
		return handle{}, fmt.Errorf("failed to create %s buffer: %w", target, err)
	}
	return handle{ctx: ctx, id: id, target: target}, nil
}

// upload binds the handle, replaces its contents and unbinds it again. The first upload
// is hinted static, every later one dynamic.
func (h *handle) upload(data []byte) error {
	if h.destroyed {
		return ErrDestroyed
	}
	usage := gpu.UsageStatic
	if h.fills > 0 {
		usage = gpu.UsageDynamic
	}
	h.ctx.BindBuffer(h.target, h.id)
	err := h.ctx.BufferData(h.target, data, usage)
	h.ctx.UnbindBuffer(h.target)
	if err != nil {
		return fmt.Errorf("failed to fill %s buffer: %w", h.target, err)
	}
	h.fills++
	h.usage = usage
	return nil
}

func (h *handle) release() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.ctx.DeleteBuffer(h.id)
}

// Buffer is a typed buffer of elements of type T bound at one target.
type Buffer[T Element] struct {
	handle
	elements int
}

func newBuffer[T Element](ctx gpu.Context, target gpu.BufferTarget) (Buffer[T], error) {
	h, err := newHandle(ctx, target)
	if err != nil {
		return Buffer[T]{}, err
	}
	return Buffer[T]{handle: h}, nil
}

// ID returns the underlying GPU handle.
func (b *Buffer[T]) ID() gpu.BufferID {
	return b.id
}

// Fill replaces the buffer contents. The element count only changes once the upload succeeded.
//
// Parameters:
//   - data: the new contents, may be empty
//
// Returns:
//   - error: ErrDestroyed after Destroy, or the context's upload error
func (b *Buffer[T]) Fill(data []T) error {
	if err := b.upload(common.SliceToBytes(data)); err != nil {
		return err
	}
	b.elements = len(data)
	return nil
}

// Count returns the number of scalar components uploaded by the last fill.
func (b *Buffer[T]) Count() int {
	return b.elements * Components[T]()
}

// ElementCount returns the number of elements uploaded by the last fill.
func (b *Buffer[T]) ElementCount() int {
	return b.elements
}

// Usage returns the usage hint of the last successful fill.
func (b *Buffer[T]) Usage() gpu.Usage {
	return b.usage
}

// IsDestroyed reports whether Destroy has been called.
func (b *Buffer[T]) IsDestroyed() bool {
	return b.destroyed
}

// Destroy releases the GPU handle. Later calls are no-ops.
func (b *Buffer[T]) Destroy() {
	b.release()
	b.elements = 0
}
