package buffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// UniformBuffer holds the raw bytes of one uniform block, laid out by a GPU type's Marshal.
type UniformBuffer struct {
	handle
	size int
}

// NewUniformBuffer creates a uniform buffer and zero-fills it to size bytes.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//   - size: the block size in bytes
//
// Returns:
//   - *UniformBuffer: the new buffer
//   - error: an error if the handle could not be created or filled
func NewUniformBuffer(ctx gpu.Context, size int) (*UniformBuffer, error) {
	h, err := newHandle(ctx, gpu.BufferTargetUniform)
	if err != nil {
		return nil, err
	}
	u := &UniformBuffer{handle: h, size: size}
	if err := u.upload(make([]byte, size)); err != nil {
		u.Destroy()
		return nil, err
	}
	return u, nil
}

// ID returns the underlying GPU handle.
func (u *UniformBuffer) ID() gpu.BufferID {
	return u.id
}

// Size returns the block size in bytes.
func (u *UniformBuffer) Size() int {
	return u.size
}

// Update replaces the block contents. data must be exactly Size bytes.
//
// Parameters:
//   - data: the marshaled block
//
// Returns:
//   - error: an error on size mismatch, ErrDestroyed after Destroy, or the context's upload error
func (u *UniformBuffer) Update(data []byte) error {
	if len(data) != u.size {
		return fmt.Errorf("uniform block is %d bytes, got %d", u.size, len(data))
	}
	return u.upload(data)
}

// Usage returns the usage hint of the last successful upload.
func (u *UniformBuffer) Usage() gpu.Usage {
	return u.usage
}

// Destroy releases the GPU handle. Later calls are no-ops.
func (u *UniformBuffer) Destroy() {
	u.release()
}
