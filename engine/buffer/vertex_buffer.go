package buffer

import "github.com/Carmen-Shannon/oxy-deferred/engine/gpu"

// VertexBuffer holds one per-vertex attribute stream.
type VertexBuffer[T Element] struct {
	Buffer[T]
}

// NewVertexBuffer creates an empty vertex buffer.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//
// Returns:
//   - *VertexBuffer[T]: the new buffer
//   - error: an error if the handle could not be created
func NewVertexBuffer[T Element](ctx gpu.Context) (*VertexBuffer[T], error) {
	b, err := newBuffer[T](ctx, gpu.BufferTargetArray)
	if err != nil {
		return nil, err
	}
	return &VertexBuffer[T]{Buffer: b}, nil
}

// NewVertexBufferWithData creates a vertex buffer and fills it. The handle is released if the fill fails.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//   - data: the initial contents
//
// Returns:
//   - *VertexBuffer[T]: the new buffer
//   - error: an error if the handle could not be created or filled
func NewVertexBufferWithData[T Element](ctx gpu.Context, data []T) (*VertexBuffer[T], error) {
	b, err := NewVertexBuffer[T](ctx)
	if err != nil {
		return nil, err
	}
	if err := b.Fill(data); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}
