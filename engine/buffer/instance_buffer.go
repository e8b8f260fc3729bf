package buffer

import "github.com/Carmen-Shannon/oxy-deferred/engine/gpu"

// InstanceBuffer holds one per-instance attribute stream. Instance data is usually rewritten
// every frame, so all fills after the first are hinted dynamic.
type InstanceBuffer[T Element] struct {
	Buffer[T]
}

// NewInstanceBuffer creates an empty instance buffer.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//
// Returns:
//   - *InstanceBuffer[T]: the new buffer
//   - error: an error if the handle could not be created
func NewInstanceBuffer[T Element](ctx gpu.Context) (*InstanceBuffer[T], error) {
	b, err := newBuffer[T](ctx, gpu.BufferTargetArray)
	if err != nil {
		return nil, err
	}
	return &InstanceBuffer[T]{Buffer: b}, nil
}

// NewInstanceBufferWithData creates an instance buffer and fills it. The handle is released if the fill fails.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//   - data: the initial contents
//
// Returns:
//   - *InstanceBuffer[T]: the new buffer
//   - error: an error if the handle could not be created or filled
func NewInstanceBufferWithData[T Element](ctx gpu.Context, data []T) (*InstanceBuffer[T], error) {
	b, err := NewInstanceBuffer[T](ctx)
	if err != nil {
		return nil, err
	}
	if err := b.Fill(data); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}
