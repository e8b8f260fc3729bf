package buffer

import "github.com/Carmen-Shannon/oxy-deferred/engine/gpu"

// ElementBuffer holds uint32 triangle indices.
type ElementBuffer struct {
	Buffer[uint32]
}

// NewElementBuffer creates an empty element buffer.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//
// Returns:
//   - *ElementBuffer: the new buffer
//   - error: an error if the handle could not be created
func NewElementBuffer(ctx gpu.Context) (*ElementBuffer, error) {
	b, err := newBuffer[uint32](ctx, gpu.BufferTargetElementArray)
	if err != nil {
		return nil, err
	}
	return &ElementBuffer{Buffer: b}, nil
}

// NewElementBufferWithData creates an element buffer and fills it. The handle is released if the fill fails.
//
// Parameters:
//   - ctx: the graphics context owning the handle
//   - indices: the initial indices
//
// Returns:
//   - *ElementBuffer: the new buffer
//   - error: an error if the handle could not be created or filled
func NewElementBufferWithData(ctx gpu.Context, indices []uint32) (*ElementBuffer, error) {
	b, err := NewElementBuffer(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.Fill(indices); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}
