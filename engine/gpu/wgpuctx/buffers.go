package wgpuctx

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// bufferObject is a gpu.BufferID's device allocation. The allocation is replaced whenever an
// upload changes its size, so size always equals the last upload.
type bufferObject struct {
	buffer *wgpu.Buffer
	size   int
	usage  wgpu.BufferUsage
}

func (b *bufferObject) release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

// bufferUsage maps a binding point to the WebGPU usage flags of buffers filled through it.
func bufferUsage(target gpu.BufferTarget) wgpu.BufferUsage {
	switch target {
	case gpu.BufferTargetElementArray:
		return wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	case gpu.BufferTargetUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	}
}

func (c *contextImpl) CreateBuffer() (gpu.BufferID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := gpu.BufferID(c.newID())
	c.buffers[id] = &bufferObject{}
	return id, nil
}

func (c *contextImpl) DeleteBuffer(id gpu.BufferID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buffers[id]
	if !ok {
		return
	}
	b.release()
	delete(c.buffers, id)
	for target, bound := range c.bound {
		if bound == id {
			delete(c.bound, target)
		}
	}
}

func (c *contextImpl) BindBuffer(target gpu.BufferTarget, id gpu.BufferID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound[target] = id
}

func (c *contextImpl) UnbindBuffer(target gpu.BufferTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bound, target)
}

func (c *contextImpl) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buffers[c.bound[target]]
	if !ok {
		return fmt.Errorf("no buffer bound at %s", target)
	}
	flags := bufferUsage(target)
	if b.buffer == nil || b.size != len(data) || b.usage != flags {
		b.release()
		b.size = 0
		if len(data) == 0 {
			return nil
		}
		buf, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s %s Buffer", usage, target),
			Size:  uint64(len(data)),
			Usage: flags,
		})
		if err != nil {
			return fmt.Errorf("failed to allocate %s buffer: %w", target, err)
		}
		b.buffer, b.size, b.usage = buf, len(data), flags
	}
	if err := c.queue.WriteBuffer(b.buffer, 0, data); err != nil {
		return fmt.Errorf("failed to write %s buffer: %w", target, err)
	}
	return nil
}
