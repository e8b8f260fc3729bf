// Package wgpuctx implements gpu.Context on WebGPU.
//
// Every Clear and Draw is recorded into its own command encoder and submitted straight
// away, so uniform values and buffer contents written between draws are seen by exactly
// the draws that follow them. Render pipelines are created lazily per program, render
// target layout and render state.
package wgpuctx

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Context is a gpu.Context backed by a WebGPU device.
type Context interface {
	gpu.Context

	// Resize reconfigures the surface and reallocates the default render target.
	//
	// Parameters:
	//   - width: the new framebuffer width in pixels
	//   - height: the new framebuffer height in pixels
	//
	// Returns:
	//   - error: an error if the new attachments could not be created
	Resize(width, height int) error

	// Present displays the surface image drawn since the last Present. Without a surface
	// it only ends the frame.
	Present()

	// Device returns the underlying WebGPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Release frees every resource the context still owns, then the device itself.
	Release()
}

type contextImpl struct {
	mu  sync.Mutex
	log *zap.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	surfaceFormat        wgpu.TextureFormat

	width, height int

	// frame is the default render target. Its colour attachment is the current surface
	// image, acquired on first use each frame, or an off-screen texture without a surface.
	frame          *renderTarget
	surfaceTexture *wgpu.Texture

	nextID   uint32
	buffers  map[gpu.BufferID]*bufferObject
	bound    map[gpu.BufferTarget]gpu.BufferID
	programs map[gpu.ProgramID]*programObject
	textures map[gpu.TextureID]*textureObject
	targets  map[gpu.RenderTargetID]*renderTarget
	current  gpu.RenderTargetID
}

var _ Context = &contextImpl{}

// New creates a WebGPU context. The calling goroutine is locked to its OS thread, all
// later calls must come from it.
//
// Parameters:
//   - opts: variadic list of ContextBuilderOption functions
//
// Returns:
//   - Context: the context
//   - error: an error if no adapter or device could be obtained
func New(opts ...ContextBuilderOption) (Context, error) {
	runtime.LockOSThread()
	c := &contextImpl{
		presentMode: wgpu.PresentModeImmediate,
		width:       1280,
		height:      720,
		buffers:     make(map[gpu.BufferID]*bufferObject),
		bound:       make(map[gpu.BufferTarget]gpu.BufferID),
		programs:    make(map[gpu.ProgramID]*programObject),
		textures:    make(map[gpu.TextureID]*textureObject),
		targets:     make(map[gpu.RenderTargetID]*renderTarget),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("wgpu")
	} else {
		c.log = c.log.Named("wgpu")
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, fmt.Errorf("invalid framebuffer size %dx%d", c.width, c.height)
	}

	c.instance = wgpu.CreateInstance(nil)
	if c.surfaceDescriptor != nil {
		c.surface = c.instance.CreateSurface(c.surfaceDescriptor)
	}

	adapter, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: c.forceFallbackAdapter,
		CompatibleSurface:    c.surface,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	c.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	c.device = device
	c.queue = device.GetQueue()

	if err := c.configure(c.width, c.height); err != nil {
		c.Release()
		return nil, err
	}
	c.log.Info("context created",
		zap.Int("width", c.width),
		zap.Int("height", c.height),
		zap.Bool("surface", c.surface != nil),
	)
	return c, nil
}

// configure sizes the surface and recreates the default target's owned attachments.
func (c *contextImpl) configure(width, height int) error {
	c.releaseFrame()

	format := wgpu.TextureFormatRGBA8Unorm
	if c.surface != nil {
		capabilities := c.surface.GetCapabilities(c.adapter)
		format = capabilities.Formats[0]
		c.surface.Configure(c.adapter, c.device, &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      format,
			Width:       uint32(width),
			Height:      uint32(height),
			PresentMode: c.presentMode,
			AlphaMode:   capabilities.AlphaModes[0],
		})
	}
	c.surfaceFormat = format

	frame := &renderTarget{width: width, height: height}
	if c.surface == nil {
		color, err := c.newTexture(gpu.TextureDescriptor{
			Label:            "Offscreen Frame",
			Width:            uint32(width),
			Height:           uint32(height),
			Format:           gpu.TextureFormatRGBA8,
			RenderAttachment: true,
		})
		if err != nil {
			return err
		}
		frame.colors = []*textureObject{color}
	}
	depth, err := c.newTexture(gpu.TextureDescriptor{
		Label:            "Frame Depth",
		Width:            uint32(width),
		Height:           uint32(height),
		Format:           gpu.TextureFormatDepth32F,
		RenderAttachment: true,
	})
	if err != nil {
		for _, t := range frame.colors {
			t.release()
		}
		return err
	}
	frame.depth = depth

	c.frame = frame
	c.width, c.height = width, height
	return nil
}

// releaseFrame drops the default target, presenting nothing.
func (c *contextImpl) releaseFrame() {
	c.dropSurfaceTexture()
	if c.frame == nil {
		return
	}
	for _, t := range c.frame.colors {
		t.release()
	}
	if c.frame.depth != nil {
		c.frame.depth.release()
	}
	c.frame = nil
}

func (c *contextImpl) dropSurfaceTexture() {
	if c.surfaceTexture == nil {
		return
	}
	c.surfaceTexture.Release()
	c.surfaceTexture = nil
}

func (c *contextImpl) Resize(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid framebuffer size %dx%d", width, height)
	}
	if err := c.configure(width, height); err != nil {
		return err
	}
	c.log.Debug("framebuffer resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (c *contextImpl) Present() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surfaceTexture == nil {
		return
	}
	c.surface.Present()
	c.dropSurfaceTexture()
}

func (c *contextImpl) Device() *wgpu.Device {
	return c.device
}

func (c *contextImpl) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.programs {
		c.deleteProgram(id)
	}
	for id, b := range c.buffers {
		b.release()
		delete(c.buffers, id)
	}
	for id, t := range c.textures {
		t.release()
		delete(c.textures, id)
	}
	clear(c.targets)
	c.releaseFrame()

	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

func (c *contextImpl) newID() uint32 {
	c.nextID++
	return c.nextID
}

func (c *contextImpl) FramebufferSize() (int, int) {
	return c.width, c.height
}
