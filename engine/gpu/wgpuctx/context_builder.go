package wgpuctx

import (
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// PresentMode controls how frames are delivered to the display.
type PresentMode int

const (
	// PresentModeUncapped presents immediately without waiting for vertical sync.
	PresentModeUncapped PresentMode = iota

	// PresentModeVSync waits for vertical sync.
	PresentModeVSync
)

// ContextBuilderOption is a function that configures a context during construction.
type ContextBuilderOption func(*contextImpl)

// WithSurface is an option builder that renders the default render target into a window surface.
// Without a surface the default target is an off-screen texture.
//
// Parameters:
//   - descriptor: the platform surface descriptor, e.g. from wgpuglfw.GetSurfaceDescriptor
//
// Returns:
//   - ContextBuilderOption: a function that applies the surface option
func WithSurface(descriptor *wgpu.SurfaceDescriptor) ContextBuilderOption {
	return func(c *contextImpl) {
		c.surfaceDescriptor = descriptor
	}
}

// WithSize is an option builder that sets the initial framebuffer size.
//
// Parameters:
//   - width: the framebuffer width in pixels
//   - height: the framebuffer height in pixels
//
// Returns:
//   - ContextBuilderOption: a function that applies the size option
func WithSize(width, height int) ContextBuilderOption {
	return func(c *contextImpl) {
		c.width = width
		c.height = height
	}
}

// WithPresentMode is an option builder that sets the surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use
//
// Returns:
//   - ContextBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) ContextBuilderOption {
	return func(c *contextImpl) {
		switch mode {
		case PresentModeVSync:
			c.presentMode = wgpu.PresentModeFifo
		default:
			c.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithForceFallbackAdapter is an option builder that requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - ContextBuilderOption: a function that applies the adapter option
func WithForceFallbackAdapter(force bool) ContextBuilderOption {
	return func(c *contextImpl) {
		c.forceFallbackAdapter = force
	}
}

// WithLogger is an option builder that sets the parent logger.
//
// Parameters:
//   - log: the logger the context derives its named logger from
//
// Returns:
//   - ContextBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) ContextBuilderOption {
	return func(c *contextImpl) {
		c.log = log
	}
}
