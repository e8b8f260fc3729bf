// Package window opens the desktop window the WebGPU context presents into and turns its
// input into engine callbacks.
package window

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Window provides platform windowing and input event handling.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving the new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key code, see common.Key*
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key code, see common.Key*
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetDragCallback sets the callback for cursor movement while the left button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor movement in pixels since the last event
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for the window, created by the
	// wgpuglfw bridge for the current platform.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: true until the window is closed or Escape is pressed
	IsRunning() bool

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: an error if the window was already closed
	Close() error

	// ProcessMessages runs the message loop until the window closes, calling the update
	// callback once per iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

type windowImpl struct {
	log *zap.Logger

	title               string
	minWidth, minHeight int
	maxWidth, maxHeight int
	width, height       int
	platform            *glfwWindow
	dragging            bool
	cursorX, cursorY    float64

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
	onDrag    func(dx, dy float32)
}

var _ Window = &windowImpl{}

// NewWindow creates and shows a window. Must be called from the main goroutine; the calling
// goroutine is locked to its OS thread.
//
// Parameters:
//   - opts: variadic list of WindowBuilderOption functions
//
// Returns:
//   - Window: the open window
//   - error: an error if the platform window could not be created
func NewWindow(opts ...WindowBuilderOption) (Window, error) {
	w := &windowImpl{
		title:     "Oxy",
		minWidth:  320,
		minHeight: 200,
		maxWidth:  3840,
		maxHeight: 2160,
		width:     1280,
		height:    720,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	w.log = w.log.Named("window")

	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	w.log.Info("window opened",
		zap.String("title", w.title),
		zap.Int("width", w.width),
		zap.Int("height", w.height),
	)
	return w, nil
}

func (w *windowImpl) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *windowImpl) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *windowImpl) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *windowImpl) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *windowImpl) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *windowImpl) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *windowImpl) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformSurfaceDescriptor(w)
}

func (w *windowImpl) IsRunning() bool {
	return platformIsRunning(w)
}

func (w *windowImpl) Close() error {
	if err := platformClose(w); err != nil {
		return err
	}
	w.log.Info("window closed")
	return nil
}

func (w *windowImpl) ProcessMessages() {
	for w.IsRunning() {
		if !platformPollEvents(w) {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *windowImpl) Width() int {
	return w.width
}

func (w *windowImpl) Height() int {
	return w.height
}

// cursorMoved turns cursor positions into drag deltas while the drag button is held.
func (w *windowImpl) cursorMoved(x, y float64) {
	dx, dy := x-w.cursorX, y-w.cursorY
	w.cursorX, w.cursorY = x, y
	if w.dragging && w.onDrag != nil {
		w.onDrag(float32(dx), float32(dy))
	}
}

// resized records a framebuffer size change. Minimized windows report zero and are ignored.
func (w *windowImpl) resized(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
