// Package engine drives frames: it owns the window message loop, a fixed-rate tick loop and
// the deferred pipeline every active scene is rendered through.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"go.uber.org/zap"
)

// ErrNoPipeline is returned by Frame and Run when the engine was built without a pipeline.
var ErrNoPipeline = errors.New("engine has no pipeline")

// engine implements the Engine interface.
// Ticks are produced on their own goroutine and consumed by the frame, so every callback
// and every pipeline call happens on the goroutine running the frames.
type engine struct {
	log *zap.Logger

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	ticks           chan float32       // Tick deltas waiting for the next frame

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	pipeline deferred.Pipeline

	// present shows the finished frame, resize reallocates the framebuffer. Both are optional.
	present func()
	resize  func(width, height int) error

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	lastFrame        time.Time

	errMu sync.Mutex
	err   error
}

// Engine is the main entry point for the engine.
// It orchestrates the tick loop, the frame loop and window management.
type Engine interface {
	// Window returns the underlying window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Pipeline returns the deferred pipeline scenes are rendered through.
	//
	// Returns:
	//   - deferred.Pipeline: the pipeline
	Pipeline() deferred.Pipeline

	// Profiler returns the frame profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called for each engine tick. Ticks are
	// delivered at the start of the next frame, on the frame's goroutine.
	//
	// Parameters:
	//   - callback: function receiving the tick's delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame, before it is presented.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// The objects of all active scenes are rendered together, in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Resize reallocates the framebuffer through the resizer, then the pipeline's G-buffer.
	// Window resizes call it automatically.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: the resizer or pipeline error
	Resize(width, height int) error

	// Frame runs one frame: pending ticks, the update of every active scene, the deferred
	// passes over their objects, the render callback and presentation.
	//
	// Returns:
	//   - error: ErrNoPipeline, or the first scene or pipeline error
	Frame() error

	// Run starts the frame loop and blocks until the window closes or Quit is called.
	// With a window, frames run from the window's message loop on the calling goroutine.
	//
	// Returns:
	//   - error: the error that stopped the loop, nil on a regular shutdown
	Run() error

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (pipeline, window, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		ticks:           make(chan float32, 16),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Named("engine")
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.log.Named("profiler")))
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if err := e.Resize(width, height); err != nil {
				e.fail(err)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Pipeline() deferred.Pipeline {
	return e.pipeline
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Resize(width, height int) error {
	if e.resize != nil {
		if err := e.resize(width, height); err != nil {
			return fmt.Errorf("resize framebuffer: %w", err)
		}
	}
	if e.pipeline != nil {
		if err := e.pipeline.Resize(width, height); err != nil {
			return fmt.Errorf("resize pipeline: %w", err)
		}
	}
	e.log.Debug("resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (e *engine) Run() error {
	if e.pipeline == nil {
		return ErrNoPipeline
	}
	e.running.Store(true)
	e.lastFrame = time.Now()
	e.handle()

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				_ = e.window.Close()
				return
			default:
			}
			if err := e.step(); err != nil {
				e.fail(err)
				_ = e.window.Close()
			}
		})
		e.window.ProcessMessages()
	} else {
		e.handleHeadless()
	}

	e.signalQuit()
	e.wg.Wait()
	e.running.Store(false)
	return e.firstError()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// fail records the first error that stops the engine and signals quit.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.log.Error("engine stopped", zap.Error(err))
	e.signalQuit()
}

func (e *engine) firstError() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// handle launches the tick and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Queues a delta for the frame at the configured tick rate and listens for dynamic rate
// changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			// A frame slower than the queue drops ticks rather than stalling the loop.
			select {
			case e.ticks <- dt:
			default:
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleHeadless runs frames on the calling goroutine until quit.
func (e *engine) handleHeadless() {
	for {
		select {
		case <-e.quitChannel:
			return
		default:
			if err := e.step(); err != nil {
				e.fail(err)
				return
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// step runs one frame and applies the frame rate limit.
func (e *engine) step() error {
	start := time.Now()
	if err := e.Frame(); err != nil {
		return err
	}
	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
	return nil
}

func (e *engine) Frame() error {
	if e.pipeline == nil {
		return ErrNoPipeline
	}

	now := time.Now()
	if e.lastFrame.IsZero() {
		e.lastFrame = now
	}
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	for drained := false; !drained; {
		select {
		case tick := <-e.ticks:
			if e.tickCallback != nil {
				e.tickCallback(tick)
			}
		default:
			drained = true
		}
	}

	active := e.activeScenes()
	var objects []object.Object
	for _, s := range active {
		if err := s.Update(dt); err != nil {
			return err
		}
		objects = append(objects, s.Objects()...)
	}

	if len(active) > 0 {
		if err := e.pipeline.Render(objects); err != nil {
			return fmt.Errorf("render frame: %w", err)
		}
	}

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.present != nil {
		e.present()
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.AddDraws(len(objects))
		e.profiler.Tick()
	}
	return nil
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}

	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
