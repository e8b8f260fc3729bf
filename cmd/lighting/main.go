// Command lighting renders a lit scene through the deferred pipeline: a spinning object
// on a floor plane under two shadowing suns, two coloured point lights and a spot light.
//
// With a window it renders through WebGPU and accepts input:
//
//	drag    orbit the camera
//	scroll  zoom
//	P       toggle shadows
//	L       toggle point lights
//	R       reset the camera
//	Space   pause the spin
//	Esc     quit
//
// With -headless it renders a fixed number of frames on the CPU device and writes the
// last frame as a PNG.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/wgpuctx"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "TOML scene config, defaults to the built-in scene")
	headless := flag.Bool("headless", false, "render on the CPU device without a window")
	frames := flag.Int("frames", 1, "frames to render in headless mode")
	out := flag.String("out", "lighting.png", "PNG written by headless mode")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetLogger(log)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	if *headless {
		err = runHeadless(cfg, *frames, *out, log)
	} else {
		err = runWindowed(cfg, log)
	}
	if err != nil {
		log.Fatal("lighting", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	c := zap.NewProductionConfig()
	c.Encoding = "console"
	return c.Build()
}

// runHeadless renders frames on the software device and writes the last one to out.
func runHeadless(cfg Config, frames int, out string, log *zap.Logger) error {
	if frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", frames)
	}
	w, h := cfg.Window.Width, cfg.Window.Height
	dev := soft.New(w, h, soft.WithWorkers(cfg.Render.Workers))

	d, err := newDemo(dev, cfg, w, h, log)
	if err != nil {
		return err
	}
	defer d.destroy()

	rendered := 0
	e := engine.NewEngine(
		engine.WithPipeline(d.pipeline),
		engine.WithScene(0, d.scene),
		engine.WithProfiling(cfg.Render.Profile),
		engine.WithLogger(log.Named("engine")),
	)
	e.SetRenderCallback(func(float32) {
		rendered++
		if rendered >= frames {
			e.Quit()
		}
	})
	if err := e.Run(); err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := png.Encode(f, dev.Image()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	stats := dev.Stats()
	log.Info("frame written",
		zap.String("path", out),
		zap.Int("frames", rendered),
		zap.Int("draws", stats.Draws),
		zap.Int("programs", stats.ProgramsCreated),
	)
	return nil
}

// runWindowed opens a window and renders through WebGPU until it is closed.
func runWindowed(cfg Config, log *zap.Logger) error {
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithLogger(log.Named("window")),
	)
	if err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	defer func() { _ = win.Close() }()

	w, h := win.Width(), win.Height()
	ctx, err := wgpuctx.New(
		wgpuctx.WithSurface(win.SurfaceDescriptor()),
		wgpuctx.WithSize(w, h),
		wgpuctx.WithLogger(log.Named("wgpu")),
	)
	if err != nil {
		return fmt.Errorf("create graphics context: %w", err)
	}
	defer ctx.Release()

	d, err := newDemo(ctx, cfg, w, h, log)
	if err != nil {
		return err
	}
	defer d.destroy()

	orbit := func() camera.CameraController {
		return camera.NewCameraController(camera.WithOrbitFrom(
			mgl32.Vec3(cfg.Camera.Position),
			mgl32.Vec3(cfg.Camera.Target),
		))
	}
	controller := orbit()
	controller.Apply(d.pipeline.Camera())

	e := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithPipeline(d.pipeline),
		engine.WithPresenter(ctx.Present),
		engine.WithFramebufferResizer(ctx.Resize),
		engine.WithScene(0, d.scene),
		engine.WithRenderFrameLimit(cfg.Render.FrameLimit),
		engine.WithProfiling(cfg.Render.Profile),
		engine.WithLogger(log.Named("engine")),
	)

	win.SetDragCallback(func(dx, dy float32) {
		controller.Rotate(dx, dy)
		controller.Apply(d.pipeline.Camera())
	})
	win.SetScrollCallback(func(delta float32) {
		controller.Zoom(delta)
		controller.Apply(d.pipeline.Camera())
	})
	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyP:
			if err := d.toggleShadows(); err != nil {
				log.Warn("toggle shadows", zap.Error(err))
			}
		case common.KeyL:
			d.togglePointLights()
		case common.KeyR:
			controller = orbit()
			controller.Apply(d.pipeline.Camera())
		case common.KeySpace:
			d.togglePause()
		}
	})

	log.Info("running", zap.Int("width", w), zap.Int("height", h))
	return e.Run()
}
