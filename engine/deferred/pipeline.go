// Package deferred drives the three-pass deferred shading pipeline.
//
// A frame runs ShadowPass, GeometryPass and LightPass in that order. The shadow pass renders
// depth from every shadow-casting light into its shadow map, the geometry pass rasterizes
// surface attributes into the G-buffer, and the light pass shades every G-buffer texel with
// the ambient light and each light slot into the context's framebuffer.
package deferred

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/buffer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/geometry"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// lightFragmentSource is the fragment stage of the light pass.
//
//go:embed assets/light.wgsl
var lightFragmentSource string

// DefaultAmbientIntensity is the intensity the ambient light slot starts with.
const DefaultAmbientIntensity float32 = 0.1

var (
	// ErrLightIndexOutOfRange is returned when a light slot accessor is given an index past the configured slot count.
	ErrLightIndexOutOfRange = errors.New("light index out of range")

	// ErrPipelineOutOfOrder is returned when a pass runs before its prerequisite pass of the same frame,
	// or while another pass is still running.
	ErrPipelineOutOfOrder = errors.New("pipeline pass out of order")

	// ErrViewportMismatch is returned when the context's framebuffer no longer matches the G-buffer size.
	ErrViewportMismatch = errors.New("framebuffer size does not match the G-buffer")

	// ErrDestroyed is returned by every pass after Destroy.
	ErrDestroyed = errors.New("pipeline has been destroyed")
)

// Phase is the pass the pipeline last completed, or is running.
type Phase int

const (
	// PhaseIdle is the state between frames.
	PhaseIdle Phase = iota

	// PhaseShadow follows a completed shadow pass.
	PhaseShadow

	// PhaseGeometry follows a completed geometry pass. Only now may the light pass run.
	PhaseGeometry

	// PhaseLight is held while the light pass runs.
	PhaseLight
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseShadow:
		return "shadow"
	case PhaseGeometry:
		return "geometry"
	case PhaseLight:
		return "light"
	default:
		return "unknown"
	}
}

// RenderFunc draws the scene from a camera. The shadow pass calls it once per shadow-casting
// light with that light's camera, the geometry pass once with the scene camera.
type RenderFunc func(cam camera.Camera) error

// pipelineImpl is the implementation of the Pipeline interface.
type pipelineImpl struct {
	ctx              gpu.Context
	clearColor       mgl32.Vec4
	shadowResolution uint32
	shadowBias       float32
	sceneBounds      common.AABB
	fitBounds        bool
	directionalCount int
	pointCount       int
	spotCount        int

	camera       camera.Camera
	programs     program.Cache
	gbuffer      *gbuffer
	lightBuffer  *buffer.UniformBuffer
	lightProgram gpu.ProgramID
	quad         *buffer.VertexBuffer[mgl32.Vec3]
	quadIndices  *buffer.ElementBuffer
	noShadow     gpu.TextureID

	ambient     light.Light
	directional []light.Light
	point       []light.Light
	spot        []light.Light

	phase     Phase
	running   bool
	destroyed bool
	log       *zap.Logger
}

// Pipeline defines the interface of the deferred shading pipeline.
//
// A Pipeline is not safe for concurrent use. Every call happens on the thread that owns its context.
type Pipeline interface {
	// ShadowPass renders depth from every enabled, shadow-casting light slot into its shadow map.
	// Directional slots are rendered before spot slots. Lights with shadows disabled are skipped.
	// It starts a new frame.
	//
	// Parameters:
	//   - render: draws the depth of the scene from the given light camera
	//
	// Returns:
	//   - error: ErrViewportMismatch, ErrPipelineOutOfOrder unless the previous frame finished
	//     or failed, or the wrapped error of the first failing draw
	ShadowPass(render RenderFunc) error

	// GeometryPass clears the G-buffer and renders the opaque scene into it from the scene camera.
	//
	// Parameters:
	//   - render: draws every opaque shape with its material
	//
	// Returns:
	//   - error: ErrViewportMismatch, ErrPipelineOutOfOrder unless it follows a finished frame or
	//     a shadow pass, or the wrapped error of the first failing draw
	GeometryPass(render RenderFunc) error

	// LightPass shades the G-buffer into the context's framebuffer. Texels no geometry covered
	// take the clear colour.
	//
	// Returns:
	//   - error: ErrPipelineOutOfOrder unless a geometry pass completed since the last light
	//     pass, ErrViewportMismatch, or the wrapped draw error
	LightPass() error

	// Render runs all three passes over objects. Transparent objects are left out. Unless the
	// scene bounds were set explicitly, shadow frustums are fitted to the opaque objects.
	//
	// Parameters:
	//   - objects: the scene objects
	//
	// Returns:
	//   - error: the first pass error
	Render(objects []object.Object) error

	// Resize recreates the G-buffer at a new size and updates the camera aspect ratio.
	// The current frame is abandoned.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrPipelineOutOfOrder during a pass, or an allocation error in which case the
	//     previous G-buffer is kept
	Resize(width, height int) error

	// Size returns the G-buffer size.
	//
	// Returns:
	//   - width, height: the size in pixels
	Size() (width, height int)

	// Phase returns the pass the pipeline last completed, or is running.
	//
	// Returns:
	//   - Phase: the current phase
	Phase() Phase

	// Camera returns the scene camera handed to the geometry pass.
	//
	// Returns:
	//   - camera.Camera: the scene camera
	Camera() camera.Camera

	// Programs returns the program cache geometries rendered through this pipeline should share.
	//
	// Returns:
	//   - program.Cache: the program cache
	Programs() program.Cache

	// Context returns the graphics context the pipeline renders through.
	//
	// Returns:
	//   - gpu.Context: the context
	Context() gpu.Context

	// ClearColor returns the colour of texels no geometry covered.
	//
	// Returns:
	//   - mgl32.Vec4: the clear colour
	ClearColor() mgl32.Vec4

	// SetClearColor sets the colour of texels no geometry covered.
	//
	// Parameters:
	//   - c: the clear colour
	SetClearColor(c mgl32.Vec4)

	// AmbientLight returns the ambient light slot.
	//
	// Returns:
	//   - light.Light: the ambient light
	AmbientLight() light.Light

	// DirectionalLight returns the directional light in slot i.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - light.Light: the light
	//   - error: ErrLightIndexOutOfRange if i is not a configured slot
	DirectionalLight(i int) (light.Light, error)

	// PointLight returns the point light in slot i.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - light.Light: the light
	//   - error: ErrLightIndexOutOfRange if i is not a configured slot
	PointLight(i int) (light.Light, error)

	// SpotLight returns the spot light in slot i.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - light.Light: the light
	//   - error: ErrLightIndexOutOfRange if i is not a configured slot
	SpotLight(i int) (light.Light, error)

	// Lights returns every light slot, ambient first, then directional, point and spot slots.
	//
	// Returns:
	//   - []light.Light: the light slots
	Lights() []light.Light

	// SceneBounds returns the world-space box shadow frustums are fitted to.
	//
	// Returns:
	//   - common.AABB: the scene bounds
	SceneBounds() common.AABB

	// SetSceneBounds fixes the box shadow frustums are fitted to. Render no longer refits it.
	//
	// Parameters:
	//   - bounds: the scene bounds
	SetSceneBounds(bounds common.AABB)

	// ShadowMapResolution returns the size of shadow maps allocated by EnableShadows.
	//
	// Returns:
	//   - uint32: the shadow map size in texels
	ShadowMapResolution() uint32

	// Destroy releases the G-buffer, the light uniform buffer, every shadow map, the light pass
	// program and every cached program. Later calls are no-ops.
	Destroy()
}

var (
	_ Pipeline           = &pipelineImpl{}
	_ light.ShadowSource = &pipelineImpl{}
)

// New creates a pipeline rendering through ctx with a width x height G-buffer.
//
// Parameters:
//   - ctx: the graphics context
//   - width: the viewport width in pixels
//   - height: the viewport height in pixels
//   - clearColor: the colour of texels no geometry covers
//   - opts: variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the new pipeline
//   - error: a *program.ShaderCompileError if the light pass program failed to compile, or an
//     allocation error; nothing stays allocated on failure
func New(ctx gpu.Context, width, height int, clearColor mgl32.Vec4, opts ...PipelineBuilderOption) (Pipeline, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	p := &pipelineImpl{
		ctx:              ctx,
		clearColor:       clearColor,
		shadowResolution: light.ShadowMapResolution,
		shadowBias:       light.DefaultShadowBias,
		sceneBounds:      common.EmptyAABB(),
		fitBounds:        true,
		directionalCount: light.MaxDirectionalLights,
		pointCount:       light.MaxPointLights,
		spotCount:        light.MaxSpotLights,
		log:              logger.Named("deferred"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if !p.sceneBounds.IsEmpty() {
		p.fitBounds = false
	}
	p.directionalCount = min(max(p.directionalCount, 0), light.MaxDirectionalLights)
	p.pointCount = min(max(p.pointCount, 0), light.MaxPointLights)
	p.spotCount = min(max(p.spotCount, 0), light.MaxSpotLights)

	aspect := float32(width) / float32(height)
	if p.camera == nil {
		p.camera = camera.NewCamera(camera.WithAspect(aspect))
	} else {
		p.camera.SetAspect(aspect)
	}
	p.programs = program.NewCache(ctx)

	if err := p.allocate(width, height); err != nil {
		p.Destroy()
		return nil, err
	}
	p.createLights()

	p.log.Debug("pipeline created",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("directional", p.directionalCount),
		zap.Int("point", p.pointCount),
		zap.Int("spot", p.spotCount),
	)
	return p, nil
}

// allocate creates the GPU resources owned by the pipeline itself.
func (p *pipelineImpl) allocate(width, height int) error {
	var err error
	if p.gbuffer, err = newGBuffer(p.ctx, width, height); err != nil {
		return err
	}
	if p.lightBuffer, err = buffer.NewUniformBuffer(p.ctx, light.GPULightDataSize); err != nil {
		return fmt.Errorf("failed to create light uniform buffer: %w", err)
	}

	quad := geometry.NewFullscreenQuad()
	if p.quad, err = buffer.NewVertexBufferWithData(p.ctx, quad.Positions); err != nil {
		return fmt.Errorf("failed to upload full-screen quad: %w", err)
	}
	if p.quadIndices, err = buffer.NewElementBufferWithData(p.ctx, quad.Indices); err != nil {
		return fmt.Errorf("failed to upload full-screen quad: %w", err)
	}

	// Stands in for the shadow map of every slot that has none.
	if p.noShadow, err = p.ctx.CreateTexture(gpu.TextureDescriptor{
		Label:  "Empty Shadow Map",
		Width:  1,
		Height: 1,
		Format: gpu.TextureFormatDepth32F,
	}); err != nil {
		return fmt.Errorf("failed to create empty shadow map: %w", err)
	}

	if p.lightProgram, err = p.ctx.CreateProgram(program.FullscreenVertexSource, lightFragmentSource); err != nil {
		return &program.ShaderCompileError{Message: fmt.Sprintf("light pass: %v", err)}
	}
	return nil
}

// createLights fills the light slots. Every slot but the ambient one starts dark.
func (p *pipelineImpl) createLights() {
	p.ambient = light.NewLight(light.LightTypeAmbient, light.WithIntensity(DefaultAmbientIntensity))
	p.directional = make([]light.Light, p.directionalCount)
	for i := range p.directional {
		p.directional[i] = light.NewLight(light.LightTypeDirectional, light.WithIntensity(0), light.WithShadowSource(p))
	}
	p.point = make([]light.Light, p.pointCount)
	for i := range p.point {
		p.point[i] = light.NewLight(light.LightTypePoint, light.WithIntensity(0))
	}
	p.spot = make([]light.Light, p.spotCount)
	for i := range p.spot {
		p.spot[i] = light.NewLight(light.LightTypeSpot, light.WithIntensity(0), light.WithShadowSource(p))
	}
}

func (p *pipelineImpl) Resize(width, height int) error {
	if p.destroyed {
		return ErrDestroyed
	}
	if p.running {
		return fmt.Errorf("resize during the %s pass: %w", p.phase, ErrPipelineOutOfOrder)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	g, err := newGBuffer(p.ctx, width, height)
	if err != nil {
		return err
	}
	p.gbuffer.release()
	p.gbuffer = g
	p.camera.SetAspect(float32(width) / float32(height))
	p.phase = PhaseIdle
	p.log.Debug("pipeline resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (p *pipelineImpl) Size() (int, int) {
	return p.gbuffer.width, p.gbuffer.height
}

func (p *pipelineImpl) Phase() Phase {
	return p.phase
}

func (p *pipelineImpl) Camera() camera.Camera {
	return p.camera
}

func (p *pipelineImpl) Programs() program.Cache {
	return p.programs
}

func (p *pipelineImpl) Context() gpu.Context {
	return p.ctx
}

func (p *pipelineImpl) ClearColor() mgl32.Vec4 {
	return p.clearColor
}

func (p *pipelineImpl) SetClearColor(c mgl32.Vec4) {
	p.clearColor = c
}

func (p *pipelineImpl) AmbientLight() light.Light {
	return p.ambient
}

func (p *pipelineImpl) DirectionalLight(i int) (light.Light, error) {
	return slot(p.directional, i, "directional")
}

func (p *pipelineImpl) PointLight(i int) (light.Light, error) {
	return slot(p.point, i, "point")
}

func (p *pipelineImpl) SpotLight(i int) (light.Light, error) {
	return slot(p.spot, i, "spot")
}

func (p *pipelineImpl) Lights() []light.Light {
	lights := make([]light.Light, 0, 1+len(p.directional)+len(p.point)+len(p.spot))
	lights = append(lights, p.ambient)
	lights = append(lights, p.directional...)
	lights = append(lights, p.point...)
	return append(lights, p.spot...)
}

func (p *pipelineImpl) SceneBounds() common.AABB {
	return p.sceneBounds
}

func (p *pipelineImpl) SetSceneBounds(bounds common.AABB) {
	p.sceneBounds = bounds
	p.fitBounds = false
}

func (p *pipelineImpl) ShadowMapResolution() uint32 {
	return p.shadowResolution
}

func (p *pipelineImpl) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	for _, l := range p.directional {
		l.DisableShadows()
	}
	for _, l := range p.spot {
		l.DisableShadows()
	}
	if p.gbuffer != nil {
		p.gbuffer.release()
	}
	if p.lightBuffer != nil {
		p.lightBuffer.Destroy()
	}
	if p.quad != nil {
		p.quad.Destroy()
	}
	if p.quadIndices != nil {
		p.quadIndices.Destroy()
	}
	if p.noShadow != 0 {
		p.ctx.DeleteTexture(p.noShadow)
	}
	if p.lightProgram != 0 {
		p.ctx.DeleteProgram(p.lightProgram)
	}
	p.programs.Clear()
	p.camera.Destroy()
}

// slot returns lights[i] or ErrLightIndexOutOfRange.
func slot(lights []light.Light, i int, kind string) (light.Light, error) {
	if i < 0 || i >= len(lights) {
		return nil, fmt.Errorf("%s light %d of %d: %w", kind, i, len(lights), ErrLightIndexOutOfRange)
	}
	return lights[i], nil
}
