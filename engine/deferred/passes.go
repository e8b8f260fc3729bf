package deferred

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/geometry"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"go.uber.org/zap"
)

// lightPassStates draws the full-screen quad over whatever the framebuffer holds.
var lightPassStates = gpu.RenderStates{
	DepthTest:  gpu.DepthTestAlways,
	ColorWrite: true,
	Blend:      gpu.BlendNone,
	Cull:       gpu.CullNone,
}

func (p *pipelineImpl) ShadowPass(render RenderFunc) error {
	if err := p.begin(PhaseShadow); err != nil {
		return err
	}
	return p.end("shadow pass", p.renderShadows(render))
}

func (p *pipelineImpl) GeometryPass(render RenderFunc) error {
	if err := p.begin(PhaseGeometry); err != nil {
		return err
	}
	return p.end("geometry pass", p.renderGeometry(render))
}

func (p *pipelineImpl) LightPass() error {
	if err := p.begin(PhaseLight); err != nil {
		return err
	}
	return p.end("light pass", p.renderLights())
}

func (p *pipelineImpl) Render(objects []object.Object) error {
	opaque := object.Opaque(objects)
	if p.fitBounds {
		p.sceneBounds = object.Bounds(opaque)
	}
	if err := p.ShadowPass(func(cam camera.Camera) error {
		return object.RenderDepthAll(opaque, cam)
	}); err != nil {
		return err
	}
	lights := p.Lights()
	if err := p.GeometryPass(func(cam camera.Camera) error {
		return object.RenderAll(opaque, cam, lights)
	}); err != nil {
		return err
	}
	return p.LightPass()
}

// begin checks that next may run now and marks it running.
func (p *pipelineImpl) begin(next Phase) error {
	if p.destroyed {
		return ErrDestroyed
	}
	if p.running {
		return fmt.Errorf("%s pass started during the %s pass: %w", next, p.phase, ErrPipelineOutOfOrder)
	}
	if !p.phase.precedes(next) {
		return fmt.Errorf("%s pass after the %s phase: %w", next, p.phase, ErrPipelineOutOfOrder)
	}
	if err := p.checkViewport(); err != nil {
		p.phase = PhaseIdle
		return err
	}
	p.phase = next
	p.running = true
	return nil
}

// precedes reports whether a pass of phase next may follow a completed pass of phase p.
func (p Phase) precedes(next Phase) bool {
	switch next {
	case PhaseShadow:
		return p == PhaseIdle
	case PhaseGeometry:
		return p == PhaseIdle || p == PhaseShadow
	case PhaseLight:
		return p == PhaseGeometry
	}
	return false
}

// end finishes the running pass. A failed pass invalidates the frame.
func (p *pipelineImpl) end(pass string, err error) error {
	p.running = false
	if err != nil {
		p.phase = PhaseIdle
		p.log.Warn("pass failed", zap.String("pass", pass), zap.Error(err))
		return fmt.Errorf("%s: %w", pass, err)
	}
	if p.phase == PhaseLight {
		p.phase = PhaseIdle
	}
	return nil
}

func (p *pipelineImpl) checkViewport() error {
	fw, fh := p.ctx.FramebufferSize()
	if fw != p.gbuffer.width || fh != p.gbuffer.height {
		return fmt.Errorf("framebuffer is %dx%d, G-buffer is %dx%d: %w", fw, fh, p.gbuffer.width, p.gbuffer.height, ErrViewportMismatch)
	}
	return nil
}

// shadowCasters returns the enabled lights owning a shadow map, directional slots first.
func (p *pipelineImpl) shadowCasters() []light.Light {
	var casters []light.Light
	for _, slots := range [][]light.Light{p.directional, p.spot} {
		for _, l := range slots {
			if l.Enabled() && l.IsShadowsEnabled() {
				casters = append(casters, l)
			}
		}
	}
	return casters
}

func (p *pipelineImpl) renderShadows(render RenderFunc) error {
	depth := float32(1)
	for _, l := range p.shadowCasters() {
		sm := l.ShadowMap()
		if err := p.ctx.BindRenderTarget(sm.RenderTarget()); err != nil {
			return err
		}
		if err := p.ctx.Clear(gpu.ClearValues{Depth: &depth}); err != nil {
			return err
		}
		if err := render(sm.Camera()); err != nil {
			return fmt.Errorf("%s light: %w", l.Type(), err)
		}
	}
	return nil
}

func (p *pipelineImpl) renderGeometry(render RenderFunc) error {
	if err := p.gbuffer.clear(); err != nil {
		return err
	}
	return render(p.camera)
}

func (p *pipelineImpl) renderLights() error {
	data := light.NewGPULightData(p.ambient, p.directional, p.point, p.spot, p.shadowBias)
	if err := p.lightBuffer.Update(data.Marshal()); err != nil {
		return err
	}
	if err := p.ctx.BindRenderTarget(gpu.DefaultRenderTarget); err != nil {
		return err
	}

	id := p.lightProgram
	camID, err := p.camera.UniformBuffer(p.ctx)
	if err != nil {
		return err
	}
	if err := p.ctx.UseUniformBlock(id, "camera", camID); err != nil {
		return err
	}
	if err := p.ctx.UseUniformBlock(id, "lights", p.lightBuffer.ID()); err != nil {
		return err
	}
	if err := p.ctx.SetUniformVec4(id, "clear_color", p.clearColor); err != nil {
		return err
	}
	if err := p.gbuffer.bind(id); err != nil {
		return err
	}
	if err := p.bindShadowMaps(id, "directional_shadow", p.directional, light.MaxDirectionalLights); err != nil {
		return err
	}
	if err := p.bindShadowMaps(id, "spot_shadow", p.spot, light.MaxSpotLights); err != nil {
		return err
	}
	if err := p.ctx.UseAttribute(id, geometry.AttributePosition, p.quad.ID()); err != nil {
		return err
	}
	return p.ctx.Draw(id, lightPassStates, gpu.DrawCall{
		Indices:    p.quadIndices.ID(),
		IndexCount: uint32(p.quadIndices.ElementCount()),
	})
}

// bindShadowMaps binds the shadow map of every slot, or the empty one where a slot has none.
func (p *pipelineImpl) bindShadowMaps(program gpu.ProgramID, prefix string, slots []light.Light, capacity int) error {
	for i := range capacity {
		tex := p.noShadow
		if i < len(slots) {
			if sm := slots[i].ShadowMap(); sm != nil {
				tex = sm.Texture()
			}
		}
		if err := p.ctx.UseTexture(program, fmt.Sprintf("%s_%d", prefix, i), tex); err != nil {
			return err
		}
	}
	return nil
}
