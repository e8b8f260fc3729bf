package deferred

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// gbuffer holds the geometry pass attachments: world position, normal and colour, plus depth.
type gbuffer struct {
	ctx      gpu.Context
	width    int
	height   int
	position gpu.TextureID
	normal   gpu.TextureID
	color    gpu.TextureID
	depth    gpu.TextureID
	target   gpu.RenderTargetID
}

// newGBuffer allocates the attachments at width x height. Nothing is left allocated on failure.
func newGBuffer(ctx gpu.Context, width, height int) (*gbuffer, error) {
	g := &gbuffer{ctx: ctx, width: width, height: height}
	attachments := []struct {
		id     *gpu.TextureID
		label  string
		format gpu.TextureFormat
	}{
		{&g.position, "G-Buffer Position", gpu.TextureFormatRGBA16F},
		{&g.normal, "G-Buffer Normal", gpu.TextureFormatRGBA16F},
		{&g.color, "G-Buffer Color", gpu.TextureFormatRGBA16F},
		{&g.depth, "G-Buffer Depth", gpu.TextureFormatDepth32F},
	}
	for _, a := range attachments {
		id, err := ctx.CreateTexture(gpu.TextureDescriptor{
			Label:            a.label,
			Width:            uint32(width),
			Height:           uint32(height),
			Format:           a.format,
			RenderAttachment: true,
		})
		if err != nil {
			g.release()
			return nil, fmt.Errorf("failed to create %s: %w", a.label, err)
		}
		*a.id = id
	}
	target, err := ctx.CreateRenderTarget([]gpu.TextureID{g.position, g.normal, g.color}, g.depth)
	if err != nil {
		g.release()
		return nil, fmt.Errorf("failed to create G-buffer target: %w", err)
	}
	g.target = target
	return g, nil
}

// clear resets every colour attachment to zero, which marks background texels, and depth to the far plane.
func (g *gbuffer) clear() error {
	if err := g.ctx.BindRenderTarget(g.target); err != nil {
		return err
	}
	color := [4]float32{}
	depth := float32(1)
	return g.ctx.Clear(gpu.ClearValues{Color: &color, Depth: &depth})
}

// bind attaches the G-buffer textures to the light program.
func (g *gbuffer) bind(program gpu.ProgramID) error {
	for name, id := range map[string]gpu.TextureID{
		"gbuffer_position": g.position,
		"gbuffer_normal":   g.normal,
		"gbuffer_color":    g.color,
	} {
		if err := g.ctx.UseTexture(program, name, id); err != nil {
			return err
		}
	}
	return nil
}

func (g *gbuffer) release() {
	if g.target != 0 {
		g.ctx.DeleteRenderTarget(g.target)
	}
	for _, id := range []gpu.TextureID{g.position, g.normal, g.color, g.depth} {
		if id != 0 {
			g.ctx.DeleteTexture(id)
		}
	}
	*g = gbuffer{ctx: g.ctx}
}
