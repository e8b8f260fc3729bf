package wgpuctx

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// blendState returns the colour blend of a mode, nil for replacement.
func blendState(mode gpu.BlendMode) *wgpu.BlendState {
	switch mode {
	case gpu.BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case gpu.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	default:
		return nil
	}
}

func depthCompare(test gpu.DepthTest) wgpu.CompareFunction {
	switch test {
	case gpu.DepthTestLess:
		return wgpu.CompareFunctionLess
	case gpu.DepthTestLessEqual:
		return wgpu.CompareFunctionLessEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

func cullMode(mode gpu.CullMode) wgpu.CullMode {
	switch mode {
	case gpu.CullBack:
		return wgpu.CullModeBack
	case gpu.CullFront:
		return wgpu.CullModeFront
	default:
		return wgpu.CullModeNone
	}
}

// pipelineKey identifies a render pipeline of one program by attachment formats and state.
func pipelineKey(formats []wgpu.TextureFormat, depth bool, states gpu.RenderStates) string {
	var sb strings.Builder
	for _, f := range formats {
		fmt.Fprintf(&sb, "%d,", f)
	}
	fmt.Fprintf(&sb, "d%t/%d/%t/%t/%d/%d", depth, states.DepthTest, states.DepthWrite, states.ColorWrite, states.Blend, states.Cull)
	return sb.String()
}

// renderPipeline returns the program's pipeline for the attachment layout and states,
// creating it on first use.
func (c *contextImpl) renderPipeline(p *programObject, formats []wgpu.TextureFormat, depth bool, states gpu.RenderStates) (*wgpu.RenderPipeline, error) {
	key := pipelineKey(formats, depth, states)
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	writeMask := wgpu.ColorWriteMaskAll
	if !states.ColorWrite {
		writeMask = wgpu.ColorWriteMaskNone
	}
	targets := make([]wgpu.ColorTargetState, len(formats))
	for i, f := range formats {
		targets[i] = wgpu.ColorTargetState{
			Format:    f,
			Blend:     blendState(states.Blend),
			WriteMask: writeMask,
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if depth {
		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: states.DepthWrite,
			DepthCompare:      depthCompare(states.DepthTest),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	rp, err := c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.program.VertexEntry + "/" + p.program.FragmentEntry + " Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex,
			EntryPoint: p.program.VertexEntry,
			Buffers:    p.vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment,
			EntryPoint: p.program.FragmentEntry,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(states.Cull),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline: %w", err)
	}
	p.pipelines[key] = rp
	return rp, nil
}

func (c *contextImpl) Clear(values gpu.ClearValues) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	views, _, depth, release, err := c.attachments()
	defer release()
	if err != nil {
		return err
	}
	desc := &wgpu.RenderPassDescriptor{Label: "Clear"}
	for _, v := range views {
		a := wgpu.RenderPassColorAttachment{View: v, LoadOp: wgpu.LoadOpLoad, StoreOp: wgpu.StoreOpStore}
		if values.Color != nil {
			a.LoadOp = wgpu.LoadOpClear
			a.ClearValue = wgpu.Color{
				R: float64(values.Color[0]),
				G: float64(values.Color[1]),
				B: float64(values.Color[2]),
				A: float64(values.Color[3]),
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, a)
	}
	if depth != nil {
		a := &wgpu.RenderPassDepthStencilAttachment{View: depth.view, DepthLoadOp: wgpu.LoadOpLoad, DepthStoreOp: wgpu.StoreOpStore}
		if values.Depth != nil {
			a.DepthLoadOp = wgpu.LoadOpClear
			a.DepthClearValue = *values.Depth
		}
		desc.DepthStencilAttachment = a
	}
	return c.submitPass(desc, func(*wgpu.RenderPassEncoder) {})
}

func (c *contextImpl) Draw(program gpu.ProgramID, states gpu.RenderStates, call gpu.DrawCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}

	vertexBuffers := make([]*wgpu.Buffer, len(p.attributeOrder))
	for i, a := range p.attributeOrder {
		b, err := c.boundBuffer(p.attributes, a.Name, "attribute")
		if err != nil {
			return err
		}
		vertexBuffers[i] = b
	}
	var indices *wgpu.Buffer
	if call.Indices != 0 {
		b, ok := c.buffers[call.Indices]
		if !ok || b.buffer == nil {
			return fmt.Errorf("index buffer %d is empty or unknown", call.Indices)
		}
		indices = b.buffer
	}

	groups, err := c.bindGroups(p)
	defer func() {
		for _, g := range groups {
			if g != nil {
				g.Release()
			}
		}
	}()
	if err != nil {
		return err
	}

	if p.uniformBuffer != nil {
		if err := c.queue.WriteBuffer(p.uniformBuffer, 0, p.uniforms); err != nil {
			return fmt.Errorf("failed to write uniforms: %w", err)
		}
	}

	views, formats, depth, release, err := c.attachments()
	defer release()
	if err != nil {
		return err
	}
	rp, err := c.renderPipeline(p, formats, depth != nil, states)
	if err != nil {
		return err
	}

	desc := &wgpu.RenderPassDescriptor{Label: "Draw"}
	for _, v := range views {
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:    v,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		})
	}
	if depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:         depth.view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
	}

	return c.submitPass(desc, func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(rp)
		for i, g := range groups {
			pass.SetBindGroup(uint32(i), g, nil)
		}
		for slot, b := range vertexBuffers {
			pass.SetVertexBuffer(uint32(slot), b, 0, wgpu.WholeSize)
		}
		if indices != nil {
			pass.SetIndexBuffer(indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			pass.DrawIndexed(call.IndexCount, call.Instances(), 0, 0, 0)
			return
		}
		pass.Draw(call.VertexCount, call.Instances(), 0, 0)
	})
}

// boundBuffer resolves a named binding of a program to its device buffer.
func (c *contextImpl) boundBuffer(bindings map[string]gpu.BufferID, name, kind string) (*wgpu.Buffer, error) {
	id, ok := bindings[name]
	if !ok {
		return nil, fmt.Errorf("%s %q is not bound", kind, name)
	}
	b, ok := c.buffers[id]
	if !ok || b.buffer == nil {
		return nil, fmt.Errorf("%s %q is bound to an empty or released buffer", kind, name)
	}
	return b.buffer, nil
}

// bindGroups creates the three bind groups of one draw from the program's current bindings.
// Groups created before a failure are returned so the caller can release them.
func (c *contextImpl) bindGroups(p *programObject) ([]*wgpu.BindGroup, error) {
	r := &p.program.Reflection
	var entries [3][]wgpu.BindGroupEntry

	for _, block := range r.Blocks {
		b, err := c.boundBuffer(p.blocks, block.Name, "uniform block")
		if err != nil {
			return nil, err
		}
		entries[shader.BlockGroup] = append(entries[shader.BlockGroup], wgpu.BindGroupEntry{
			Binding: uint32(block.Binding),
			Buffer:  b,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	if p.uniformBuffer != nil {
		entries[shader.UniformGroup] = append(entries[shader.UniformGroup], wgpu.BindGroupEntry{
			Binding: 0,
			Buffer:  p.uniformBuffer,
			Offset:  0,
			Size:    wgpu.WholeSize,
		})
	}
	for _, decl := range r.Textures {
		id, ok := p.textures[decl.Name]
		if !ok {
			return nil, fmt.Errorf("texture %q is not bound", decl.Name)
		}
		t, ok := c.textures[id]
		if !ok {
			return nil, fmt.Errorf("texture %q is bound to a released texture", decl.Name)
		}
		entries[shader.TextureGroup] = append(entries[shader.TextureGroup], wgpu.BindGroupEntry{
			Binding:     uint32(decl.Binding),
			TextureView: t.view,
		})
		if decl.Kind == shader.TextureKindColor {
			entries[shader.TextureGroup] = append(entries[shader.TextureGroup], wgpu.BindGroupEntry{
				Binding: uint32(decl.Binding + 1),
				Sampler: t.sampler,
			})
		}
	}

	groups := make([]*wgpu.BindGroup, 0, len(entries))
	for g, e := range entries {
		group, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("Group %d", g),
			Layout:  p.layouts[g],
			Entries: e,
		})
		if err != nil {
			return groups, fmt.Errorf("failed to create bind group %d: %w", g, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// submitPass records one render pass into its own encoder and submits it.
func (c *contextImpl) submitPass(desc *wgpu.RenderPassDescriptor, record func(pass *wgpu.RenderPassEncoder)) error {
	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(desc)
	record(pass)
	pass.End()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish %s commands: %w", strings.ToLower(desc.Label), err)
	}
	c.queue.Submit(commands)
	commands.Release()
	return nil
}
