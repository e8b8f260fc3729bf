package wgpuctx

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// programObject holds the modules and bind group layouts of a compiled program together with
// the resources bound to it by name. Uniform values are staged in uniforms and written to
// uniformBuffer before every draw.
type programObject struct {
	program *shader.Program

	vertex, fragment *wgpu.ShaderModule
	layouts          [3]*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout
	vertexLayouts    []wgpu.VertexBufferLayout
	attributeOrder   []shader.Attribute

	uniforms      []byte
	uniformBuffer *wgpu.Buffer

	blocks     map[string]gpu.BufferID
	textures   map[string]gpu.TextureID
	attributes map[string]gpu.BufferID

	pipelines map[string]*wgpu.RenderPipeline
}

func (p *programObject) release() {
	for key, rp := range p.pipelines {
		rp.Release()
		delete(p.pipelines, key)
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for i, l := range p.layouts {
		if l != nil {
			l.Release()
			p.layouts[i] = nil
		}
	}
	if p.vertex != nil {
		p.vertex.Release()
		p.vertex = nil
	}
	if p.fragment != nil {
		p.fragment.Release()
		p.fragment = nil
	}
	if p.uniformBuffer != nil {
		p.uniformBuffer.Release()
		p.uniformBuffer = nil
	}
}

// vertexFormat maps an attribute format to the vertex format of one location.
func vertexFormat(f shader.Format) wgpu.VertexFormat {
	switch f {
	case shader.FormatF32:
		return wgpu.VertexFormatFloat32
	case shader.FormatVec2:
		return wgpu.VertexFormatFloat32x2
	case shader.FormatVec3:
		return wgpu.VertexFormatFloat32x3
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

// vertexLayouts gives every attribute its own buffer slot, ordered by location. Matrix
// attributes span four consecutive vec4 locations of one slot.
func vertexLayouts(r *shader.Reflection) ([]shader.Attribute, []wgpu.VertexBufferLayout) {
	attrs := append([]shader.Attribute(nil), r.Attributes...)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Location < attrs[j].Location })

	layouts := make([]wgpu.VertexBufferLayout, 0, len(attrs))
	for _, a := range attrs {
		step := wgpu.VertexStepModeVertex
		if a.PerInstance {
			step = wgpu.VertexStepModeInstance
		}
		layout := wgpu.VertexBufferLayout{
			ArrayStride: uint64(a.Format.Size()),
			StepMode:    step,
		}
		if a.Format == shader.FormatMat4 {
			for col := range 4 {
				layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
					Format:         wgpu.VertexFormatFloat32x4,
					Offset:         uint64(col * 16),
					ShaderLocation: uint32(a.Location + col),
				})
			}
		} else {
			layout.Attributes = []wgpu.VertexAttribute{{
				Format:         vertexFormat(a.Format),
				Offset:         0,
				ShaderLocation: uint32(a.Location),
			}}
		}
		layouts = append(layouts, layout)
	}
	return attrs, layouts
}

// bindGroupLayoutEntries describes the three fixed bind groups of a program.
func bindGroupLayoutEntries(r *shader.Reflection) [3][]wgpu.BindGroupLayoutEntry {
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	var groups [3][]wgpu.BindGroupLayoutEntry

	for _, b := range r.Blocks {
		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(b.Binding), Visibility: visibility}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		groups[shader.BlockGroup] = append(groups[shader.BlockGroup], entry)
	}

	if r.UniformSize > 0 {
		entry := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: visibility}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = uint64(r.UniformSize)
		groups[shader.UniformGroup] = append(groups[shader.UniformGroup], entry)
	}

	for _, t := range r.Textures {
		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(t.Binding), Visibility: visibility}
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		switch t.Kind {
		case shader.TextureKindColor:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		case shader.TextureKindData:
			entry.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		case shader.TextureKindDepth:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		}
		groups[shader.TextureGroup] = append(groups[shader.TextureGroup], entry)

		if t.Kind == shader.TextureKindColor {
			sampler := wgpu.BindGroupLayoutEntry{Binding: uint32(t.Binding + 1), Visibility: visibility}
			sampler.Sampler.Type = wgpu.SamplerBindingTypeFiltering
			groups[shader.TextureGroup] = append(groups[shader.TextureGroup], sampler)
		}
	}
	return groups
}

func (c *contextImpl) CreateProgram(vertexSource, fragmentSource string) (gpu.ProgramID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	compiled, err := shader.Compile(vertexSource, fragmentSource)
	if err != nil {
		return 0, err
	}
	p := &programObject{
		program:    compiled,
		uniforms:   make([]byte, compiled.Reflection.UniformSize),
		blocks:     make(map[string]gpu.BufferID),
		textures:   make(map[string]gpu.TextureID),
		attributes: make(map[string]gpu.BufferID),
		pipelines:  make(map[string]*wgpu.RenderPipeline),
	}
	if err := c.buildProgram(p); err != nil {
		p.release()
		return 0, err
	}

	id := gpu.ProgramID(c.newID())
	c.programs[id] = p
	c.log.Debug("program created",
		zap.Uint32("id", uint32(id)),
		zap.String("vertex", compiled.VertexEntry),
		zap.String("fragment", compiled.FragmentEntry),
	)
	return id, nil
}

func (c *contextImpl) buildProgram(p *programObject) error {
	var err error
	label := p.program.VertexEntry + "/" + p.program.FragmentEntry

	p.vertex, err = c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.program.VertexEntry,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.program.VertexSource,
		},
	})
	if err != nil {
		return fmt.Errorf("vertex stage: %w", err)
	}
	p.fragment, err = c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.program.FragmentEntry,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.program.FragmentSource,
		},
	})
	if err != nil {
		return fmt.Errorf("fragment stage: %w", err)
	}

	for g, entries := range bindGroupLayoutEntries(&p.program.Reflection) {
		p.layouts[g], err = c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d", label, g),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
	}
	p.pipelineLayout, err = c.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: p.layouts[:],
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	if size := p.program.Reflection.UniformSize; size > 0 {
		p.uniformBuffer, err = c.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Uniforms",
			Size:  uint64(size),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("failed to allocate uniform buffer: %w", err)
		}
	}

	p.attributeOrder, p.vertexLayouts = vertexLayouts(&p.program.Reflection)
	return nil
}

func (c *contextImpl) DeleteProgram(id gpu.ProgramID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteProgram(id)
}

func (c *contextImpl) deleteProgram(id gpu.ProgramID) {
	p, ok := c.programs[id]
	if !ok {
		return
	}
	p.release()
	delete(c.programs, id)
}

func (c *contextImpl) SetUniformFloat(program gpu.ProgramID, name string, v float32) error {
	return c.setUniform(program, name, shader.FormatF32, v)
}

func (c *contextImpl) SetUniformInt(program gpu.ProgramID, name string, v int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, u, err := c.uniform(program, name, shader.FormatI32)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p.uniforms[u.Offset:], uint32(v))
	return nil
}

func (c *contextImpl) SetUniformVec2(program gpu.ProgramID, name string, v [2]float32) error {
	return c.setUniform(program, name, shader.FormatVec2, v[:]...)
}

func (c *contextImpl) SetUniformVec3(program gpu.ProgramID, name string, v [3]float32) error {
	return c.setUniform(program, name, shader.FormatVec3, v[:]...)
}

func (c *contextImpl) SetUniformVec4(program gpu.ProgramID, name string, v [4]float32) error {
	return c.setUniform(program, name, shader.FormatVec4, v[:]...)
}

func (c *contextImpl) SetUniformMat4(program gpu.ProgramID, name string, v [16]float32) error {
	return c.setUniform(program, name, shader.FormatMat4, v[:]...)
}

func (c *contextImpl) setUniform(program gpu.ProgramID, name string, format shader.Format, values ...float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, u, err := c.uniform(program, name, format)
	if err != nil {
		return err
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(p.uniforms[int(u.Offset)+i*4:], math.Float32bits(v))
	}
	return nil
}

func (c *contextImpl) uniform(program gpu.ProgramID, name string, format shader.Format) (*programObject, shader.Uniform, error) {
	p, ok := c.programs[program]
	if !ok {
		return nil, shader.Uniform{}, fmt.Errorf("unknown program %d", program)
	}
	u, ok := p.program.Reflection.Uniform(name)
	if !ok {
		return nil, shader.Uniform{}, fmt.Errorf("program %d has no uniform %q", program, name)
	}
	if u.Format != format {
		return nil, shader.Uniform{}, fmt.Errorf("uniform %q is %s, not %s", name, u.Format, format)
	}
	return p, u, nil
}

func (c *contextImpl) UseUniformBlock(program gpu.ProgramID, name string, buffer gpu.BufferID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}
	if _, ok := p.program.Reflection.Block(name); !ok {
		return fmt.Errorf("program %d has no uniform block %q", program, name)
	}
	if _, ok := c.buffers[buffer]; !ok {
		return fmt.Errorf("unknown buffer %d", buffer)
	}
	p.blocks[name] = buffer
	return nil
}

func (c *contextImpl) UseTexture(program gpu.ProgramID, name string, texture gpu.TextureID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}
	decl, ok := p.program.Reflection.Texture(name)
	if !ok {
		return fmt.Errorf("program %d has no texture %q", program, name)
	}
	t, ok := c.textures[texture]
	if !ok {
		return fmt.Errorf("unknown texture %d", texture)
	}
	if (decl.Kind == shader.TextureKindDepth) != t.format.IsDepth() {
		return fmt.Errorf("texture %q expects a %s texture", name, decl.Kind)
	}
	p.textures[name] = texture
	return nil
}

func (c *contextImpl) UseAttribute(program gpu.ProgramID, name string, buffer gpu.BufferID) error {
	return c.useAttribute(program, name, buffer, false)
}

func (c *contextImpl) UseInstanceAttribute(program gpu.ProgramID, name string, buffer gpu.BufferID) error {
	return c.useAttribute(program, name, buffer, true)
}

func (c *contextImpl) useAttribute(program gpu.ProgramID, name string, buffer gpu.BufferID, perInstance bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}
	a, ok := p.program.Reflection.Attribute(name)
	if !ok || a.PerInstance != perInstance {
		kind := "vertex"
		if perInstance {
			kind = "instance"
		}
		return fmt.Errorf("program %d has no %s attribute %q", program, kind, name)
	}
	if _, ok := c.buffers[buffer]; !ok {
		return fmt.Errorf("unknown buffer %d", buffer)
	}
	p.attributes[name] = buffer
	return nil
}
