// Package soft implements gpu.Context on the CPU.
//
// The Device compiles annotated WGSL with shader.Compile exactly like the hardware context
// does, then executes each stage with the Go kernel registered under the stage's
// //@oxy:kernel name. It rasterizes into float32 render targets with perspective-correct
// interpolation, depth testing, blending and face culling, and keeps counters of every
// resource it creates so callers can verify resource lifetimes.
//
// Triangles with a vertex behind the eye (clip w <= 0) are dropped rather than clipped.
package soft

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrLimitReached is returned when a resource cap configured with WithMaxBuffers or
// WithMaxTextures is exhausted.
var ErrLimitReached = errors.New("device resource limit reached")

// Stats counts the resources and commands a Device has processed.
type Stats struct {
	BuffersCreated  int
	BuffersDeleted  int
	ProgramsCreated int
	ProgramsDeleted int
	TexturesCreated int
	TexturesDeleted int
	TargetsCreated  int
	TargetsDeleted  int
	Uploads         int
	Clears          int
	Draws           int
}

// BufferInfo describes the current state of a device buffer.
type BufferInfo struct {
	// Size is the byte length of the last upload.
	Size int

	// Usage is the hint passed with the last upload.
	Usage gpu.Usage

	// Uploads is the number of BufferData calls the buffer received.
	Uploads int
}

type bufferObject struct {
	data    []byte
	usage   gpu.Usage
	uploads int
}

type programObject struct {
	program    *shader.Program
	vertex     VertexKernel
	fragment   FragmentKernel
	uniforms   []byte
	blocks     map[string]gpu.BufferID
	textures   map[string]gpu.TextureID
	attributes map[string]gpu.BufferID
}

type renderTarget struct {
	colors        []*Texture
	depth         *Texture
	width, height int
}

// Device is a software gpu.Context. Like every Context it is confined to one goroutine;
// its internal worker pool only shades rows of a draw that is already in progress.
type Device struct {
	width, height int
	workers       int
	maxBuffers    int
	maxTextures   int
	pool          worker.DynamicWorkerPool

	nextID   uint32
	buffers  map[gpu.BufferID]*bufferObject
	bound    map[gpu.BufferTarget]gpu.BufferID
	programs map[gpu.ProgramID]*programObject
	textures map[gpu.TextureID]*Texture
	targets  map[gpu.RenderTargetID]*renderTarget
	current  gpu.RenderTargetID
	frame    *renderTarget
	stats    Stats
	log      *zap.Logger
}

var _ gpu.Context = &Device{}

// New creates a software device with a width x height framebuffer.
//
// Parameters:
//   - width: framebuffer width in pixels
//   - height: framebuffer height in pixels
//   - opts: variadic list of DeviceBuilderOption functions
//
// Returns:
//   - *Device: the new device
func New(width, height int, opts ...DeviceBuilderOption) *Device {
	d := &Device{
		workers:  max(runtime.NumCPU()-1, 1),
		buffers:  make(map[gpu.BufferID]*bufferObject),
		bound:    make(map[gpu.BufferTarget]gpu.BufferID),
		programs: make(map[gpu.ProgramID]*programObject),
		textures: make(map[gpu.TextureID]*Texture),
		targets:  make(map[gpu.RenderTargetID]*renderTarget),
		log:      logger.Named("soft"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)
	d.Resize(width, height)
	return d
}

// Resize reallocates the framebuffer, discarding its contents. It models the window
// surface changing size underneath the engine.
//
// Parameters:
//   - width: new framebuffer width in pixels
//   - height: new framebuffer height in pixels
func (d *Device) Resize(width, height int) {
	d.width, d.height = max(width, 1), max(height, 1)
	w, h := uint32(d.width), uint32(d.height)
	d.frame = &renderTarget{
		colors: []*Texture{newTexture(gpu.TextureDescriptor{Width: w, Height: h, Format: gpu.TextureFormatRGBA16F})},
		depth:  newTexture(gpu.TextureDescriptor{Width: w, Height: h, Format: gpu.TextureFormatDepth32F}),
		width:  d.width,
		height: d.height,
	}
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	return d.stats
}

// LiveBuffers returns the number of buffers created and not yet deleted.
func (d *Device) LiveBuffers() int {
	return len(d.buffers)
}

// LivePrograms returns the number of programs created and not yet deleted.
func (d *Device) LivePrograms() int {
	return len(d.programs)
}

// LiveTextures returns the number of textures created and not yet deleted.
func (d *Device) LiveTextures() int {
	return len(d.textures)
}

// LiveRenderTargets returns the number of off-screen targets created and not yet deleted.
func (d *Device) LiveRenderTargets() int {
	return len(d.targets)
}

// Buffer returns the state of a live buffer.
func (d *Device) Buffer(id gpu.BufferID) (BufferInfo, bool) {
	b, ok := d.buffers[id]
	if !ok {
		return BufferInfo{}, false
	}
	return BufferInfo{Size: len(b.data), Usage: b.usage, Uploads: b.uploads}, true
}

// Program returns the compiled form of a live program.
func (d *Device) Program(id gpu.ProgramID) (*shader.Program, bool) {
	p, ok := d.programs[id]
	if !ok {
		return nil, false
	}
	return p.program, true
}

// Pixel reads the framebuffer colour at (x, y), origin top-left.
func (d *Device) Pixel(x, y int) mgl32.Vec4 {
	return d.frame.colors[0].Load(x, y)
}

// TexturePixel reads a texel of a live texture, origin top-left.
func (d *Device) TexturePixel(id gpu.TextureID, x, y int) (mgl32.Vec4, bool) {
	t, ok := d.textures[id]
	if !ok {
		return mgl32.Vec4{}, false
	}
	return t.Load(x, y), true
}

// Image converts the framebuffer to 8-bit RGBA, clamping every channel to [0, 1].
func (d *Device) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	for y := range d.height {
		for x := range d.width {
			c := d.Pixel(x, y)
			img.SetRGBA(x, y, color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])})
		}
	}
	return img
}

func to8(v float32) uint8 {
	return uint8(math32.Round(mgl32.Clamp(v, 0, 1) * 255))
}

func (d *Device) newID() uint32 {
	d.nextID++
	return d.nextID
}

// ── Buffers ────────────────────────────────────────────────────────────────────

func (d *Device) CreateBuffer() (gpu.BufferID, error) {
	if d.maxBuffers > 0 && len(d.buffers) >= d.maxBuffers {
		return 0, fmt.Errorf("create buffer: %w", ErrLimitReached)
	}
	id := gpu.BufferID(d.newID())
	d.buffers[id] = &bufferObject{}
	d.stats.BuffersCreated++
	return id, nil
}

func (d *Device) DeleteBuffer(id gpu.BufferID) {
	if _, ok := d.buffers[id]; !ok {
		return
	}
	delete(d.buffers, id)
	for target, b := range d.bound {
		if b == id {
			delete(d.bound, target)
		}
	}
	d.stats.BuffersDeleted++
}

func (d *Device) BindBuffer(target gpu.BufferTarget, id gpu.BufferID) {
	d.bound[target] = id
}

func (d *Device) UnbindBuffer(target gpu.BufferTarget) {
	delete(d.bound, target)
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) error {
	b, ok := d.buffers[d.bound[target]]
	if !ok {
		return fmt.Errorf("no buffer bound at %s", target)
	}
	b.data = append(b.data[:0], data...)
	b.usage = usage
	b.uploads++
	d.stats.Uploads++
	return nil
}

// ── Programs ───────────────────────────────────────────────────────────────────

func (d *Device) CreateProgram(vertexSource, fragmentSource string) (gpu.ProgramID, error) {
	prog, err := shader.Compile(vertexSource, fragmentSource)
	if err != nil {
		d.log.Debug("program compilation failed", zap.Error(err))
		return 0, err
	}
	r := &prog.Reflection
	if r.VertexKernel == "" || r.FragmentKernel == "" {
		return 0, fmt.Errorf("program must declare a kernel for both stages")
	}
	vk, fk, err := lookupKernels(r.VertexKernel, r.FragmentKernel)
	if err != nil {
		return 0, err
	}
	id := gpu.ProgramID(d.newID())
	d.programs[id] = &programObject{
		program:    prog,
		vertex:     vk,
		fragment:   fk,
		uniforms:   make([]byte, r.UniformSize),
		blocks:     make(map[string]gpu.BufferID),
		textures:   make(map[string]gpu.TextureID),
		attributes: make(map[string]gpu.BufferID),
	}
	d.stats.ProgramsCreated++
	return id, nil
}

func (d *Device) DeleteProgram(id gpu.ProgramID) {
	if _, ok := d.programs[id]; !ok {
		return
	}
	delete(d.programs, id)
	d.stats.ProgramsDeleted++
}

func (d *Device) SetUniformFloat(program gpu.ProgramID, name string, v float32) error {
	return d.setUniform(program, name, shader.FormatF32, v)
}

func (d *Device) SetUniformInt(program gpu.ProgramID, name string, v int32) error {
	p, u, err := d.uniform(program, name, shader.FormatI32)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p.uniforms[u.Offset:], uint32(v))
	return nil
}

func (d *Device) SetUniformVec2(program gpu.ProgramID, name string, v [2]float32) error {
	return d.setUniform(program, name, shader.FormatVec2, v[:]...)
}

func (d *Device) SetUniformVec3(program gpu.ProgramID, name string, v [3]float32) error {
	return d.setUniform(program, name, shader.FormatVec3, v[:]...)
}

func (d *Device) SetUniformVec4(program gpu.ProgramID, name string, v [4]float32) error {
	return d.setUniform(program, name, shader.FormatVec4, v[:]...)
}

func (d *Device) SetUniformMat4(program gpu.ProgramID, name string, v [16]float32) error {
	return d.setUniform(program, name, shader.FormatMat4, v[:]...)
}

func (d *Device) setUniform(program gpu.ProgramID, name string, format shader.Format, values ...float32) error {
	p, u, err := d.uniform(program, name, format)
	if err != nil {
		return err
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(p.uniforms[int(u.Offset)+i*4:], math.Float32bits(v))
	}
	return nil
}

func (d *Device) uniform(program gpu.ProgramID, name string, format shader.Format) (*programObject, shader.Uniform, error) {
	p, ok := d.programs[program]
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

func (d *Device) UseUniformBlock(program gpu.ProgramID, name string, buffer gpu.BufferID) error {
	p, ok := d.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}
	if _, ok := p.program.Reflection.Block(name); !ok {
		return fmt.Errorf("program %d has no uniform block %q", program, name)
	}
	if _, ok := d.buffers[buffer]; !ok {
		return fmt.Errorf("unknown buffer %d", buffer)
	}
	p.blocks[name] = buffer
	return nil
}

func (d *Device) UseTexture(program gpu.ProgramID, name string, texture gpu.TextureID) error {
	p, ok := d.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}
	decl, ok := p.program.Reflection.Texture(name)
	if !ok {
		return fmt.Errorf("program %d has no texture %q", program, name)
	}
	t, ok := d.textures[texture]
	if !ok {
		return fmt.Errorf("unknown texture %d", texture)
	}
	if (decl.Kind == shader.TextureKindDepth) != t.format.IsDepth() {
		return fmt.Errorf("texture %q expects a %s texture", name, decl.Kind)
	}
	p.textures[name] = texture
	return nil
}

func (d *Device) UseAttribute(program gpu.ProgramID, name string, buffer gpu.BufferID) error {
	return d.useAttribute(program, name, buffer, false)
}

func (d *Device) UseInstanceAttribute(program gpu.ProgramID, name string, buffer gpu.BufferID) error {
	return d.useAttribute(program, name, buffer, true)
}

func (d *Device) useAttribute(program gpu.ProgramID, name string, buffer gpu.BufferID, perInstance bool) error {
	p, ok := d.programs[program]
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
	if _, ok := d.buffers[buffer]; !ok {
		return fmt.Errorf("unknown buffer %d", buffer)
	}
	p.attributes[name] = buffer
	return nil
}

// ── Textures and targets ───────────────────────────────────────────────────────

func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("texture %q has zero size", desc.Label)
	}
	if desc.Data != nil {
		if desc.Format != gpu.TextureFormatRGBA8 {
			return 0, fmt.Errorf("texture %q: initial data is only supported for RGBA8", desc.Label)
		}
		if want := int(desc.Width * desc.Height * 4); len(desc.Data) != want {
			return 0, fmt.Errorf("texture %q: expected %d bytes of pixel data, got %d", desc.Label, want, len(desc.Data))
		}
	}
	if d.maxTextures > 0 && len(d.textures) >= d.maxTextures {
		return 0, fmt.Errorf("create texture %q: %w", desc.Label, ErrLimitReached)
	}
	id := gpu.TextureID(d.newID())
	d.textures[id] = newTexture(desc)
	d.stats.TexturesCreated++
	return id, nil
}

func (d *Device) DeleteTexture(id gpu.TextureID) {
	if _, ok := d.textures[id]; !ok {
		return
	}
	delete(d.textures, id)
	d.stats.TexturesDeleted++
}

func (d *Device) TextureSize(id gpu.TextureID) (uint32, uint32) {
	t, ok := d.textures[id]
	if !ok {
		return 0, 0
	}
	return uint32(t.width), uint32(t.height)
}

func (d *Device) CreateRenderTarget(colors []gpu.TextureID, depth gpu.TextureID) (gpu.RenderTargetID, error) {
	if len(colors) > MaxColorAttachments {
		return 0, fmt.Errorf("render target has %d colour attachments, at most %d are supported", len(colors), MaxColorAttachments)
	}
	rt := &renderTarget{width: -1}
	attach := func(id gpu.TextureID) (*Texture, error) {
		t, ok := d.textures[id]
		if !ok {
			return nil, fmt.Errorf("unknown texture %d", id)
		}
		if rt.width >= 0 && (t.width != rt.width || t.height != rt.height) {
			return nil, fmt.Errorf("attachment %d is %dx%d, expected %dx%d", id, t.width, t.height, rt.width, rt.height)
		}
		rt.width, rt.height = t.width, t.height
		return t, nil
	}
	for _, id := range colors {
		t, err := attach(id)
		if err != nil {
			return 0, err
		}
		if t.format.IsDepth() {
			return 0, fmt.Errorf("texture %d cannot be a colour attachment", id)
		}
		rt.colors = append(rt.colors, t)
	}
	if depth != 0 {
		t, err := attach(depth)
		if err != nil {
			return 0, err
		}
		if !t.format.IsDepth() {
			return 0, fmt.Errorf("texture %d cannot be a depth attachment", depth)
		}
		rt.depth = t
	}
	if rt.width < 0 {
		return 0, fmt.Errorf("render target has no attachments")
	}
	id := gpu.RenderTargetID(d.newID())
	d.targets[id] = rt
	d.stats.TargetsCreated++
	return id, nil
}

func (d *Device) DeleteRenderTarget(id gpu.RenderTargetID) {
	if _, ok := d.targets[id]; !ok {
		return
	}
	delete(d.targets, id)
	if d.current == id {
		d.current = gpu.DefaultRenderTarget
	}
	d.stats.TargetsDeleted++
}

func (d *Device) BindRenderTarget(id gpu.RenderTargetID) error {
	if id != gpu.DefaultRenderTarget {
		if _, ok := d.targets[id]; !ok {
			return fmt.Errorf("unknown render target %d", id)
		}
	}
	d.current = id
	return nil
}

func (d *Device) target() *renderTarget {
	if rt, ok := d.targets[d.current]; ok {
		return rt
	}
	return d.frame
}

// ── Frame ──────────────────────────────────────────────────────────────────────

func (d *Device) FramebufferSize() (int, int) {
	return d.width, d.height
}

func (d *Device) Clear(values gpu.ClearValues) error {
	rt := d.target()
	if values.Color != nil {
		for _, t := range rt.colors {
			for i := 0; i < len(t.texels); i += 4 {
				copy(t.texels[i:i+4], values.Color[:])
			}
		}
	}
	if values.Depth != nil && rt.depth != nil {
		for i := range rt.depth.texels {
			rt.depth.texels[i] = *values.Depth
		}
	}
	d.stats.Clears++
	return nil
}

func (d *Device) Draw(program gpu.ProgramID, states gpu.RenderStates, call gpu.DrawCall) error {
	p, ok := d.programs[program]
	if !ok {
		return fmt.Errorf("unknown program %d", program)
	}
	b, err := d.bindings(p)
	if err != nil {
		return err
	}
	indices, vertexCount, err := d.drawIndices(call)
	if err != nil {
		return err
	}
	instances := int(call.Instances())
	if err := checkStreams(b, vertexCount, instances); err != nil {
		return err
	}

	vs, err := p.vertex(b)
	if err != nil {
		return fmt.Errorf("vertex kernel %q: %w", p.program.Reflection.VertexKernel, err)
	}
	fs, err := p.fragment(b)
	if err != nil {
		return fmt.Errorf("fragment kernel %q: %w", p.program.Reflection.FragmentKernel, err)
	}

	rt := d.target()
	tris := assemble(vs, indices, vertexCount, instances, states.Cull, rt.width, rt.height)
	d.rasterize(rt, tris, fs, states)
	d.stats.Draws++
	return nil
}

// bindings resolves everything the program declares into a Bindings view, failing on the
// first declared resource that is not bound.
func (d *Device) bindings(p *programObject) (*Bindings, error) {
	r := &p.program.Reflection
	b := &Bindings{
		reflection: r,
		uniforms:   p.uniforms,
		blocks:     make(map[string][]byte, len(r.Blocks)),
		textures:   make(map[string]*Texture, len(r.Textures)),
		vertices:   make(map[string]*Stream),
		instances:  make(map[string]*Stream),
	}
	for _, a := range r.Attributes {
		buf, ok := d.buffers[p.attributes[a.Name]]
		if !ok {
			return nil, fmt.Errorf("attribute %q is not bound", a.Name)
		}
		s := &Stream{data: bytesToFloats(buf.data), components: a.Format.Components()}
		if a.PerInstance {
			b.instances[a.Name] = s
		} else {
			b.vertices[a.Name] = s
		}
	}
	for _, blk := range r.Blocks {
		buf, ok := d.buffers[p.blocks[blk.Name]]
		if !ok {
			return nil, fmt.Errorf("uniform block %q is not bound", blk.Name)
		}
		b.blocks[blk.Name] = buf.data
	}
	for _, t := range r.Textures {
		tex, ok := d.textures[p.textures[t.Name]]
		if !ok {
			return nil, fmt.Errorf("texture %q is not bound", t.Name)
		}
		b.textures[t.Name] = tex
	}
	return b, nil
}

// drawIndices returns the vertex index list of a draw and the number of vertices it references.
func (d *Device) drawIndices(call gpu.DrawCall) ([]uint32, int, error) {
	if call.Indices == 0 {
		indices := make([]uint32, call.VertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
		return indices, int(call.VertexCount), nil
	}
	buf, ok := d.buffers[call.Indices]
	if !ok {
		return nil, 0, fmt.Errorf("unknown index buffer %d", call.Indices)
	}
	all := bytesToUint32s(buf.data)
	if int(call.IndexCount) > len(all) {
		return nil, 0, fmt.Errorf("draw reads %d indices, index buffer holds %d", call.IndexCount, len(all))
	}
	indices := all[:call.IndexCount]
	vertexCount := 0
	for _, i := range indices {
		vertexCount = max(vertexCount, int(i)+1)
	}
	return indices, vertexCount, nil
}

func checkStreams(b *Bindings, vertexCount, instances int) error {
	for name, s := range b.vertices {
		if s.Len() < vertexCount {
			return fmt.Errorf("attribute %q holds %d vertices, draw reads %d", name, s.Len(), vertexCount)
		}
	}
	for name, s := range b.instances {
		if s.Len() < instances {
			return fmt.Errorf("instance attribute %q holds %d instances, draw reads %d", name, s.Len(), instances)
		}
	}
	return nil
}

func bytesToFloats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func bytesToUint32s(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}
