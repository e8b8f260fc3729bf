package soft

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Stream is a bound attribute buffer viewed as tightly packed float32 components.
type Stream struct {
	data       []float32
	components int
}

// Len returns the number of whole elements in the stream.
func (s *Stream) Len() int {
	if s == nil || s.components == 0 {
		return 0
	}
	return len(s.data) / s.components
}

// Float returns the first component of element i.
func (s *Stream) Float(i int) float32 {
	return s.data[i*s.components]
}

// Vec2 returns element i as a two-component vector. Missing components read as zero.
func (s *Stream) Vec2(i int) mgl32.Vec2 {
	var v mgl32.Vec2
	copy(v[:], s.element(i))
	return v
}

// Vec3 returns element i as a three-component vector. Missing components read as zero.
func (s *Stream) Vec3(i int) mgl32.Vec3 {
	var v mgl32.Vec3
	copy(v[:], s.element(i))
	return v
}

// Vec4 returns element i as a four-component vector. Missing components read as zero.
func (s *Stream) Vec4(i int) mgl32.Vec4 {
	var v mgl32.Vec4
	copy(v[:], s.element(i))
	return v
}

// Mat4 returns element i as a column-major matrix.
func (s *Stream) Mat4(i int) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], s.element(i))
	return m
}

func (s *Stream) element(i int) []float32 {
	return s.data[i*s.components : (i+1)*s.components]
}

// Texture is a device texture as seen by kernels. Colour texels are stored as four float32
// channels, depth texels as one.
type Texture struct {
	width, height int
	format        gpu.TextureFormat
	repeat        bool
	texels        []float32
}

// newTexture allocates texel storage. Depth textures start at the far plane.
func newTexture(desc gpu.TextureDescriptor) *Texture {
	channels := 4
	if desc.Format.IsDepth() {
		channels = 1
	}
	t := &Texture{
		width:  int(desc.Width),
		height: int(desc.Height),
		format: desc.Format,
		repeat: desc.Repeat,
		texels: make([]float32, int(desc.Width)*int(desc.Height)*channels),
	}
	if desc.Format.IsDepth() {
		for i := range t.texels {
			t.texels[i] = 1
		}
	}
	for i, b := range desc.Data {
		if i >= len(t.texels) {
			break
		}
		t.texels[i] = float32(b) / 255
	}
	return t
}

// Size returns the texture dimensions in texels.
func (t *Texture) Size() (width, height int) {
	return t.width, t.height
}

// Load reads a colour texel. Coordinates are clamped to the texture.
func (t *Texture) Load(x, y int) mgl32.Vec4 {
	i := t.index(x, y)
	if t.format.IsDepth() {
		d := t.texels[i]
		return mgl32.Vec4{d, d, d, 1}
	}
	var v mgl32.Vec4
	copy(v[:], t.texels[i*4:i*4+4])
	return v
}

// LoadDepth reads a depth texel. Coordinates are clamped to the texture.
func (t *Texture) LoadDepth(x, y int) float32 {
	i := t.index(x, y)
	if !t.format.IsDepth() {
		return t.texels[i*4]
	}
	return t.texels[i]
}

// Texel returns the integer texel coordinate covering a normalized coordinate, the way
// full-screen passes address their inputs.
func (t *Texture) Texel(uv mgl32.Vec2) (x, y int) {
	return int(math32.Floor(uv[0] * float32(t.width))), int(math32.Floor(uv[1] * float32(t.height)))
}

// Sample performs a nearest-texel lookup at a normalized coordinate, wrapping when the
// texture was created with Repeat and clamping otherwise.
func (t *Texture) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	if t.repeat {
		uv = mgl32.Vec2{uv[0] - math32.Floor(uv[0]), uv[1] - math32.Floor(uv[1])}
	}
	return t.Load(t.Texel(uv))
}

func (t *Texture) index(x, y int) int {
	x = min(max(x, 0), t.width-1)
	y = min(max(y, 0), t.height-1)
	return y*t.width + x
}

// Bindings is the resource view kernels are prepared against for one draw: the program's
// uniform values, its bound uniform blocks, textures and attribute streams.
type Bindings struct {
	reflection *shader.Reflection
	uniforms   []byte
	blocks     map[string][]byte
	textures   map[string]*Texture
	vertices   map[string]*Stream
	instances  map[string]*Stream
}

// Reflection returns the reflection of the program being drawn.
func (b *Bindings) Reflection() *shader.Reflection {
	return b.reflection
}

// Float reads a f32 uniform. Undeclared uniforms read as zero.
func (b *Bindings) Float(name string) float32 {
	return b.floats(name, 1)[0]
}

// Int reads an i32 uniform. Undeclared uniforms read as zero.
func (b *Bindings) Int(name string) int32 {
	u, ok := b.reflection.Uniform(name)
	if !ok {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b.uniforms[u.Offset:]))
}

// Vec2 reads a vec2 uniform.
func (b *Bindings) Vec2(name string) mgl32.Vec2 {
	var v mgl32.Vec2
	copy(v[:], b.floats(name, 2))
	return v
}

// Vec3 reads a vec3 uniform.
func (b *Bindings) Vec3(name string) mgl32.Vec3 {
	var v mgl32.Vec3
	copy(v[:], b.floats(name, 3))
	return v
}

// Vec4 reads a vec4 uniform.
func (b *Bindings) Vec4(name string) mgl32.Vec4 {
	var v mgl32.Vec4
	copy(v[:], b.floats(name, 4))
	return v
}

// Mat4 reads a mat4 uniform.
func (b *Bindings) Mat4(name string) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], b.floats(name, 16))
	return m
}

// Block returns the bytes of the buffer bound to a uniform block, or nil.
func (b *Bindings) Block(name string) []byte {
	return b.blocks[name]
}

// Texture returns the texture bound to a texture slot, or nil.
func (b *Bindings) Texture(name string) *Texture {
	return b.textures[name]
}

// Attribute returns the stream bound to a per-vertex attribute, or nil.
func (b *Bindings) Attribute(name string) *Stream {
	return b.vertices[name]
}

// Instance returns the stream bound to a per-instance attribute, or nil.
func (b *Bindings) Instance(name string) *Stream {
	return b.instances[name]
}

func (b *Bindings) floats(name string, n int) []float32 {
	out := make([]float32, n)
	u, ok := b.reflection.Uniform(name)
	if !ok {
		return out
	}
	for i := range out {
		off := int(u.Offset) + i*4
		if off+4 > len(b.uniforms) {
			break
		}
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.uniforms[off:]))
	}
	return out
}
