package shader

// Bind group indices shared by every program.
const (
	// BlockGroup holds the uniform blocks declared with @oxy:group.
	BlockGroup = 0

	// UniformGroup holds the generated Uniforms struct at binding 0.
	UniformGroup = 1

	// TextureGroup holds textures at even bindings and their samplers at the following odd binding.
	TextureGroup = 2
)

// Format is the WGSL type of an attribute or uniform.
type Format string

const (
	FormatF32  Format = "f32"
	FormatI32  Format = "i32"
	FormatVec2 Format = "vec2"
	FormatVec3 Format = "vec3"
	FormatVec4 Format = "vec4"
	FormatMat4 Format = "mat4"
)

// formatLayout holds the WGSL uniform-address-space layout of a format.
type formatLayout struct {
	wgsl       string
	size       uint32
	align      uint32
	components int
}

var formatLayouts = map[Format]formatLayout{
	FormatF32:  {"f32", 4, 4, 1},
	FormatI32:  {"i32", 4, 4, 1},
	FormatVec2: {"vec2<f32>", 8, 8, 2},
	FormatVec3: {"vec3<f32>", 12, 16, 3},
	FormatVec4: {"vec4<f32>", 16, 16, 4},
	FormatMat4: {"mat4x4<f32>", 64, 16, 16},
}

// IsVertexFormat reports whether the format can feed a vertex attribute.
func (f Format) IsVertexFormat() bool {
	switch f {
	case FormatF32, FormatVec2, FormatVec3, FormatVec4:
		return true
	}
	return false
}

// Components returns the number of scalar components of the format.
func (f Format) Components() int {
	return formatLayouts[f].components
}

// Size returns the byte size of one value of the format.
func (f Format) Size() uint32 {
	return formatLayouts[f].size
}

// WGSL returns the WGSL type name of the format.
func (f Format) WGSL() string {
	return formatLayouts[f].wgsl
}

// Attribute is a vertex stage input fed from a buffer.
type Attribute struct {
	Name        string
	Location    int
	Format      Format
	PerInstance bool
}

// Locations returns the number of consecutive locations the attribute occupies.
func (a Attribute) Locations() int {
	if a.Format == FormatMat4 {
		return 4
	}
	return 1
}

// Uniform is one member of the generated Uniforms struct.
type Uniform struct {
	Name   string
	Format Format
	Offset uint32
}

// Block is a uniform block bound in BlockGroup.
type Block struct {
	Name    string
	Struct  AnnotationArg
	Binding int
}

// Texture is a texture binding in TextureGroup. Colour textures own a sampler at Binding+1.
type Texture struct {
	Name    string
	Kind    AnnotationArg
	Binding int
}

// Reflection describes everything a program reads, merged across both stages.
type Reflection struct {
	VertexKernel   string
	FragmentKernel string
	Attributes     []Attribute
	Inputs         []AnnotationArg
	FragmentInputs []AnnotationArg
	Uniforms       []Uniform
	UniformSize    uint32
	Blocks         []Block
	Textures       []Texture
}

// Attribute looks up a vertex or instance attribute by name.
func (r *Reflection) Attribute(name string) (Attribute, bool) {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Uniform looks up a uniform by name.
func (r *Reflection) Uniform(name string) (Uniform, bool) {
	for _, u := range r.Uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return Uniform{}, false
}

// Block looks up a uniform block by variable name.
func (r *Reflection) Block(name string) (Block, bool) {
	for _, b := range r.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// Texture looks up a texture by name.
func (r *Reflection) Texture(name string) (Texture, bool) {
	for _, t := range r.Textures {
		if t.Name == name {
			return t, true
		}
	}
	return Texture{}, false
}

// ReadsInput reports whether the fragment stage reads the varying.
func (r *Reflection) ReadsInput(input AnnotationArg) bool {
	for _, in := range r.FragmentInputs {
		if in == input {
			return true
		}
	}
	return false
}

// alignUp rounds v up to a multiple of align.
func alignUp(v, align uint32) uint32 {
	return (v + align - 1) / align * align
}
