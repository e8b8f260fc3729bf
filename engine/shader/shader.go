package shader

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Program is a compiled vertex and fragment stage pair: the final WGSL of both stages
// and the merged Reflection every gpu.Context binds resources by.
type Program struct {
	// VertexSource is the pre-processed vertex stage WGSL including the generated prelude.
	VertexSource string

	// FragmentSource is the pre-processed fragment stage WGSL including the generated prelude.
	FragmentSource string

	// VertexEntry is the name of the @vertex function.
	VertexEntry string

	// FragmentEntry is the name of the @fragment function.
	FragmentEntry string

	// Reflection describes the attributes, varyings, uniforms, blocks and textures of both stages.
	Reflection Reflection
}

// stage distinguishes the two program stages while merging declarations.
type stage int

const (
	stageVertex stage = iota
	stageFragment
)

func (s stage) String() string {
	if s == stageVertex {
		return "vertex"
	}
	return "fragment"
}

// Compile pre-processes an annotated vertex and fragment source pair, merges their
// declarations and prepends the shared generated declarations to both stages.
//
// The generated prelude holds the VertexOutput varying struct, the Uniforms struct bound
// at @group(1) @binding(0), texture and sampler bindings in @group(2), and for the vertex
// stage the VertexInput struct built from attribute and instance annotations.
//
// Parameters:
//   - vertexSource: the annotated vertex stage WGSL
//   - fragmentSource: the annotated fragment stage WGSL
//
// Returns:
//   - *Program: the compiled program
//   - error: a diagnostic naming the stage and line of the first problem
func Compile(vertexSource, fragmentSource string) (*Program, error) {
	pp := NewPreProcessor()

	vs, err := pp.Process(vertexSource)
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	vertexDecls := slices.Clone(pp.Declarations())

	fs, err := pp.Process(fragmentSource)
	if err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	fragmentDecls := slices.Clone(pp.Declarations())

	p := &Program{
		VertexEntry:   parseEntryPoint(vs, vertexEntryRegex),
		FragmentEntry: parseEntryPoint(fs, fragmentEntryRegex),
	}
	if p.VertexEntry == "" {
		return nil, fmt.Errorf("vertex stage: no @vertex entry point")
	}
	if p.FragmentEntry == "" {
		return nil, fmt.Errorf("fragment stage: no @fragment entry point")
	}

	r := &p.Reflection
	if err := r.merge(vertexDecls, stageVertex); err != nil {
		return nil, err
	}
	if err := r.merge(fragmentDecls, stageFragment); err != nil {
		return nil, err
	}
	for _, in := range r.FragmentInputs {
		if !slices.Contains(r.Inputs, in) {
			return nil, fmt.Errorf("fragment stage: input %q is not written by the vertex stage", in)
		}
	}
	r.layoutUniforms()

	p.VertexSource = r.prelude(stageVertex) + vs
	p.FragmentSource = r.prelude(stageFragment) + fs
	return p, nil
}

// merge folds one stage's declarations into the reflection.
func (r *Reflection) merge(decls []Annotation, st stage) error {
	for _, d := range decls {
		switch d.Type {
		case AnnotationTypeKernel:
			kernel := &r.VertexKernel
			if st == stageFragment {
				kernel = &r.FragmentKernel
			}
			if *kernel != "" {
				return fmt.Errorf("%s stage: line %d: kernel declared twice", st, d.Line)
			}
			*kernel = string(d.Args[0])
		case AnnotationTypeAttribute, AnnotationTypeInstance:
			if st != stageVertex {
				return fmt.Errorf("%s stage: line %d: attributes are only valid in the vertex stage", st, d.Line)
			}
			attr := Attribute{
				Name:        string(d.Args[0]),
				Location:    *d.Binding,
				Format:      Format(d.Args[1]),
				PerInstance: d.Type == AnnotationTypeInstance,
			}
			for _, a := range r.Attributes {
				if a.Name == attr.Name {
					return fmt.Errorf("vertex stage: line %d: attribute %q declared twice", d.Line, attr.Name)
				}
				if attr.Location < a.Location+a.Locations() && a.Location < attr.Location+attr.Locations() {
					return fmt.Errorf("vertex stage: line %d: location %d already used by %q", d.Line, attr.Location, a.Name)
				}
			}
			r.Attributes = append(r.Attributes, attr)
		case AnnotationTypeInput:
			inputs := &r.Inputs
			if st == stageFragment {
				inputs = &r.FragmentInputs
			}
			if !slices.Contains(*inputs, d.Args[0]) {
				*inputs = append(*inputs, d.Args[0])
			}
		case AnnotationTypeUniform:
			name, format := string(d.Args[0]), Format(d.Args[1])
			if existing, ok := r.Uniform(name); ok {
				if existing.Format != format {
					return fmt.Errorf("%s stage: line %d: uniform %q redeclared as %s, was %s", st, d.Line, name, format, existing.Format)
				}
				continue
			}
			r.Uniforms = append(r.Uniforms, Uniform{Name: name, Format: format})
		case AnnotationTypeTexture:
			name, kind := string(d.Args[0]), d.Args[1]
			if existing, ok := r.Texture(name); ok {
				if existing.Kind != kind {
					return fmt.Errorf("%s stage: line %d: texture %q redeclared as %s, was %s", st, d.Line, name, kind, existing.Kind)
				}
				continue
			}
			r.Textures = append(r.Textures, Texture{Name: name, Kind: kind, Binding: 2 * len(r.Textures)})
		case AnnotationTypeBindingGroup:
			name := string(d.Args[1])
			if existing, ok := r.Block(name); ok {
				if existing.Binding != *d.Binding || existing.Struct != d.Args[2] {
					return fmt.Errorf("%s stage: line %d: block %q redeclared with a different binding", st, d.Line, name)
				}
				continue
			}
			for _, b := range r.Blocks {
				if b.Binding == *d.Binding {
					return fmt.Errorf("%s stage: line %d: binding %d already used by block %q", st, d.Line, b.Binding, b.Name)
				}
			}
			r.Blocks = append(r.Blocks, Block{Name: name, Struct: d.Args[2], Binding: *d.Binding})
		}
	}
	return nil
}

// layoutUniforms assigns WGSL uniform address space offsets in declaration order.
func (r *Reflection) layoutUniforms() {
	var offset uint32
	for i := range r.Uniforms {
		l := formatLayouts[r.Uniforms[i].Format]
		offset = alignUp(offset, l.align)
		r.Uniforms[i].Offset = offset
		offset += l.size
	}
	if offset > 0 {
		r.UniformSize = alignUp(offset, 16)
	}
}

// prelude renders the declarations generated for one stage.
func (r *Reflection) prelude(st stage) string {
	var sb strings.Builder

	sb.WriteString("struct VertexOutput {\n    @builtin(position) clip_position: vec4<f32>,\n")
	for loc, in := range validInputs {
		if !slices.Contains(r.Inputs, in) {
			continue
		}
		wgslType := "vec3<f32>"
		if in == InputUV {
			wgslType = "vec2<f32>"
		}
		fmt.Fprintf(&sb, "    @location(%d) %s: %s,\n", loc, in, wgslType)
	}
	sb.WriteString("}\n")

	if st == stageVertex && len(r.Attributes) > 0 {
		attrs := slices.Clone(r.Attributes)
		sort.Slice(attrs, func(i, j int) bool { return attrs[i].Location < attrs[j].Location })
		sb.WriteString("struct VertexInput {\n")
		for _, a := range attrs {
			if a.Format == FormatMat4 {
				for col := range 4 {
					fmt.Fprintf(&sb, "    @location(%d) %s_%d: %s,\n", a.Location+col, a.Name, col, FormatVec4.WGSL())
				}
				continue
			}
			fmt.Fprintf(&sb, "    @location(%d) %s: %s,\n", a.Location, a.Name, a.Format.WGSL())
		}
		sb.WriteString("}\n")
	}

	if len(r.Uniforms) > 0 {
		sb.WriteString("struct Uniforms {\n")
		for _, u := range r.Uniforms {
			fmt.Fprintf(&sb, "    %s: %s,\n", u.Name, u.Format.WGSL())
		}
		sb.WriteString("}\n")
		fmt.Fprintf(&sb, "@group(%d) @binding(0) var<uniform> uniforms: Uniforms;\n", UniformGroup)
	}

	for _, t := range r.Textures {
		switch t.Kind {
		case TextureKindColor:
			fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: texture_2d<f32>;\n", TextureGroup, t.Binding, t.Name)
			fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s_sampler: sampler;\n", TextureGroup, t.Binding+1, t.Name)
		case TextureKindData:
			fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: texture_2d<f32>;\n", TextureGroup, t.Binding, t.Name)
		case TextureKindDepth:
			fmt.Fprintf(&sb, "@group(%d) @binding(%d) var %s: texture_depth_2d;\n", TextureGroup, t.Binding, t.Name)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
