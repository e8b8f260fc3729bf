// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive struct injection, bind group declaration, and the generation of
// the vertex input, varying, uniform and texture declarations shared by both program stages.
// The parsed results are stored as Annotation values and folded into a Reflection that
// every gpu.Context implementation binds resources by.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include camera
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration for a
	// uniform block and records it as a block of the program.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 storage_uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeKernel names the shading kernel a stage implements. Hardware contexts
	// ignore it; the software device uses it to select the CPU implementation of the stage.
	//
	// Syntax: //@oxy:kernel <name>
	AnnotationTypeKernel AnnotationType = "kernel"

	// AnnotationTypeAttribute declares a per-vertex input of the vertex stage.
	//
	// Syntax: //@oxy:attribute <location> <name> <format>
	//
	// Example: //@oxy:attribute 0 position vec3
	AnnotationTypeAttribute AnnotationType = "attribute"

	// AnnotationTypeInstance declares a per-instance input of the vertex stage. A mat4
	// instance input occupies four consecutive locations and is exposed to WGSL as the
	// vec4 columns <name>_0 to <name>_3.
	//
	// Syntax: //@oxy:instance <location> <name> <format>
	AnnotationTypeInstance AnnotationType = "instance"

	// AnnotationTypeInput declares a varying carried from the vertex to the fragment stage.
	// In the fragment stage it states which varyings the stage reads.
	//
	// Syntax: //@oxy:input <pos|nor|uvs>
	AnnotationTypeInput AnnotationType = "input"

	// AnnotationTypeUniform declares a member of the program's Uniforms struct.
	//
	// Syntax: //@oxy:uniform <name> <format>
	//
	// Example: //@oxy:uniform model_matrix mat4
	AnnotationTypeUniform AnnotationType = "uniform"

	// AnnotationTypeTexture declares a texture binding. Colour textures are paired with a
	// filtering sampler named <name>_sampler; data and depth textures are read with textureLoad.
	//
	// Syntax: //@oxy:texture <name> <color|data|depth>
	AnnotationTypeTexture AnnotationType = "texture"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:   [0] = struct type key
	//   - group:     [0] = address space, [1] = var name, [2] = struct type key
	//   - kernel:    [0] = kernel name
	//   - attribute: [0] = name, [1] = format
	//   - instance:  [0] = name, [1] = format
	//   - input:     [0] = varying
	//   - uniform:   [0] = name, [1] = format
	//   - texture:   [0] = name, [1] = texture kind
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations, and the @location index for
	// attribute and instance annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────

const (
	// AnnotationArgCamera identifies the CameraUniform struct.
	// Source: engine/camera/assets/camera_uniform.wgsl
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgLights identifies the LightData struct holding every light slot.
	// Source: engine/light/assets/light_data.wgsl
	AnnotationArgLights AnnotationArg = "lights"

	// AnnotationArgGBuffer identifies the GBufferOutput struct written by geometry pass fragment stages.
	// Source: engine/shader/assets/gbuffer_output.wgsl
	AnnotationArgGBuffer AnnotationArg = "gbuffer"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"
)

// ── Varying arguments ──────────────────────────────────────────────────────────

const (
	// InputPosition is the world-space position varying.
	InputPosition AnnotationArg = "pos"

	// InputNormal is the world-space normal varying.
	InputNormal AnnotationArg = "nor"

	// InputUV is the texture coordinate varying.
	InputUV AnnotationArg = "uvs"
)

// ── Texture kind arguments ─────────────────────────────────────────────────────

const (
	// TextureKindColor is a filterable colour texture sampled through a sampler.
	TextureKindColor AnnotationArg = "color"

	// TextureKindData is an unfilterable float texture read with textureLoad.
	TextureKindData AnnotationArg = "data"

	// TextureKindDepth is a depth texture read with textureLoad.
	TextureKindDepth AnnotationArg = "depth"
)

// validStructTypes lists all AnnotationArg values that are accepted as struct type
// arguments in @oxy:include and @oxy:group annotations.
var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgLights,
	AnnotationArgGBuffer,
}

// validAddressSpaces lists all AnnotationArg values that are accepted as address
// space arguments in @oxy:group annotations.
var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
}

// validInputs lists the varyings in their fixed @location order.
var validInputs = []AnnotationArg{
	InputPosition,
	InputNormal,
	InputUV,
}

// validTextureKinds lists the accepted texture kinds.
var validTextureKinds = []AnnotationArg{
	TextureKindColor,
	TextureKindData,
	TextureKindDepth,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix. Returns
// a populated Annotation for valid annotations, or an error describing the problem for
// malformed annotations with correct prefix but invalid syntax or unknown arguments.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group number, binding number, address space, var name, struct type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %v", lineNum, args[1], err)
		}
		if groupInt != BlockGroup {
			return nil, fmt.Errorf("line %d: uniform blocks must live in group %d, got %d", lineNum, BlockGroup, groupInt)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case string(AnnotationTypeKernel):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy kernel annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeKernel,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeAttribute), string(AnnotationTypeInstance):
		if len(args) != 4 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation requires exactly three arguments (location, name, format)", lineNum, args[0])
		}
		loc, err := strconv.Atoi(args[1])
		if err != nil || loc < 0 {
			return nil, fmt.Errorf("line %d: invalid location %q in @oxy %s annotation", lineNum, args[1], args[0])
		}
		format := Format(args[3])
		if !format.IsVertexFormat() && (args[0] != string(AnnotationTypeInstance) || format != FormatMat4) {
			return nil, fmt.Errorf("line %d: unsupported vertex format %q in @oxy %s annotation", lineNum, args[3], args[0])
		}
		return &Annotation{
			Type:    AnnotationType(args[0]),
			Args:    []AnnotationArg{AnnotationArg(args[2]), AnnotationArg(args[3])},
			Line:    lineNum,
			Binding: &loc,
		}, nil
	case string(AnnotationTypeInput):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy input annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validInputs, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown varying %q in @oxy input annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: AnnotationTypeInput,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeUniform):
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy uniform annotation requires exactly two arguments (name, format)", lineNum)
		}
		if _, ok := formatLayouts[Format(args[2])]; !ok {
			return nil, fmt.Errorf("line %d: unsupported uniform format %q in @oxy uniform annotation", lineNum, args[2])
		}
		return &Annotation{
			Type: AnnotationTypeUniform,
			Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeTexture):
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy texture annotation requires exactly two arguments (name, kind)", lineNum)
		}
		if !slices.Contains(validTextureKinds, AnnotationArg(args[2])) {
			return nil, fmt.Errorf("line %d: unknown texture kind %q in @oxy texture annotation", lineNum, args[2])
		}
		return &Annotation{
			Type: AnnotationTypeTexture,
			Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])},
			Line: lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
