// Package program compiles and shares the GPU programs geometries draw with.
//
// A program is identified by a Signature: the kind of material shading it and the
// attribute capabilities of the geometry feeding it. The vertex stage is generated from the
// geometry capability and the inputs the material's fragment stage declares, so every
// (material, geometry) pair shares one compiled program through a Cache.
package program

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
)

// vertexTemplateSource generates the mesh and instanced mesh vertex stages.
//
//go:embed assets/vertex.wgsl.tmpl
var vertexTemplateSource string

// FullscreenVertexSource is the vertex stage of full-screen passes. It expects a quad of
// NDC positions in the "position" attribute and writes the uvs varying.
//
//go:embed assets/fullscreen.wgsl
var FullscreenVertexSource string

var vertexTemplate = template.Must(template.New("vertex").Parse(vertexTemplateSource))

// Capability describes which attribute streams a geometry can feed a program.
type Capability struct {
	Instanced bool
	Normals   bool
	UVs       bool
}

// String returns a compact description such as "instanced+normals".
func (c Capability) String() string {
	parts := []string{"static"}
	if c.Instanced {
		parts[0] = "instanced"
	}
	if c.Normals {
		parts = append(parts, "normals")
	}
	if c.UVs {
		parts = append(parts, "uvs")
	}
	return strings.Join(parts, "+")
}

// Signature is the program cache key.
type Signature struct {
	// Material is the material kind, e.g. "color", "texture" or "custom:water".
	Material string

	// Geometry is the attribute capability of the geometry feeding the program.
	Geometry Capability
}

// String returns the signature as "material/capability".
func (s Signature) String() string {
	return s.Material + "/" + s.Geometry.String()
}

// Requirements are the optional vertex streams a fragment stage reads.
type Requirements struct {
	Normals bool
	UVs     bool
}

// ShaderCompileError reports a program that failed to compile.
type ShaderCompileError struct {
	Message string
}

func (e *ShaderCompileError) Error() string {
	return "shader compile failed: " + e.Message
}

// Program is a compiled program shared through a Cache.
type Program struct {
	// ID is the program handle on the graphics context.
	ID gpu.ProgramID

	// Signature is the key the program was compiled for.
	Signature Signature

	// Requirements are the optional streams the program's fragment stage reads.
	Requirements Requirements
}

// ParseRequirements reads the //@oxy:input annotations of a geometry pass fragment stage.
// Every such stage must read the world position.
//
// Parameters:
//   - fragmentSource: the annotated fragment stage WGSL
//
// Returns:
//   - Requirements: the optional streams the stage reads
//   - error: a *ShaderCompileError if the annotations are malformed or pos is not read
func ParseRequirements(fragmentSource string) (Requirements, error) {
	pp := shader.NewPreProcessor()
	if _, err := pp.Process(fragmentSource); err != nil {
		return Requirements{}, &ShaderCompileError{Message: err.Error()}
	}
	var req Requirements
	var pos bool
	for _, d := range pp.Declarations() {
		if d.Type != shader.AnnotationTypeInput {
			continue
		}
		switch d.Args[0] {
		case shader.InputPosition:
			pos = true
		case shader.InputNormal:
			req.Normals = true
		case shader.InputUV:
			req.UVs = true
		}
	}
	if !pos {
		return Requirements{}, &ShaderCompileError{Message: "fragment stage does not read the pos input"}
	}
	return req, nil
}

// VertexSource generates the vertex stage for a geometry capability that writes exactly the
// varyings in req. Only attributes the fragment stage needs are declared.
//
// Parameters:
//   - c: the geometry capability, only Instanced is consulted
//   - req: the streams the fragment stage reads
//
// Returns:
//   - string: the annotated vertex stage WGSL
//   - error: an error if the template could not be executed
func VertexSource(c Capability, req Requirements) (string, error) {
	var buf bytes.Buffer
	err := vertexTemplate.Execute(&buf, struct {
		Instanced, Normals, UVs bool
	}{c.Instanced, req.Normals, req.UVs})
	if err != nil {
		return "", fmt.Errorf("failed to generate vertex stage: %w", err)
	}
	return buf.String(), nil
}
