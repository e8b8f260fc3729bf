// Package material defines how a surface is shaded in the geometry pass.
//
// A Material supplies the fragment stage of a program and binds the uniforms and textures
// that stage declares. It never draws; geometries issue the draw after binding it. The
// material kind is half of the program cache key, so materials of one kind share a program.
package material

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
)

// Material kinds of the built-in materials.
const (
	KindColor   = "color"
	KindTexture = "texture"
	KindDepth   = "depth"
)

// customKindPrefix prefixes the kind of every CustomMaterial.
const customKindPrefix = "custom:"

var (
	//go:embed assets/color.wgsl
	colorFragmentSource string

	//go:embed assets/texture.wgsl
	textureFragmentSource string

	//go:embed assets/depth.wgsl
	depthFragmentSource string
)

// Material defines the interface for a geometry pass material.
type Material interface {
	// Kind identifies the material's shader variant. Materials with equal kinds share a program.
	//
	// Returns:
	//   - string: the material kind
	Kind() string

	// FragmentSource returns the annotated WGSL fragment stage of the material.
	// The //@oxy:input annotations it declares decide which vertex streams a geometry must supply.
	//
	// Returns:
	//   - string: the fragment stage source
	FragmentSource() string

	// Bind sets every uniform and texture the fragment stage declares on the program.
	//
	// Parameters:
	//   - ctx: the graphics context
	//   - p: the program compiled for this material's kind
	//
	// Returns:
	//   - error: an error if a uniform or texture could not be set
	Bind(ctx gpu.Context, p *program.Program) error

	// IsTransparent reports whether shapes using the material must be left out of the geometry pass.
	//
	// Returns:
	//   - bool: true for transparent materials
	IsTransparent() bool

	// RenderStates returns the fixed-function state the material is drawn with.
	//
	// Returns:
	//   - gpu.RenderStates: the draw state
	RenderStates() gpu.RenderStates
}

// Surface holds the Phong response written into the G-buffer alongside the surface colour.
type Surface struct {
	// Diffuse scales the diffuse term of every light.
	Diffuse float32

	// Specular scales the specular term of every light.
	Specular float32

	// Power is the specular exponent.
	Power float32
}

// DefaultSurface is the response materials start with.
var DefaultSurface = Surface{Diffuse: 1, Specular: 0.5, Power: 32}

// bind sets the surface uniforms shared by the built-in geometry pass fragment stages.
func (s Surface) bind(ctx gpu.Context, p *program.Program) error {
	if err := ctx.SetUniformFloat(p.ID, "diffuse_intensity", s.Diffuse); err != nil {
		return err
	}
	if err := ctx.SetUniformFloat(p.ID, "specular_intensity", s.Specular); err != nil {
		return err
	}
	if err := ctx.SetUniformFloat(p.ID, "specular_power", s.Power); err != nil {
		return err
	}
	return nil
}

// bindColor sets the surface_color uniform.
func bindColor(ctx gpu.Context, p *program.Program, c [4]float32) error {
	if err := ctx.SetUniformVec4(p.ID, "surface_color", c); err != nil {
		return fmt.Errorf("failed to bind surface colour: %w", err)
	}
	return nil
}
