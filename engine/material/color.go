package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
)

// ColorMaterial shades a surface with one solid colour.
type ColorMaterial struct {
	// Color is the RGBA surface colour. An alpha below one makes the material transparent.
	Color mgl32.Vec4

	// Surface is the Phong response.
	Surface Surface

	// Transparent forces the material out of the geometry pass.
	Transparent bool
}

var _ Material = ColorMaterial{}

// NewColorMaterial creates a solid colour material.
//
// Parameters:
//   - color: the RGBA surface colour
//   - opts: variadic list of MaterialBuilderOption functions
//
// Returns:
//   - ColorMaterial: the material
func NewColorMaterial(color mgl32.Vec4, opts ...MaterialBuilderOption) ColorMaterial {
	s := applyOptions(opts)
	return ColorMaterial{Color: color, Surface: s.surface, Transparent: s.transparent}
}

func (m ColorMaterial) Kind() string {
	return KindColor
}

func (m ColorMaterial) FragmentSource() string {
	return colorFragmentSource
}

func (m ColorMaterial) Bind(ctx gpu.Context, p *program.Program) error {
	if err := bindColor(ctx, p, m.Color); err != nil {
		return err
	}
	return m.Surface.bind(ctx, p)
}

func (m ColorMaterial) IsTransparent() bool {
	return m.Transparent || m.Color[3] < 1
}

func (m ColorMaterial) RenderStates() gpu.RenderStates {
	return gpu.DefaultRenderStates()
}
