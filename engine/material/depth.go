package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
)

// DepthMaterial writes depth only. Shadow passes draw every shape with it.
type DepthMaterial struct{}

var _ Material = DepthMaterial{}

// Depth is the shared depth-only material.
var Depth = DepthMaterial{}

func (DepthMaterial) Kind() string {
	return KindDepth
}

func (DepthMaterial) FragmentSource() string {
	return depthFragmentSource
}

func (DepthMaterial) Bind(gpu.Context, *program.Program) error {
	return nil
}

func (DepthMaterial) IsTransparent() bool {
	return false
}

func (DepthMaterial) RenderStates() gpu.RenderStates {
	return gpu.RenderStates{
		DepthTest:  gpu.DepthTestLess,
		DepthWrite: true,
		Cull:       gpu.CullNone,
	}
}
