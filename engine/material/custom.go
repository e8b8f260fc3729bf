package material

import (
	"fmt"
	"hash/fnv"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
)

// BindFunc sets the uniforms and textures of a custom fragment stage.
type BindFunc func(ctx gpu.Context, p *program.Program) error

// CustomMaterial shades a surface with a caller supplied fragment stage. The stage must
// write the GBufferOutput struct and read the pos input. To render on the software device
// its //@oxy:kernel must be registered with soft.RegisterFragmentKernel.
type CustomMaterial struct {
	// Name distinguishes custom materials. The kind is "custom:" + Name + "#" + a hash of
	// Source, so two stages sharing a name never share a program.
	Name string

	// Source is the annotated WGSL fragment stage.
	Source string

	// BindFn sets the stage's uniforms, may be nil.
	BindFn BindFunc

	// Transparent excludes the material from the geometry pass.
	Transparent bool

	// States overrides the default render states when non-nil.
	States *gpu.RenderStates
}

var _ Material = CustomMaterial{}

func (m CustomMaterial) Kind() string {
	h := fnv.New32a()
	h.Write([]byte(m.Source))
	return fmt.Sprintf("%s%s#%08x", customKindPrefix, m.Name, h.Sum32())
}

func (m CustomMaterial) FragmentSource() string {
	return m.Source
}

func (m CustomMaterial) Bind(ctx gpu.Context, p *program.Program) error {
	if m.BindFn == nil {
		return nil
	}
	return m.BindFn(ctx, p)
}

func (m CustomMaterial) IsTransparent() bool {
	return m.Transparent
}

func (m CustomMaterial) RenderStates() gpu.RenderStates {
	if m.States != nil {
		return *m.States
	}
	return gpu.DefaultRenderStates()
}
