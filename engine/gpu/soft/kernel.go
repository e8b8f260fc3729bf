package soft

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxColorAttachments is the number of colour outputs a fragment kernel can write.
const MaxColorAttachments = 4

// Varyings are the values carried from the vertex to the fragment stage, interpolated
// perspective-correctly across each triangle. They mirror the pos, nor and uvs fields of
// the generated WGSL VertexOutput struct.
type Varyings struct {
	Pos mgl32.Vec3
	Nor mgl32.Vec3
	UV  mgl32.Vec2
}

// weighted returns a*wa + b*wb + c*wc.
func weighted(a, b, c Varyings, wa, wb, wc float32) Varyings {
	return Varyings{
		Pos: a.Pos.Mul(wa).Add(b.Pos.Mul(wb)).Add(c.Pos.Mul(wc)),
		Nor: a.Nor.Mul(wa).Add(b.Nor.Mul(wb)).Add(c.Nor.Mul(wc)),
		UV:  a.UV.Mul(wa).Add(b.UV.Mul(wb)).Add(c.UV.Mul(wc)),
	}
}

// Outputs holds the colour outputs of one fragment in location order.
type Outputs [MaxColorAttachments]mgl32.Vec4

// VertexShader transforms one vertex of one instance into clip space.
type VertexShader func(vertex, instance int) (clip mgl32.Vec4, out Varyings)

// FragmentShader shades one fragment. Returning false discards it.
// Fragment shaders run concurrently and must not mutate shared state.
type FragmentShader func(in Varyings) (Outputs, bool)

// VertexKernel prepares a VertexShader against the bindings of a draw.
type VertexKernel func(b *Bindings) (VertexShader, error)

// FragmentKernel prepares a FragmentShader against the bindings of a draw.
type FragmentKernel func(b *Bindings) (FragmentShader, error)

var (
	kernelsMu       sync.RWMutex
	vertexKernels   = map[string]VertexKernel{}
	fragmentKernels = map[string]FragmentKernel{}
)

// RegisterVertexKernel makes a vertex kernel available to programs declaring
// //@oxy:kernel <name> in their vertex stage. Registering a name twice replaces the kernel.
//
// Parameters:
//   - name: the kernel name
//   - k: the kernel implementation
func RegisterVertexKernel(name string, k VertexKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	vertexKernels[name] = k
}

// RegisterFragmentKernel makes a fragment kernel available to programs declaring
// //@oxy:kernel <name> in their fragment stage. Custom materials register their kernel here
// to render on the software device. Registering a name twice replaces the kernel.
//
// Parameters:
//   - name: the kernel name
//   - k: the kernel implementation
func RegisterFragmentKernel(name string, k FragmentKernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	fragmentKernels[name] = k
}

func lookupKernels(vertex, fragment string) (VertexKernel, FragmentKernel, error) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	vk, ok := vertexKernels[vertex]
	if !ok {
		return nil, nil, fmt.Errorf("unknown vertex kernel %q", vertex)
	}
	fk, ok := fragmentKernels[fragment]
	if !ok {
		return nil, nil, fmt.Errorf("unknown fragment kernel %q", fragment)
	}
	return vk, fk, nil
}

func init() {
	RegisterVertexKernel("mesh", meshKernel)
	RegisterVertexKernel("instanced_mesh", instancedMeshKernel)
	RegisterVertexKernel("fullscreen", fullscreenKernel)

	RegisterFragmentKernel("geometry_color", geometryColorKernel)
	RegisterFragmentKernel("geometry_texture", geometryTextureKernel)
	RegisterFragmentKernel("depth", depthKernel)
	RegisterFragmentKernel("deferred_light", deferredLightKernel)
}
