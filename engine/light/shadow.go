package light

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture. Pipelines use this as their initial value but can override it
// via the WithShadowMapResolution builder option.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default half-extent (in world units) of the scene
// bounds shadow frustums are fitted to.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// minShadowNear keeps perspective shadow frustums from collapsing onto the light.
const minShadowNear float32 = 0.05

// ShadowSource supplies what a light needs to allocate and fit its shadow map.
type ShadowSource interface {
	// Context returns the graphics context shadow maps are allocated on.
	Context() gpu.Context

	// ShadowMapResolution returns the width and height of new shadow maps in texels.
	ShadowMapResolution() uint32

	// SceneBounds returns the world-space box shadow frustums must enclose.
	SceneBounds() common.AABB
}

// ShadowMap is a light's depth texture together with the light-space camera it is rendered from.
type ShadowMap struct {
	ctx        gpu.Context
	depth      gpu.TextureID
	target     gpu.RenderTargetID
	resolution uint32
	camera     camera.Camera
}

// newShadowMap allocates a depth-only render target of the given resolution.
func newShadowMap(ctx gpu.Context, resolution uint32) (*ShadowMap, error) {
	if resolution == 0 {
		resolution = ShadowMapResolution
	}
	depth, err := ctx.CreateTexture(gpu.TextureDescriptor{
		Label:            "Shadow Map",
		Width:            resolution,
		Height:           resolution,
		Format:           gpu.TextureFormatDepth32F,
		RenderAttachment: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow map texture: %w", err)
	}
	target, err := ctx.CreateRenderTarget(nil, depth)
	if err != nil {
		ctx.DeleteTexture(depth)
		return nil, fmt.Errorf("failed to create shadow map target: %w", err)
	}
	return &ShadowMap{
		ctx:        ctx,
		depth:      depth,
		target:     target,
		resolution: resolution,
		camera:     camera.NewCamera(),
	}, nil
}

// Texture returns the depth texture holding the light-space depth of the last shadow pass.
func (s *ShadowMap) Texture() gpu.TextureID {
	return s.depth
}

// RenderTarget returns the depth-only target the shadow pass renders into.
func (s *ShadowMap) RenderTarget() gpu.RenderTargetID {
	return s.target
}

// Resolution returns the width and height of the depth texture.
func (s *ShadowMap) Resolution() uint32 {
	return s.resolution
}

// Camera returns the light-space camera the shadow map is rendered from.
func (s *ShadowMap) Camera() camera.Camera {
	return s.camera
}

// Matrix returns the light-space view-projection matrix used to look up the shadow map.
func (s *ShadowMap) Matrix() mgl32.Mat4 {
	return s.camera.ViewProjectionMatrix()
}

// update fits the light-space camera to the light and the scene bounds.
func (s *ShadowMap) update(l *lightImpl, bounds common.AABB) {
	if bounds.IsEmpty() {
		e := DefaultShadowHalfExtent
		bounds = common.AABB{Min: mgl32.Vec3{-e, -e, -e}, Max: mgl32.Vec3{e, e, e}}
	}
	center := bounds.Center()
	radius := math32.Max(bounds.Size().Len()*0.5, 1e-3)

	switch l.lightType {
	case LightTypeDirectional:
		eye := center.Sub(l.direction.Mul(2 * radius))
		s.camera.SetView(eye, center, mgl32.Vec3{0, 1, 0})
		s.camera.SetOrthographic(radius, radius, radius*0.5, radius*3.5)
	case LightTypeSpot:
		var far float32
		for _, c := range bounds.Corners() {
			far = math32.Max(far, c.Sub(l.position).Len())
		}
		far = math32.Max(far, 2*minShadowNear)
		s.camera.SetView(l.position, l.position.Add(l.direction), mgl32.Vec3{0, 1, 0})
		s.camera.SetPerspective(2*l.cutoff, 1, minShadowNear, far)
	}
}

// release frees the depth texture, the render target and the camera's uniform block.
func (s *ShadowMap) release() {
	s.camera.Destroy()
	s.ctx.DeleteRenderTarget(s.target)
	s.ctx.DeleteTexture(s.depth)
}
