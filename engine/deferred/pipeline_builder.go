package deferred

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
)

// PipelineBuilderOption is a function that configures a Pipeline during construction.
type PipelineBuilderOption func(*pipelineImpl)

// WithShadowMapResolution sets the width and height of shadow maps allocated by EnableShadows.
//
// Parameters:
//   - resolution: the shadow map size in texels, zero keeps the default
//
// Returns:
//   - PipelineBuilderOption: a function that applies the resolution option to a pipelineImpl
func WithShadowMapResolution(resolution uint32) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		if resolution > 0 {
			p.shadowResolution = resolution
		}
	}
}

// WithSceneBounds sets the world-space box shadow frustums are fitted to.
//
// Parameters:
//   - bounds: the scene bounds
//
// Returns:
//   - PipelineBuilderOption: a function that applies the bounds option to a pipelineImpl
func WithSceneBounds(bounds common.AABB) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.sceneBounds = bounds
	}
}

// WithShadowBias sets the depth bias subtracted before shadow comparisons.
//
// Parameters:
//   - bias: the depth bias
//
// Returns:
//   - PipelineBuilderOption: a function that applies the bias option to a pipelineImpl
func WithShadowBias(bias float32) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.shadowBias = bias
	}
}

// WithDirectionalLights sets the number of directional light slots, clamped to [0, light.MaxDirectionalLights].
//
// Parameters:
//   - n: the slot count
//
// Returns:
//   - PipelineBuilderOption: a function that applies the slot count option to a pipelineImpl
func WithDirectionalLights(n int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.directionalCount = n
	}
}

// WithPointLights sets the number of point light slots, clamped to [0, light.MaxPointLights].
//
// Parameters:
//   - n: the slot count
//
// Returns:
//   - PipelineBuilderOption: a function that applies the slot count option to a pipelineImpl
func WithPointLights(n int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.pointCount = n
	}
}

// WithSpotLights sets the number of spot light slots, clamped to [0, light.MaxSpotLights].
//
// Parameters:
//   - n: the slot count
//
// Returns:
//   - PipelineBuilderOption: a function that applies the slot count option to a pipelineImpl
func WithSpotLights(n int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.spotCount = n
	}
}

// WithCamera replaces the scene camera. The pipeline keeps its aspect ratio in step with the viewport.
//
// Parameters:
//   - cam: the scene camera
//
// Returns:
//   - PipelineBuilderOption: a function that applies the camera option to a pipelineImpl
func WithCamera(cam camera.Camera) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.camera = cam
	}
}
