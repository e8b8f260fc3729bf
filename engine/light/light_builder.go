package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - position: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(position mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = position
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - direction: the direction
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(direction mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize(direction)
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - color: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(color mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = color
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithAttenuation is an option builder that sets the distance falloff of point and spot lights.
//
// Parameters:
//   - attenuation: the falloff coefficients
//
// Returns:
//   - LightBuilderOption: a function that applies the attenuation option to a lightImpl
func WithAttenuation(attenuation Attenuation) LightBuilderOption {
	return func(l *lightImpl) {
		l.attenuation = attenuation
	}
}

// WithCutoff is an option builder that sets a spot light's cone half-angle in radians.
//
// Parameters:
//   - radians: the cutoff angle
//
// Returns:
//   - LightBuilderOption: a function that applies the cutoff option to a lightImpl
func WithCutoff(radians float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.cutoff = clampCutoff(radians)
	}
}

// WithEnabled is an option builder that sets whether the light starts enabled.
//
// Parameters:
//   - enabled: true to enable
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a lightImpl
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithShadowSource is an option builder that attaches the source shadow maps are allocated from.
// Lights without a shadow source cannot enable shadows.
//
// Parameters:
//   - source: the shadow source, usually the owning pipeline
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow source option to a lightImpl
func WithShadowSource(source ShadowSource) LightBuilderOption {
	return func(l *lightImpl) {
		l.source = source
	}
}
