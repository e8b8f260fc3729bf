package light

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeAmbient represents uniform light reaching every surface regardless of
	// orientation. Only colour and intensity are meaningful.
	LightTypeAmbient LightType = iota

	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Affects all fragments
	// uniformly with no distance attenuation.
	LightTypeDirectional

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with distance and fades towards the cutoff angle.
	LightTypeSpot
)

// String returns the light type's name.
func (t LightType) String() string {
	switch t {
	case LightTypeAmbient:
		return "ambient"
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

// Attenuation holds the distance falloff coefficients of point and spot lights. The light's
// contribution at distance d is divided by Constant + Linear*d + Exponential*d*d.
type Attenuation struct {
	Constant    float32
	Linear      float32
	Exponential float32
}

// DefaultAttenuation is the falloff new point and spot lights start with.
var DefaultAttenuation = Attenuation{Constant: 1, Linear: 0.05, Exponential: 0.005}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType   LightType
	position    mgl32.Vec3
	direction   mgl32.Vec3
	color       mgl32.Vec3
	intensity   float32
	attenuation Attenuation
	cutoff      float32 // radians
	enabled     bool

	source ShadowSource
	shadow *ShadowMap
}

// Light defines the interface for a light source in the scene.
//
// All light types share this interface; type-specific properties (e.g. the cutoff of spot
// lights) are stored but ignored by the lighting pass when not applicable. Mutations take
// effect the next time a pass reads light state.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for ambient and directional lights.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Direction returns the normalized direction of the light.
	// For directional lights this is the direction the light travels. For spot lights this
	// is the cone axis. Meaningless for ambient and point lights.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Attenuation returns the distance falloff of point and spot lights.
	//
	// Returns:
	//   - Attenuation: the falloff coefficients
	Attenuation() Attenuation

	// Cutoff returns the half-angle of a spot light's cone in radians.
	//
	// Returns:
	//   - float32: the cutoff angle
	Cutoff() float32

	// Enabled returns whether this light contributes to the lighting pass.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - position: the new position
	SetPosition(position mgl32.Vec3)

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - direction: the new direction (will be normalized)
	SetDirection(direction mgl32.Vec3)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - color: the new color
	SetColor(color mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetAttenuation sets the distance falloff of point and spot lights.
	//
	// Parameters:
	//   - attenuation: the falloff coefficients
	SetAttenuation(attenuation Attenuation)

	// SetCutoff sets the half-angle of a spot light's cone.
	//
	// Parameters:
	//   - radians: the cutoff angle, clamped to (0, pi/2)
	SetCutoff(radians float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// CanCastShadows reports whether the light type supports shadow maps (directional and spot).
	//
	// Returns:
	//   - bool: true for shadow-capable light types
	CanCastShadows() bool

	// EnableShadows allocates the light's shadow map. Calling it again while enabled is a no-op.
	//
	// Returns:
	//   - error: an error if the light type cannot cast shadows, has no shadow source,
	//     or the shadow map could not be allocated
	EnableShadows() error

	// DisableShadows releases the light's shadow map. Calling it while disabled is a no-op.
	DisableShadows()

	// IsShadowsEnabled reports whether the light currently owns a shadow map.
	//
	// Returns:
	//   - bool: true if EnableShadows succeeded and DisableShadows has not been called since
	IsShadowsEnabled() bool

	// ShadowMap returns the light's shadow map with its light-space camera refreshed for the
	// current light state and scene bounds. Nil when shadows are disabled.
	//
	// Returns:
	//   - *ShadowMap: the shadow map, or nil
	ShadowMap() *ShadowMap
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:   lightType,
		position:    mgl32.Vec3{0, 0, 0},
		direction:   mgl32.Vec3{0, -1, 0},
		color:       mgl32.Vec3{1, 1, 1},
		intensity:   1.0,
		attenuation: DefaultAttenuation,
		cutoff:      math32.Pi / 8,
		enabled:     true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Attenuation() Attenuation {
	return l.attenuation
}

func (l *lightImpl) Cutoff() float32 {
	return l.cutoff
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetPosition(position mgl32.Vec3) {
	l.position = position
}

func (l *lightImpl) SetDirection(direction mgl32.Vec3) {
	l.direction = normalize(direction)
}

func (l *lightImpl) SetColor(color mgl32.Vec3) {
	l.color = color
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetAttenuation(attenuation Attenuation) {
	l.attenuation = attenuation
}

func (l *lightImpl) SetCutoff(radians float32) {
	l.cutoff = clampCutoff(radians)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) CanCastShadows() bool {
	return l.lightType == LightTypeDirectional || l.lightType == LightTypeSpot
}

func (l *lightImpl) EnableShadows() error {
	if !l.CanCastShadows() {
		return fmt.Errorf("%s lights cannot cast shadows", l.lightType)
	}
	if l.shadow != nil {
		return nil
	}
	if l.source == nil {
		return fmt.Errorf("%s light has no shadow source", l.lightType)
	}
	sm, err := newShadowMap(l.source.Context(), l.source.ShadowMapResolution())
	if err != nil {
		return err
	}
	l.shadow = sm
	return nil
}

func (l *lightImpl) DisableShadows() {
	if l.shadow == nil {
		return
	}
	l.shadow.release()
	l.shadow = nil
}

func (l *lightImpl) IsShadowsEnabled() bool {
	return l.shadow != nil
}

func (l *lightImpl) ShadowMap() *ShadowMap {
	if l.shadow == nil {
		return nil
	}
	l.shadow.update(l, l.source.SceneBounds())
	return l.shadow
}

// normalize returns v scaled to unit length, or straight down for a zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return v.Normalize()
}

// clampCutoff keeps a spot cutoff inside the open interval (0, pi/2).
func clampCutoff(radians float32) float32 {
	const eps = 1e-3
	return math32.Max(eps, math32.Min(radians, math32.Pi/2-eps))
}
