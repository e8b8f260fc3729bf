package game_object

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithTarget sets the geometry whose model matrix the GameObject drives.
//
// Parameters:
//   - t: the transform target, typically the object's geometry.Mesh
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the target
func WithTarget(t Transformable) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.target = t
	}
}

// WithPosition sets the initial world-space position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(p mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = p
	}
}

// WithRotation sets the initial Euler rotation in radians.
//
// Parameters:
//   - r: the rotation around X, Y and Z
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation
func WithRotation(r mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotation = r
	}
}

// WithRotationSpeed sets the spin added to the rotation per second, in radians.
//
// Parameters:
//   - r: the angular speed around X, Y and Z
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation speed
func WithRotationSpeed(r mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotationSpeed = r
	}
}

// WithScale sets the initial per-axis scale.
//
// Parameters:
//   - s: the scale
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the scale
func WithScale(s mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = s
	}
}

// WithLight attaches a light that follows the object at an offset.
//
// Parameters:
//   - l: the light
//   - offset: the world-space offset from the object's position
//
// Returns:
//   - GameObjectBuilderOption: functional option to attach the light
func WithLight(l light.Light, offset mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.attachedLight = l
		obj.lightOffset = offset
	}
}
