// Package game_object places renderable objects in the world: a position, Euler rotation and
// scale composed into the model matrix of the object's geometry, an optional constant spin and
// an optional light that follows the object.
package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/go-gl/mathgl/mgl32"
)

// Transformable is anything whose model matrix a GameObject drives, such as a geometry.Mesh.
type Transformable interface {
	SetTransformation(m mgl32.Mat4)
}

type gameObject struct {
	mu      sync.RWMutex
	id      uint64
	enabled atomic.Bool

	obj    object.Object
	target Transformable

	attachedLight light.Light
	lightOffset   mgl32.Vec3

	position      mgl32.Vec3
	rotation      mgl32.Vec3
	rotationSpeed mgl32.Vec3
	scale         mgl32.Vec3
}

// GameObject defines the interface for a scene entity wrapping a renderable object.
//
// A GameObject is safe for concurrent use. The Transformable and Light it drives are not, so
// each should belong to a single GameObject.
type GameObject interface {
	// ID returns the object's identifier, zero until a scene assigns one.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's identifier.
	//
	// Parameters:
	//   - id: the new identifier
	SetID(id uint64)

	// Enabled returns whether this object is rendered.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether this object is rendered.
	//
	// Parameters:
	//   - enabled: true to render the object
	SetEnabled(enabled bool)

	// Object returns the renderable object.
	//
	// Returns:
	//   - object.Object: the object
	Object() object.Object

	// Light returns the light following the object, or nil.
	//
	// Returns:
	//   - light.Light: the attached light
	Light() light.Light

	// SetLight attaches a light that is moved to the object's position plus offset on every Update.
	//
	// Parameters:
	//   - l: the light to attach, nil to detach
	//   - offset: the world-space offset from the object's position
	SetLight(l light.Light, offset mgl32.Vec3)

	// Position returns the world-space position.
	Position() mgl32.Vec3

	// SetPosition sets the world-space position.
	SetPosition(p mgl32.Vec3)

	// Rotation returns the Euler rotation in radians, applied X then Y then Z.
	Rotation() mgl32.Vec3

	// SetRotation sets the Euler rotation in radians.
	SetRotation(r mgl32.Vec3)

	// RotationSpeed returns the spin added to the rotation per second, in radians.
	RotationSpeed() mgl32.Vec3

	// SetRotationSpeed sets the spin added to the rotation per second, in radians.
	SetRotationSpeed(r mgl32.Vec3)

	// Scale returns the per-axis scale.
	Scale() mgl32.Vec3

	// SetScale sets the per-axis scale.
	SetScale(s mgl32.Vec3)

	// Transformation returns the model matrix T * Rz * Ry * Rx * S.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	Transformation() mgl32.Mat4

	// Update advances the rotation by the rotation speed, pushes the model matrix to the
	// transform target and moves the attached light.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last update in seconds
	Update(deltaTime float32)
}

var _ GameObject = &gameObject{}

// NewGameObject wraps a renderable object. The object starts enabled at the origin with unit scale.
//
// Parameters:
//   - obj: the object to render
//   - options: variadic list of GameObjectBuilderOption functions
//
// Returns:
//   - GameObject: the new game object
func NewGameObject(obj object.Object, options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		obj:   obj,
		scale: mgl32.Vec3{1, 1, 1},
	}
	g.enabled.Store(true)

	for _, option := range options {
		option(g)
	}
	return g
}

func (g *gameObject) ID() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Object() object.Object {
	return g.obj
}

func (g *gameObject) Light() light.Light {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.attachedLight
}

func (g *gameObject) SetLight(l light.Light, offset mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
	g.lightOffset = offset
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = p
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotation
}

func (g *gameObject) SetRotation(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = r
}

func (g *gameObject) RotationSpeed() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotationSpeed
}

func (g *gameObject) SetRotationSpeed(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = r
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale
}

func (g *gameObject) SetScale(s mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = s
}

func (g *gameObject) Transformation() mgl32.Mat4 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transformation()
}

func (g *gameObject) Update(deltaTime float32) {
	g.mu.Lock()
	g.rotation = g.rotation.Add(g.rotationSpeed.Mul(deltaTime))
	m := g.transformation()
	target, l, lightPos := g.target, g.attachedLight, g.position.Add(g.lightOffset)
	g.mu.Unlock()

	if target != nil {
		target.SetTransformation(m)
	}
	if l != nil {
		l.SetPosition(lightPos)
	}
}

// transformation composes the model matrix. Callers hold g.mu.
func (g *gameObject) transformation() mgl32.Mat4 {
	p, r, s := g.position, g.rotation, g.scale
	return mgl32.Translate3D(p[0], p[1], p[2]).
		Mul4(mgl32.HomogRotate3DZ(r[2])).
		Mul4(mgl32.HomogRotate3DY(r[1])).
		Mul4(mgl32.HomogRotate3DX(r[0])).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}
