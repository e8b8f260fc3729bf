package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController orbits a camera around a pivot on a sphere described by radius,
// azimuth and elevation. The controller owns the spherical state and pushes the derived
// view into a Camera with Apply.
type CameraController interface {
	// Rotate turns the orbit by a pointer drag. Elevation is clamped to the controller's bounds.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Rotate(dx, dy float32)

	// Zoom moves the camera towards the pivot for positive deltas. The radius is clamped to its bounds.
	//
	// Parameters:
	//   - delta: scroll amount
	Zoom(delta float32)

	// Reset restores the spherical state the controller was built with.
	Reset()

	// Position returns the eye position derived from the spherical state.
	Position() mgl32.Vec3

	// Pivot returns the point the camera orbits and looks at.
	Pivot() mgl32.Vec3

	// SetPivot moves the point the camera orbits and looks at.
	SetPivot(pivot mgl32.Vec3)

	// Radius returns the distance from the pivot.
	Radius() float32

	// Azimuth returns the horizontal angle around +Y in radians, 0 on the +Z axis.
	Azimuth() float32

	// Elevation returns the vertical angle above the horizontal plane in radians.
	Elevation() float32

	// Apply sets the camera's view to look from Position at the pivot with +Y up.
	//
	// Parameters:
	//   - cam: the camera to update
	Apply(cam Camera)
}

// orbitState is the part of the controller Reset restores.
type orbitState struct {
	pivot     mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32
}

type cameraControllerImpl struct {
	mu sync.Mutex

	orbitState
	initial orbitState

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	mouseSensitivity float32
	zoomSpeed        float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates an orbit controller 10 units from the origin, 30 degrees above the horizon.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		orbitState: orbitState{
			radius:    10,
			elevation: math32.Pi / 6,
		},
		minRadius:        0.5,
		maxRadius:        1000,
		minElevation:     -math32.Pi/2 + 0.01,
		maxElevation:     math32.Pi/2 - 0.01,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clamp()
	cc.initial = cc.orbitState
	return cc
}

// clamp keeps radius and elevation inside their bounds. Caller must hold the mutex.
func (cc *cameraControllerImpl) clamp() {
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// position derives the eye from the spherical state. Caller must hold the mutex.
func (cc *cameraControllerImpl) position() mgl32.Vec3 {
	sinElev, cosElev := math32.Sincos(cc.elevation)
	sinAzim, cosAzim := math32.Sincos(cc.azimuth)
	return cc.pivot.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func (cc *cameraControllerImpl) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation += dy * cc.mouseSensitivity
	cc.clamp()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
}

func (cc *cameraControllerImpl) Reset() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbitState = cc.initial
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position()
}

func (cc *cameraControllerImpl) Pivot() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pivot
}

func (cc *cameraControllerImpl) SetPivot(pivot mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pivot = pivot
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) Apply(cam Camera) {
	cc.mu.Lock()
	eye, pivot := cc.position(), cc.pivot
	cc.mu.Unlock()
	cam.SetView(eye, pivot, mgl32.Vec3{0, 1, 0})
}

// sphericalOf converts an offset from the pivot into radius, azimuth and elevation.
func sphericalOf(offset mgl32.Vec3) (radius, azimuth, elevation float32) {
	radius = offset.Len()
	if radius == 0 {
		return 0, 0, 0
	}
	return radius, math32.Atan2(offset[0], offset[2]), math32.Asin(offset[1] / radius)
}
