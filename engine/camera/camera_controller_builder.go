package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the initial orbit radius (distance from the pivot).
//
// Parameters:
//   - radius: distance from the pivot
//
// Returns:
//   - CameraControllerOption: functional option to set the radius
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - CameraControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - CameraControllerOption: functional option to set the elevation
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevation = elevation
	}
}

// WithPivot sets the point the camera orbits and looks at.
//
// Parameters:
//   - pivot: the orbit centre
//
// Returns:
//   - CameraControllerOption: functional option to set the pivot
func WithPivot(pivot mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.pivot = pivot
	}
}

// WithOrbitFrom derives pivot, radius, azimuth and elevation from an eye position looking at a pivot.
//
// Parameters:
//   - eye: the camera position
//   - pivot: the orbit centre
//
// Returns:
//   - CameraControllerOption: functional option to set the spherical state
func WithOrbitFrom(eye, pivot mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		offset := eye.Sub(pivot)
		cc.pivot = pivot
		cc.radius, cc.azimuth, cc.elevation = sphericalOf(offset)
	}
}

// WithRadiusBounds constrains the orbit radius.
//
// Parameters:
//   - min: the smallest distance from the pivot
//   - max: the largest distance from the pivot
//
// Returns:
//   - CameraControllerOption: functional option to set the radius bounds
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithElevationBounds constrains the vertical angle.
//
// Parameters:
//   - min: the lowest elevation in radians
//   - max: the highest elevation in radians
//
// Returns:
//   - CameraControllerOption: functional option to set the elevation bounds
func WithElevationBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minElevation = min
		cc.maxElevation = max
	}
}

// WithMouseSensitivity sets the radians turned per dragged pixel.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - CameraControllerOption: functional option to set the sensitivity
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per scroll unit.
//
// Parameters:
//   - speed: distance per scroll unit
//
// Returns:
//   - CameraControllerOption: functional option to set the zoom speed
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}
