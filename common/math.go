package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PerspectiveZO creates a perspective projection matrix mapping view-space depth to the
// WebGPU clip range [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func PerspectiveZO(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// OrthoZO creates an orthographic projection matrix mapping view-space depth to the
// WebGPU clip range [0, 1].
//
// Parameters:
//   - left, right, bottom, top: the view volume's side planes
//   - near, far: the view volume's depth planes
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func OrthoZO(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	out := mgl32.Ident4()
	out[0] = 2 / (right - left)
	out[5] = 2 / (top - bottom)
	out[10] = 1 / (near - far)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = near / (near - far)
	return out
}

// LookAt builds a view matrix looking from eye towards target. When dir is nearly parallel to
// up, the X axis is used as the up vector instead.
//
// Parameters:
//   - eye: the viewer position
//   - target: the point looked at
//   - up: the preferred up direction
//
// Returns:
//   - mgl32.Mat4: the view matrix
func LookAt(eye, target, up mgl32.Vec3) mgl32.Mat4 {
	dir := target.Sub(eye)
	if dir.Len() > 0 && math32.Abs(dir.Normalize().Dot(up.Normalize())) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	return mgl32.LookAtV(eye, target, up)
}

// NormalMatrix returns the inverse-transpose of a model matrix, used to transform normals.
// A singular model matrix yields the identity.
//
// Parameters:
//   - model: the model matrix
//
// Returns:
//   - mgl32.Mat4: the normal matrix
func NormalMatrix(model mgl32.Mat4) mgl32.Mat4 {
	if math32.Abs(model.Det()) < 1e-12 {
		return mgl32.Ident4()
	}
	return model.Inv().Transpose()
}
