package camera

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/buffer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	orthographic bool
	fov          float32
	halfWidth    float32
	halfHeight   float32
	aspect       float32
	near         float32
	far          float32

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	uniform      *buffer.UniformBuffer
	uniformDirty bool
}

// Camera defines the interface for a viewpoint rendered from.
// The camera holds view and projection settings, computes the matrices from them, and owns
// the uniform block that programs read as "camera".
type Camera interface {
	// Position returns the world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians. Zero for orthographic cameras.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// IsOrthographic reports whether the camera uses an orthographic projection.
	//
	// Returns:
	//   - bool: true for orthographic cameras
	IsOrthographic() bool

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix. Depth maps to [0, 1].
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the current combined view-projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: projection * view
	ViewProjectionMatrix() mgl32.Mat4

	// Project transforms a world-space point into normalized device coordinates.
	//
	// Parameters:
	//   - p: the world-space point
	//
	// Returns:
	//   - mgl32.Vec3: x and y in [-1, 1] and depth in [0, 1] for visible points
	Project(p mgl32.Vec3) mgl32.Vec3

	// SetView moves the camera.
	//
	// Parameters:
	//   - position: the eye position
	//   - target: the point looked at
	//   - up: the up direction
	SetView(position, target, up mgl32.Vec3)

	// SetPerspective switches to a perspective projection.
	//
	// Parameters:
	//   - fov: vertical field of view in radians
	//   - aspect: width / height
	//   - near, far: clipping plane distances
	SetPerspective(fov, aspect, near, far float32)

	// SetOrthographic switches to an orthographic projection.
	//
	// Parameters:
	//   - halfWidth, halfHeight: half extents of the view volume
	//   - near, far: clipping plane distances
	SetOrthographic(halfWidth, halfHeight, near, far float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// UniformBuffer returns the camera's uniform block on ctx, creating it on first use and
	// uploading the current matrices when they changed since the last call.
	//
	// Parameters:
	//   - ctx: the graphics context owning the block
	//
	// Returns:
	//   - gpu.BufferID: the uniform buffer to bind as the "camera" block
	//   - error: an error if the buffer could not be created or written
	UniformBuffer(ctx gpu.Context) (gpu.BufferID, error)

	// Destroy releases the uniform block.
	Destroy()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new perspective Camera at (0, 0, 5) looking at the origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 0, 5},
		target:   mgl32.Vec3{0, 0, 0},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      45.0 * (math.Pi / 180.0), // radians
		aspect:   1.0,
		near:     0.1,
		far:      100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orthographic {
		return 0
	}
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) IsOrthographic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orthographic
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Project(p mgl32.Vec3) mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	clip := c.viewProjectionMatrix.Mul4x1(p.Vec4(1))
	return clip.Vec3().Mul(1 / clip[3])
}

func (c *cameraImpl) SetView(position, target, up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.target = target
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetPerspective(fov, aspect, near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthographic = false
	c.fov = fov
	c.aspect = aspect
	c.near = near
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetOrthographic(halfWidth, halfHeight, near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthographic = true
	c.halfWidth = halfWidth
	c.halfHeight = halfHeight
	if halfHeight > 0 {
		c.aspect = halfWidth / halfHeight
	}
	c.near = near
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	if c.orthographic {
		c.halfWidth = c.halfHeight * aspect
	}
	c.updateMatrices()
}

func (c *cameraImpl) UniformBuffer(ctx gpu.Context) (gpu.BufferID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uniform == nil {
		u, err := buffer.NewUniformBuffer(ctx, (&GPUCameraUniform{}).Size())
		if err != nil {
			return 0, fmt.Errorf("failed to create camera uniform: %w", err)
		}
		c.uniform = u
		c.uniformDirty = true
	}
	if c.uniformDirty {
		data := GPUCameraUniform{
			ViewProj:       c.viewProjectionMatrix,
			CameraPosition: c.position,
		}
		if err := c.uniform.Update(data.Marshal()); err != nil {
			return 0, fmt.Errorf("failed to write camera uniform: %w", err)
		}
		c.uniformDirty = false
	}
	return c.uniform.ID(), nil
}

func (c *cameraImpl) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uniform != nil {
		c.uniform.Destroy()
		c.uniform = nil
	}
}

// updateMatrices recalculates the view, projection and view-projection matrices and marks
// the uniform block stale. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = common.LookAt(c.position, c.target, c.up)
	if c.orthographic {
		c.projectionMatrix = common.OrthoZO(-c.halfWidth, c.halfWidth, -c.halfHeight, c.halfHeight, c.near, c.far)
	} else {
		c.projectionMatrix = common.PerspectiveZO(c.fov, c.aspect, c.near, c.far)
	}
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.uniformDirty = true
}
