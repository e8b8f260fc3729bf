// Package geometry holds the vertex data shapes are drawn from.
//
// A Geometry owns its vertex, index and instance buffers and draws them with any material:
// it checks that it can feed every stream the material's fragment stage reads, acquires the
// (material kind, geometry capability) program from a shared program.Cache, binds its
// transforms and buffers, lets the material bind its uniforms and issues a single draw.
package geometry

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
)

// Attribute names shared by the generated vertex stages.
const (
	AttributePosition = "position"
	AttributeNormal   = "normal"
	AttributeUV       = "uv_coordinates"
	AttributeInstance = "instance_model"

	// AttributeInstanceNormal carries the inverse-transpose of each instance's full model matrix.
	AttributeInstanceNormal = "instance_normal"
)

// ErrDestroyed is returned when a destroyed geometry is rendered.
var ErrDestroyed = errors.New("geometry has been destroyed")

// MissingAttributeError reports a material that reads a vertex stream the geometry does not have.
type MissingAttributeError struct {
	// Name is the missing attribute, AttributeNormal or AttributeUV.
	Name string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("geometry has no %q attribute required by the material", e.Name)
}

// Geometry defines the interface shared by every drawable vertex source.
type Geometry interface {
	// AABB returns the world-space bounding box of the geometry.
	//
	// Returns:
	//   - common.AABB: the bounds, including every instance for instanced geometry
	AABB() common.AABB

	// Capability reports which attribute streams the geometry can feed.
	//
	// Returns:
	//   - program.Capability: the capability half of the program cache key
	Capability() program.Capability

	// RenderWithMaterial draws the geometry once with the material's program.
	//
	// The material's required streams are checked before any GPU call. The lights are passed
	// through for materials that shade during the draw; the built-in geometry pass materials
	// ignore them.
	//
	// Parameters:
	//   - m: the material to shade with
	//   - cam: the camera whose uniform block the vertex stage reads
	//   - lights: the lights of the frame, may be nil
	//
	// Returns:
	//   - error: a *MissingAttributeError, a *program.ShaderCompileError, or a draw error
	RenderWithMaterial(m material.Material, cam camera.Camera, lights []light.Light) error

	// Destroy releases the geometry's buffers and its program cache handles. Later calls are no-ops.
	Destroy()
}

// checkRequirements fails with a MissingAttributeError when req needs a stream c lacks.
func checkRequirements(c program.Capability, req program.Requirements) error {
	if req.Normals && !c.Normals {
		return &MissingAttributeError{Name: AttributeNormal}
	}
	if req.UVs && !c.UVs {
		return &MissingAttributeError{Name: AttributeUV}
	}
	return nil
}
