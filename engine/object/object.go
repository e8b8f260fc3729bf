// Package object composes geometries and materials into renderable shapes.
//
// A Shape pairs any Geometry with any Material. The pipeline only sees the Object interface,
// so every combination renders through the same three calls without a type per pairing.
package object

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/geometry"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
)

// Object defines the interface of anything the pipeline can render.
type Object interface {
	// AABB returns the world-space bounding box of the object.
	//
	// Returns:
	//   - common.AABB: the bounds
	AABB() common.AABB

	// Render draws the object with its own material.
	//
	// Parameters:
	//   - cam: the camera to render from
	//   - lights: the lights of the frame, may be nil
	//
	// Returns:
	//   - error: the first error raised while drawing
	Render(cam camera.Camera, lights []light.Light) error

	// RenderWithMaterial draws the object's geometry with another material, such as the
	// depth-only material of the shadow pass.
	//
	// Parameters:
	//   - m: the material replacing the object's own
	//   - cam: the camera to render from
	//   - lights: the lights of the frame, may be nil
	//
	// Returns:
	//   - error: the first error raised while drawing
	RenderWithMaterial(m material.Material, cam camera.Camera, lights []light.Light) error

	// IsTransparent reports whether the object must be left out of the geometry pass.
	//
	// Returns:
	//   - bool: true for transparent objects
	IsTransparent() bool
}

// Shape is a Geometry drawn with a Material. It has no identity beyond its two parts.
type Shape[G geometry.Geometry, M material.Material] struct {
	Geometry G
	Material M
}

var _ Object = &Shape[geometry.Mesh, material.ColorMaterial]{}

// NewShape pairs a geometry with a material.
//
// Parameters:
//   - g: the geometry supplying the vertex data
//   - m: the material shading it
//
// Returns:
//   - *Shape[G, M]: the composed shape
func NewShape[G geometry.Geometry, M material.Material](g G, m M) *Shape[G, M] {
	return &Shape[G, M]{Geometry: g, Material: m}
}

func (s *Shape[G, M]) AABB() common.AABB {
	return s.Geometry.AABB()
}

func (s *Shape[G, M]) Render(cam camera.Camera, lights []light.Light) error {
	return s.Geometry.RenderWithMaterial(s.Material, cam, lights)
}

func (s *Shape[G, M]) RenderWithMaterial(m material.Material, cam camera.Camera, lights []light.Light) error {
	return s.Geometry.RenderWithMaterial(m, cam, lights)
}

func (s *Shape[G, M]) IsTransparent() bool {
	return s.Material.IsTransparent()
}

// Destroy releases the shape's geometry. Materials are values and own nothing.
func (s *Shape[G, M]) Destroy() {
	s.Geometry.Destroy()
}

// Opaque returns the objects that take part in the geometry pass, keeping their order.
//
// Parameters:
//   - objects: the scene objects
//
// Returns:
//   - []Object: the objects whose material is not transparent
func Opaque(objects []Object) []Object {
	opaque := make([]Object, 0, len(objects))
	for _, o := range objects {
		if !o.IsTransparent() {
			opaque = append(opaque, o)
		}
	}
	return opaque
}

// Bounds returns the box enclosing every object.
//
// Parameters:
//   - objects: the scene objects
//
// Returns:
//   - common.AABB: the union of their bounds, empty when there are none
func Bounds(objects []Object) common.AABB {
	b := common.EmptyAABB()
	for _, o := range objects {
		b = b.Expand(o.AABB())
	}
	return b
}

// RenderAll renders every opaque object in order, stopping at the first failure.
//
// Parameters:
//   - objects: the scene objects, transparent ones are skipped
//   - cam: the camera to render from
//   - lights: the lights of the frame, may be nil
//
// Returns:
//   - error: the first render error, annotated with the object's index
func RenderAll(objects []Object, cam camera.Camera, lights []light.Light) error {
	for i, o := range objects {
		if o.IsTransparent() {
			continue
		}
		if err := o.Render(cam, lights); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return nil
}

// RenderDepthAll renders the depth of every opaque object, as the shadow pass needs.
//
// Parameters:
//   - objects: the scene objects, transparent ones cast no shadow
//   - cam: the light camera to render from
//
// Returns:
//   - error: the first render error, annotated with the object's index
func RenderDepthAll(objects []Object, cam camera.Camera) error {
	for i, o := range objects {
		if o.IsTransparent() {
			continue
		}
		if err := o.RenderWithMaterial(material.Depth, cam, nil); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return nil
}
