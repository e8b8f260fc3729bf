package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box. An AABB whose Min exceeds its Max on any axis is empty.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns a box that contains nothing and expands to the first point added to it.
//
// Returns:
//   - AABB: the empty box
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB returns the smallest box containing every point.
//
// Parameters:
//   - points: the points to enclose
//
// Returns:
//   - AABB: the enclosing box, empty when no points are given
func NewAABB(points ...mgl32.Vec3) AABB {
	b := EmptyAABB()
	for _, p := range points {
		b = b.ExpandPoint(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// ExpandPoint returns the box grown to include p.
func (b AABB) ExpandPoint(p mgl32.Vec3) AABB {
	for i := range 3 {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
	return b
}

// Expand returns the union of two boxes.
func (b AABB) Expand(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.ExpandPoint(o.Min).ExpandPoint(o.Max)
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Corners returns the eight corner points of the box.
func (b AABB) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := range 8 {
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				out[i][axis] = b.Max[axis]
			} else {
				out[i][axis] = b.Min[axis]
			}
		}
	}
	return out
}

// Transform returns the box enclosing all eight corners of b after transformation by m.
//
// Parameters:
//   - m: the affine transformation to apply
//
// Returns:
//   - AABB: the transformed bounds
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for _, c := range b.Corners() {
		out = out.ExpandPoint(m.Mul4x1(c.Vec4(1)).Vec3())
	}
	return out
}
