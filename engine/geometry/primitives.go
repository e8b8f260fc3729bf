package geometry

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
)

// appendQuad appends one counter-clockwise quad centred on c, spanning ±u and ±v.
// The face normal is u×v and the uvs run left to right, top to bottom.
func appendQuad(m *common.CPUMesh, c, u, v mgl32.Vec3) {
	base := uint32(len(m.Positions))
	n := u.Cross(v).Normalize()
	m.Positions = append(m.Positions,
		c.Sub(u).Sub(v),
		c.Add(u).Sub(v),
		c.Add(u).Add(v),
		c.Sub(u).Add(v),
	)
	m.Normals = append(m.Normals, n, n, n, n)
	m.UVs = append(m.UVs,
		mgl32.Vec2{0, 1},
		mgl32.Vec2{1, 1},
		mgl32.Vec2{1, 0},
		mgl32.Vec2{0, 0},
	)
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// NewPlane builds a plane in the XZ plane centred on the origin, facing +Y.
//
// Parameters:
//   - width: the extent along X
//   - depth: the extent along Z
//
// Returns:
//   - common.CPUMesh: an indexed mesh with normals and uvs
func NewPlane(width, depth float32) common.CPUMesh {
	var m common.CPUMesh
	appendQuad(&m, mgl32.Vec3{}, mgl32.Vec3{width / 2, 0, 0}, mgl32.Vec3{0, 0, -depth / 2})
	return m
}

// NewCube builds an axis-aligned cube centred on the origin with outward facing sides.
// Every face has its own four vertices so normals stay flat.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - common.CPUMesh: an indexed mesh of 24 vertices with normals and uvs
func NewCube(size float32) common.CPUMesh {
	h := size / 2
	var m common.CPUMesh
	faces := []struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	for _, f := range faces {
		appendQuad(&m, f.n.Mul(h), f.u.Mul(h), f.v.Mul(h))
	}
	return m
}

// NewFullscreenQuad builds two triangles covering normalized device coordinates at z = 0.
// Full-screen passes draw it with program.FullscreenVertexSource.
//
// Returns:
//   - common.CPUMesh: an indexed mesh with normals and uvs
func NewFullscreenQuad() common.CPUMesh {
	var m common.CPUMesh
	appendQuad(&m, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	return m
}
