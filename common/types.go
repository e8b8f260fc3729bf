// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// CPUMesh is the CPU-side description of a triangle mesh before it is uploaded into GPU buffers.
// Positions are required; every other stream is optional and, when present, must have one entry per position.
type CPUMesh struct {
	// Positions holds one model-space position per vertex.
	Positions []mgl32.Vec3

	// Normals holds one model-space normal per vertex, or nil.
	Normals []mgl32.Vec3

	// UVs holds one texture coordinate per vertex, or nil.
	UVs []mgl32.Vec2

	// Indices lists triangle corners as indices into the vertex streams, or nil for a non-indexed mesh.
	Indices []uint32
}

// Validate checks that the optional vertex streams line up with the positions and that every index is in range.
//
// Returns:
//   - error: a descriptive error if the mesh is malformed
func (m *CPUMesh) Validate() error {
	n := len(m.Positions)
	if n == 0 {
		return fmt.Errorf("mesh has no positions")
	}
	if m.Normals != nil && len(m.Normals) != n {
		return fmt.Errorf("mesh has %d normals for %d positions", len(m.Normals), n)
	}
	if m.UVs != nil && len(m.UVs) != n {
		return fmt.Errorf("mesh has %d uvs for %d positions", len(m.UVs), n)
	}
	if m.Indices == nil && n%3 != 0 {
		return fmt.Errorf("non-indexed mesh has %d positions, not a multiple of 3", n)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh has %d indices, not a multiple of 3", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("index %d at position %d is out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}

// ComputeNormals fills Normals with smooth per-vertex normals accumulated from the area-weighted
// face normals of every triangle touching the vertex.
func (m *CPUMesh) ComputeNormals() {
	normals := make([]mgl32.Vec3, len(m.Positions))
	corner := func(t, c int) uint32 {
		if m.Indices != nil {
			return m.Indices[t*3+c]
		}
		return uint32(t*3 + c)
	}
	triangles := len(m.Positions) / 3
	if m.Indices != nil {
		triangles = len(m.Indices) / 3
	}
	for t := range triangles {
		i0, i1, i2 := corner(t, 0), corner(t, 1), corner(t, 2)
		p0, p1, p2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		normals[i0] = normals[i0].Add(face)
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	m.Normals = normals
}

// AABB returns the model-space bounding box of the positions.
//
// Returns:
//   - AABB: the bounds, or an empty box when the mesh has no positions
func (m CPUMesh) AABB() AABB {
	return NewAABB(m.Positions...)
}

// DecodeTexture decodes PNG, JPEG, BMP or WebP image bytes into RGBA staging data.
// When data is empty the image is read from path instead.
// Reference: https://pkg.go.dev/image
//
// Parameters:
//   - data: encoded image bytes, may be nil
//   - path: file path used when data is empty
//
// Returns:
//   - TextureStagingData: the decoded pixels (4 bytes per pixel, row-major order)
//   - error: error if decoding fails
func DecodeTexture(data []byte, path string) (TextureStagingData, error) {
	var img image.Image
	var err error

	if len(data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	} else if path != "" {
		file, fileErr := os.Open(path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", path, err)
		}
	} else {
		return TextureStagingData{}, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}
