package geometry

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/buffer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
)

// instancedMeshImpl is the implementation of the InstancedMesh interface.
type instancedMeshImpl struct {
	*meshImpl
	instances  *buffer.InstanceBuffer[mgl32.Mat4]
	normals    *buffer.InstanceBuffer[mgl32.Mat4]
	normalsFor mgl32.Mat4
	transforms []mgl32.Mat4
}

// InstancedMesh is a Mesh drawn once per instance transformation in a single draw call.
// Each instance is placed by its own transformation applied after the shared one.
type InstancedMesh interface {
	Mesh

	// Transformations returns a copy of the per-instance transformations.
	//
	// Returns:
	//   - []mgl32.Mat4: one model matrix per instance
	Transformations() []mgl32.Mat4

	// UpdateTransformations replaces the per-instance transformations and uploads them.
	// Every upload after the first is hinted dynamic. An empty slice leaves nothing to draw.
	//
	// Parameters:
	//   - transforms: one model matrix per instance
	//
	// Returns:
	//   - error: an error if the upload failed, the previous instances are kept
	UpdateTransformations(transforms []mgl32.Mat4) error

	// InstanceCount returns the number of instances drawn per render.
	//
	// Returns:
	//   - int: the instance count
	InstanceCount() int
}

var _ InstancedMesh = &instancedMeshImpl{}

// NewInstancedMesh uploads a CPU mesh and an initial set of instance transformations.
//
// Parameters:
//   - ctx: the graphics context owning the buffers
//   - cache: the program cache shared by every geometry of the pipeline
//   - cpu: the vertex data
//   - transforms: the initial instance transformations, may be empty
//
// Returns:
//   - InstancedMesh: the uploaded mesh
//   - error: a validation or upload error, no buffers are left behind
func NewInstancedMesh(ctx gpu.Context, cache program.Cache, cpu common.CPUMesh, transforms []mgl32.Mat4) (InstancedMesh, error) {
	m, err := newMesh(ctx, cache, cpu)
	if err != nil {
		return nil, err
	}
	instances, err := buffer.NewInstanceBufferWithData(ctx, transforms)
	if err != nil {
		m.Destroy()
		return nil, fmt.Errorf("failed to upload instances: %w", err)
	}
	normals, err := buffer.NewInstanceBufferWithData(ctx, instanceNormals(transforms, m.transformation))
	if err != nil {
		instances.Destroy()
		m.Destroy()
		return nil, fmt.Errorf("failed to upload instance normals: %w", err)
	}
	return &instancedMeshImpl{
		meshImpl:   m,
		instances:  instances,
		normals:    normals,
		normalsFor: m.transformation,
		transforms: slices.Clone(transforms),
	}, nil
}

// instanceNormals returns the normal matrix of every instance's full model matrix. A
// non-uniformly scaled instance needs its own inverse-transpose, not the shared one.
func instanceNormals(transforms []mgl32.Mat4, model mgl32.Mat4) []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(transforms))
	for i, t := range transforms {
		out[i] = common.NormalMatrix(t.Mul4(model))
	}
	return out
}

func (m *instancedMeshImpl) AABB() common.AABB {
	bounds := common.EmptyAABB()
	for _, t := range m.transforms {
		bounds = bounds.Expand(m.bounds.Transform(t.Mul4(m.transformation)))
	}
	return bounds
}

func (m *instancedMeshImpl) Capability() program.Capability {
	c := m.meshImpl.Capability()
	c.Instanced = true
	return c
}

func (m *instancedMeshImpl) RenderWithMaterial(mat material.Material, cam camera.Camera, _ []light.Light) error {
	if !m.destroyed && m.normalsFor != m.transformation {
		if err := m.normals.Fill(instanceNormals(m.transforms, m.transformation)); err != nil {
			return fmt.Errorf("failed to upload instance normals: %w", err)
		}
		m.normalsFor = m.transformation
	}
	streams := instanceStreams{models: m.instances.ID(), normals: m.normals.ID()}
	return m.draw(mat, cam, m.Capability(), streams, uint32(m.instances.ElementCount()))
}

func (m *instancedMeshImpl) Transformations() []mgl32.Mat4 {
	return slices.Clone(m.transforms)
}

func (m *instancedMeshImpl) UpdateTransformations(transforms []mgl32.Mat4) error {
	if m.destroyed {
		return ErrDestroyed
	}
	if err := m.instances.Fill(transforms); err != nil {
		return fmt.Errorf("failed to upload instances: %w", err)
	}
	m.transforms = slices.Clone(transforms)
	if err := m.normals.Fill(instanceNormals(transforms, m.transformation)); err != nil {
		return fmt.Errorf("failed to upload instance normals: %w", err)
	}
	m.normalsFor = m.transformation
	return nil
}

func (m *instancedMeshImpl) InstanceCount() int {
	return m.instances.ElementCount()
}

func (m *instancedMeshImpl) Destroy() {
	if m.destroyed {
		return
	}
	m.meshImpl.Destroy()
	m.instances.Destroy()
	m.normals.Destroy()
}
