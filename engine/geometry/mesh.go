package geometry

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/buffer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
)

// meshImpl is the implementation of the Mesh interface.
type meshImpl struct {
	ctx            gpu.Context
	cache          program.Cache
	positions      *buffer.VertexBuffer[mgl32.Vec3]
	normals        *buffer.VertexBuffer[mgl32.Vec3]
	uvs            *buffer.VertexBuffer[mgl32.Vec2]
	indices        *buffer.ElementBuffer
	bounds         common.AABB
	transformation mgl32.Mat4
	programs       map[string]*program.Handle
	destroyed      bool
}

// Mesh is a Geometry drawn once per render with a single model transformation.
type Mesh interface {
	Geometry

	// Transformation returns the model matrix applied to every vertex.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	Transformation() mgl32.Mat4

	// SetTransformation replaces the model matrix.
	//
	// Parameters:
	//   - m: the new model matrix
	SetTransformation(m mgl32.Mat4)
}

var _ Mesh = &meshImpl{}

// NewMesh uploads a CPU mesh into GPU buffers. Normal and uv buffers are only created when the
// CPU mesh carries those streams, which decides the geometry's Capability.
//
// Parameters:
//   - ctx: the graphics context owning the buffers
//   - cache: the program cache shared by every geometry of the pipeline
//   - cpu: the vertex data, validated before any upload
//
// Returns:
//   - Mesh: the uploaded mesh with an identity transformation
//   - error: a validation or upload error, no buffers are left behind
func NewMesh(ctx gpu.Context, cache program.Cache, cpu common.CPUMesh) (Mesh, error) {
	return newMesh(ctx, cache, cpu)
}

func newMesh(ctx gpu.Context, cache program.Cache, cpu common.CPUMesh) (*meshImpl, error) {
	if err := cpu.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mesh: %w", err)
	}
	m := &meshImpl{
		ctx:            ctx,
		cache:          cache,
		bounds:         cpu.AABB(),
		transformation: mgl32.Ident4(),
		programs:       make(map[string]*program.Handle),
	}

	var err error
	if m.positions, err = buffer.NewVertexBufferWithData(ctx, cpu.Positions); err != nil {
		return nil, fmt.Errorf("failed to upload positions: %w", err)
	}
	if cpu.Normals != nil {
		if m.normals, err = buffer.NewVertexBufferWithData(ctx, cpu.Normals); err != nil {
			m.Destroy()
			return nil, fmt.Errorf("failed to upload normals: %w", err)
		}
	}
	if cpu.UVs != nil {
		if m.uvs, err = buffer.NewVertexBufferWithData(ctx, cpu.UVs); err != nil {
			m.Destroy()
			return nil, fmt.Errorf("failed to upload uvs: %w", err)
		}
	}
	if cpu.Indices != nil {
		if m.indices, err = buffer.NewElementBufferWithData(ctx, cpu.Indices); err != nil {
			m.Destroy()
			return nil, fmt.Errorf("failed to upload indices: %w", err)
		}
	}
	return m, nil
}

func (m *meshImpl) AABB() common.AABB {
	return m.bounds.Transform(m.transformation)
}

func (m *meshImpl) Capability() program.Capability {
	return program.Capability{Normals: m.normals != nil, UVs: m.uvs != nil}
}

func (m *meshImpl) RenderWithMaterial(mat material.Material, cam camera.Camera, _ []light.Light) error {
	return m.draw(mat, cam, m.Capability(), instanceStreams{}, 0)
}

func (m *meshImpl) Transformation() mgl32.Mat4 {
	return m.transformation
}

func (m *meshImpl) SetTransformation(t mgl32.Mat4) {
	m.transformation = t
}

func (m *meshImpl) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for kind, h := range m.programs {
		h.Release()
		delete(m.programs, kind)
	}
	if m.positions != nil {
		m.positions.Destroy()
	}
	if m.normals != nil {
		m.normals.Destroy()
	}
	if m.uvs != nil {
		m.uvs.Destroy()
	}
	if m.indices != nil {
		m.indices.Destroy()
	}
}

// requirements returns the streams mat's fragment stage reads, from the held program when
// there is one so the source is only parsed on first use.
func (m *meshImpl) requirements(mat material.Material) (program.Requirements, error) {
	if h, ok := m.programs[mat.Kind()]; ok {
		return h.Program().Requirements, nil
	}
	return program.ParseRequirements(mat.FragmentSource())
}

// acquire returns the program for mat on capability c, acquiring a cache handle on first use.
func (m *meshImpl) acquire(mat material.Material, c program.Capability, req program.Requirements) (*program.Program, error) {
	kind := mat.Kind()
	if h, ok := m.programs[kind]; ok {
		return h.Program(), nil
	}
	sig := program.Signature{Material: kind, Geometry: c}
	h, err := m.cache.Acquire(sig, func() (string, string, program.Requirements, error) {
		vs, err := program.VertexSource(c, req)
		if err != nil {
			return "", "", program.Requirements{}, err
		}
		return vs, mat.FragmentSource(), req, nil
	})
	if err != nil {
		return nil, err
	}
	m.programs[kind] = h
	return h.Program(), nil
}

// instanceStreams are the per-instance buffers of instanced geometry, zero for a plain mesh.
type instanceStreams struct {
	models, normals gpu.BufferID
}

// draw validates mat against the available streams and issues one draw.
func (m *meshImpl) draw(mat material.Material, cam camera.Camera, c program.Capability, instances instanceStreams, instanceCount uint32) error {
	if m.destroyed {
		return ErrDestroyed
	}
	req, err := m.requirements(mat)
	if err != nil {
		return err
	}
	if err := checkRequirements(c, req); err != nil {
		return err
	}
	if c.Instanced && instanceCount == 0 {
		return nil
	}

	p, err := m.acquire(mat, c, req)
	if err != nil {
		return err
	}
	if err := m.bind(p, cam, req, instances); err != nil {
		return err
	}
	if err := mat.Bind(m.ctx, p); err != nil {
		return fmt.Errorf("failed to bind %s material: %w", mat.Kind(), err)
	}

	call := gpu.DrawCall{
		VertexCount:   uint32(m.positions.ElementCount()),
		InstanceCount: instanceCount,
	}
	if m.indices != nil {
		call.Indices = m.indices.ID()
		call.IndexCount = uint32(m.indices.ElementCount())
	}
	return m.ctx.Draw(p.ID, mat.RenderStates(), call)
}

// bind sets the camera block, transforms and vertex streams the generated vertex stage declares.
func (m *meshImpl) bind(p *program.Program, cam camera.Camera, req program.Requirements, instances instanceStreams) error {
	camID, err := cam.UniformBuffer(m.ctx)
	if err != nil {
		return err
	}
	if err := m.ctx.UseUniformBlock(p.ID, "camera", camID); err != nil {
		return err
	}
	if err := m.ctx.SetUniformMat4(p.ID, "model_matrix", m.transformation); err != nil {
		return err
	}
	if err := m.ctx.SetUniformMat4(p.ID, "normal_matrix", common.NormalMatrix(m.transformation)); err != nil {
		return err
	}
	if err := m.ctx.UseAttribute(p.ID, AttributePosition, m.positions.ID()); err != nil {
		return err
	}
	if req.Normals {
		if err := m.ctx.UseAttribute(p.ID, AttributeNormal, m.normals.ID()); err != nil {
			return err
		}
	}
	if req.UVs {
		if err := m.ctx.UseAttribute(p.ID, AttributeUV, m.uvs.ID()); err != nil {
			return err
		}
	}
	if instances.models != 0 {
		if err := m.ctx.UseInstanceAttribute(p.ID, AttributeInstance, instances.models); err != nil {
			return err
		}
	}
	if instances.normals != 0 && req.Normals {
		if err := m.ctx.UseInstanceAttribute(p.ID, AttributeInstanceNormal, instances.normals); err != nil {
			return err
		}
	}
	return nil
}
