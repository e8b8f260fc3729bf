package soft

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
)

// meshKernel mirrors the "mesh" vertex stage: one model and normal matrix for the draw.
func meshKernel(b *Bindings) (VertexShader, error) {
	cam, err := cameraBlock(b)
	if err != nil {
		return nil, err
	}
	model, normal := b.Mat4("model_matrix"), b.Mat4("normal_matrix")
	return meshShader(b, mgl32.Mat4(cam.ViewProj), func(int) (mgl32.Mat4, mgl32.Mat4) {
		return model, normal
	}), nil
}

// instancedMeshKernel mirrors the "instanced_mesh" vertex stage: every instance applies its
// own transform on top of the draw's model matrix and carries its own normal matrix.
func instancedMeshKernel(b *Bindings) (VertexShader, error) {
	cam, err := cameraBlock(b)
	if err != nil {
		return nil, err
	}
	stream := b.Instance("instance_model")
	if stream == nil {
		return nil, fmt.Errorf("instance attribute %q is not declared", "instance_model")
	}
	normalStream := b.Instance("instance_normal")
	model := b.Mat4("model_matrix")
	models := make([]mgl32.Mat4, stream.Len())
	normals := make([]mgl32.Mat4, stream.Len())
	for i := range models {
		models[i] = stream.Mat4(i).Mul4(model)
		if normalStream != nil && i < normalStream.Len() {
			normals[i] = normalStream.Mat4(i)
		} else {
			normals[i] = common.NormalMatrix(models[i])
		}
	}
	return meshShader(b, mgl32.Mat4(cam.ViewProj), func(i int) (mgl32.Mat4, mgl32.Mat4) {
		return models[i], normals[i]
	}), nil
}

func meshShader(b *Bindings, viewProj mgl32.Mat4, transforms func(instance int) (model, normal mgl32.Mat4)) VertexShader {
	positions := b.Attribute("position")
	normals := b.Attribute("normal")
	uvs := b.Attribute("uv_coordinates")
	return func(vertex, instance int) (mgl32.Vec4, Varyings) {
		model, normal := transforms(instance)
		world := model.Mul4x1(positions.Vec3(vertex).Vec4(1))
		out := Varyings{Pos: world.Vec3()}
		if normals != nil {
			out.Nor = safeNormalize(normal.Mul4x1(normals.Vec3(vertex).Vec4(0)).Vec3())
		}
		if uvs != nil {
			out.UV = uvs.Vec2(vertex)
		}
		return viewProj.Mul4x1(world), out
	}
}

// fullscreenKernel mirrors the "fullscreen" vertex stage: positions are already in NDC and
// uvs address the full target with the origin at the top-left.
func fullscreenKernel(b *Bindings) (VertexShader, error) {
	positions := b.Attribute("position")
	return func(vertex, _ int) (mgl32.Vec4, Varyings) {
		p := positions.Vec3(vertex)
		return mgl32.Vec4{p[0], p[1], 0, 1}, Varyings{
			Pos: p,
			UV:  mgl32.Vec2{p[0]*0.5 + 0.5, 0.5 - p[1]*0.5},
		}
	}, nil
}

func cameraBlock(b *Bindings) (camera.GPUCameraUniform, error) {
	var cam camera.GPUCameraUniform
	if err := cam.Unmarshal(b.Block("camera")); err != nil {
		return cam, fmt.Errorf("camera block: %w", err)
	}
	return cam, nil
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return v
	}
	return v.Normalize()
}
