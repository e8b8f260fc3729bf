package soft

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// surface holds the Phong parameters a geometry pass material writes into the G-buffer.
type surface struct {
	diffuse, specular, power float32
}

func surfaceOf(b *Bindings) surface {
	return surface{
		diffuse:  b.Float("diffuse_intensity"),
		specular: b.Float("specular_intensity"),
		power:    b.Float("specular_power"),
	}
}

// gbuffer packs a fragment into the position, normal and color attachments.
func (s surface) gbuffer(in Varyings, albedo mgl32.Vec3) Outputs {
	return Outputs{
		in.Pos.Vec4(s.power),
		safeNormalize(in.Nor).Vec4(s.specular),
		albedo.Vec4(s.diffuse),
	}
}

func geometryColorKernel(b *Bindings) (FragmentShader, error) {
	albedo := b.Vec4("surface_color").Vec3()
	s := surfaceOf(b)
	return func(in Varyings) (Outputs, bool) {
		return s.gbuffer(in, albedo), true
	}, nil
}

func geometryTextureKernel(b *Bindings) (FragmentShader, error) {
	tex := b.Texture("surface_texture")
	if tex == nil {
		return nil, fmt.Errorf("texture %q is not declared", "surface_texture")
	}
	tint := b.Vec4("surface_color").Vec3()
	s := surfaceOf(b)
	return func(in Varyings) (Outputs, bool) {
		return s.gbuffer(in, mulVec3(tex.Sample(in.UV).Vec3(), tint)), true
	}, nil
}

func depthKernel(*Bindings) (FragmentShader, error) {
	return func(Varyings) (Outputs, bool) {
		return Outputs{}, true
	}, nil
}

// deferredLightKernel mirrors the light pass fragment stage: it reads the G-buffer texel
// under the fragment and accumulates every active light slot.
func deferredLightKernel(b *Bindings) (FragmentShader, error) {
	cam, err := cameraBlock(b)
	if err != nil {
		return nil, err
	}
	var data light.GPULightData
	if err := data.Unmarshal(b.Block("lights")); err != nil {
		return nil, fmt.Errorf("lights block: %w", err)
	}
	positions := b.Texture("gbuffer_position")
	normals := b.Texture("gbuffer_normal")
	colors := b.Texture("gbuffer_color")
	if positions == nil || normals == nil || colors == nil {
		return nil, fmt.Errorf("light pass requires the G-buffer textures")
	}

	env := lightEnv{
		data: &data,
		eye:  mgl32.Vec3(cam.CameraPosition),
	}
	for i := range env.directionalShadows {
		env.directionalShadows[i] = b.Texture(fmt.Sprintf("directional_shadow_%d", i))
	}
	for i := range env.spotShadows {
		env.spotShadows[i] = b.Texture(fmt.Sprintf("spot_shadow_%d", i))
	}
	clearColor := b.Vec4("clear_color")

	return func(in Varyings) (Outputs, bool) {
		x, y := positions.Texel(in.UV)
		pos, nor, col := positions.Load(x, y), normals.Load(x, y), colors.Load(x, y)
		if nor.Vec3().Len() == 0 {
			return Outputs{clearColor}, true
		}
		return Outputs{env.shade(pos, nor, col).Vec4(1)}, true
	}, nil
}
