package soft

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// lightEnv is the per-draw state of the light pass kernel.
type lightEnv struct {
	data               *light.GPULightData
	eye                mgl32.Vec3
	directionalShadows [light.MaxDirectionalLights]*Texture
	spotShadows        [light.MaxSpotLights]*Texture
}

// fragment is one G-buffer texel unpacked for shading.
type fragment struct {
	p, n, v  mgl32.Vec3
	albedo   mgl32.Vec3
	diffuse  float32
	specular float32
	power    float32
}

// shade evaluates ambient, directional, point and spot lighting for one G-buffer texel.
func (e *lightEnv) shade(pos, nor, col mgl32.Vec4) mgl32.Vec3 {
	f := fragment{
		p:        pos.Vec3(),
		n:        nor.Vec3().Normalize(),
		albedo:   col.Vec3(),
		diffuse:  col[3],
		specular: nor[3],
		power:    pos[3],
	}
	f.v = safeNormalize(e.eye.Sub(f.p))
	d := e.data

	result := mulVec3(f.albedo, mgl32.Vec3(d.AmbientColor)).Mul(d.AmbientIntensity)

	for i := range min(int(d.Counts[0]), light.MaxDirectionalLights) {
		l := &d.Directional[i]
		if l.Intensity <= 0 {
			continue
		}
		visibility := float32(1)
		if l.ShadowEnabled > 0.5 {
			visibility = shadowVisibility(e.directionalShadows[i], mgl32.Mat4(l.ShadowMatrix), f.p, d.ShadowBias)
		}
		radiance := mgl32.Vec3(l.Color).Mul(l.Intensity)
		result = result.Add(phong(radiance, mgl32.Vec3(l.Direction).Mul(-1), &f).Mul(visibility))
	}

	for i := range min(int(d.Counts[1]), light.MaxPointLights) {
		l := &d.Point[i]
		if l.Intensity <= 0 {
			continue
		}
		toLight := mgl32.Vec3(l.Position).Sub(f.p)
		dist := toLight.Len()
		radiance := mgl32.Vec3(l.Color).Mul(l.Intensity / attenuation(l.Attenuation, dist))
		result = result.Add(phong(radiance, safeNormalize(toLight), &f))
	}

	for i := range min(int(d.Counts[2]), light.MaxSpotLights) {
		l := &d.Spot[i]
		if l.Intensity <= 0 {
			continue
		}
		toLight := mgl32.Vec3(l.Position).Sub(f.p)
		dist := toLight.Len()
		dir := safeNormalize(toLight)
		cone := coneFactor(dir.Mul(-1).Dot(mgl32.Vec3(l.Direction)), l.CosCutoff)
		if cone <= 0 {
			continue
		}
		visibility := float32(1)
		if l.ShadowEnabled > 0.5 {
			visibility = shadowVisibility(e.spotShadows[i], mgl32.Mat4(l.ShadowMatrix), f.p, d.ShadowBias)
		}
		radiance := mgl32.Vec3(l.Color).Mul(l.Intensity * cone * visibility / attenuation(l.Attenuation, dist))
		result = result.Add(phong(radiance, dir, &f))
	}
	return result
}

// phong returns the diffuse and specular response of f to radiance arriving along toLight.
// Specular is only evaluated for surfaces facing the light.
func phong(radiance, toLight mgl32.Vec3, f *fragment) mgl32.Vec3 {
	d := math32.Max(f.n.Dot(toLight), 0)
	var s float32
	if d > 0 {
		h := safeNormalize(toLight.Add(f.v))
		s = math32.Pow(math32.Max(f.n.Dot(h), 0), f.power)
	}
	response := f.albedo.Mul(d * f.diffuse).Add(mgl32.Vec3{s, s, s}.Mul(f.specular))
	return mulVec3(radiance, response)
}

// attenuation evaluates constant + linear*d + exponential*d*d.
func attenuation(c [3]float32, dist float32) float32 {
	a := c[0] + c[1]*dist + c[2]*dist*dist
	if a <= 0 {
		return 1
	}
	return a
}

// coneFactor fades a spot light linearly from 1 on its axis to 0 at the cutoff.
func coneFactor(cosTheta, cosCutoff float32) float32 {
	if cosTheta <= cosCutoff {
		return 0
	}
	return 1 - (1-cosTheta)/(1-cosCutoff)
}

// shadowVisibility is 1 when p is lit according to the shadow map and 0 when it is occluded.
// Points projecting outside the light frustum are lit.
func shadowVisibility(tex *Texture, lightViewProj mgl32.Mat4, p mgl32.Vec3, bias float32) float32 {
	if tex == nil {
		return 1
	}
	clip := lightViewProj.Mul4x1(p.Vec4(1))
	if clip[3] <= 0 {
		return 1
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	uv := mgl32.Vec2{ndc[0]*0.5 + 0.5, 0.5 - ndc[1]*0.5}
	if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 || ndc[2] < 0 || ndc[2] > 1 {
		return 1
	}
	if ndc[2]-bias <= tex.LoadDepth(tex.Texel(uv)) {
		return 1
	}
	return 0
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
