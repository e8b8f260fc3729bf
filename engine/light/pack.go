package light

import "github.com/chewxy/math32"

// NewGPULightData packs light slots into the uniform block the lighting pass reads.
// Disabled lights keep their slot with zero intensity so the slot count stays fixed.
// Slices longer than the block capacity are truncated.
//
// Parameters:
//   - ambient: the ambient light, may be nil
//   - directional: the directional light slots
//   - point: the point light slots
//   - spot: the spot light slots
//   - bias: the depth bias of shadow comparisons
//
// Returns:
//   - GPULightData: the packed block
func NewGPULightData(ambient Light, directional, point, spot []Light, bias float32) GPULightData {
	data := GPULightData{ShadowBias: bias}
	if ambient != nil {
		data.AmbientColor = ambient.Color()
		data.AmbientIntensity = effectiveIntensity(ambient)
	}

	directional = directional[:min(len(directional), MaxDirectionalLights)]
	point = point[:min(len(point), MaxPointLights)]
	spot = spot[:min(len(spot), MaxSpotLights)]
	data.Counts = [3]float32{float32(len(directional)), float32(len(point)), float32(len(spot))}

	for i, l := range directional {
		d := &data.Directional[i]
		d.Color = l.Color()
		d.Intensity = effectiveIntensity(l)
		d.Direction = l.Direction()
		if sm := l.ShadowMap(); sm != nil {
			d.ShadowEnabled = 1
			d.ShadowMatrix = sm.Matrix()
		}
	}
	for i, l := range point {
		p := &data.Point[i]
		p.Color = l.Color()
		p.Intensity = effectiveIntensity(l)
		p.Position = l.Position()
		a := l.Attenuation()
		p.Attenuation = [3]float32{a.Constant, a.Linear, a.Exponential}
	}
	for i, l := range spot {
		s := &data.Spot[i]
		s.Color = l.Color()
		s.Intensity = effectiveIntensity(l)
		s.Position = l.Position()
		s.Direction = l.Direction()
		s.CosCutoff = math32.Cos(l.Cutoff())
		a := l.Attenuation()
		s.Attenuation = [3]float32{a.Constant, a.Linear, a.Exponential}
		if sm := l.ShadowMap(); sm != nil {
			s.ShadowEnabled = 1
			s.ShadowMatrix = sm.Matrix()
		}
	}
	return data
}

func effectiveIntensity(l Light) float32 {
	if !l.Enabled() {
		return 0
	}
	return max(l.Intensity(), 0)
}
