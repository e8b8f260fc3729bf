package light

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed slot capacities of the light uniform block. They bound how many lights of each
// kind a pipeline can hold.
const (
	MaxDirectionalLights = 4
	MaxPointLights       = 8
	MaxSpotLights        = 4
)

// Byte sizes of the WGSL structs in GPULightDataSource.
const (
	gpuDirectionalLightSize = 96
	gpuPointLightSize       = 48
	gpuSpotLightSize        = 128
	gpuLightHeaderSize      = 32

	// GPULightDataSize is the size of the whole LightData uniform block in bytes.
	GPULightDataSize = gpuLightHeaderSize +
		MaxDirectionalLights*gpuDirectionalLightSize +
		MaxPointLights*gpuPointLightSize +
		MaxSpotLights*gpuSpotLightSize
)

// GPULightDataSource is the canonical WGSL definition of the LightData struct and its
// per-kind element structs. Matches GPULightData layout exactly (1312 bytes).
//
//go:embed assets/light_data.wgsl
var GPULightDataSource string

// GPUDirectionalLight is the GPU-aligned representation of one directional light slot.
// Size: 96 bytes.
type GPUDirectionalLight struct {
	Color         [3]float32  // offset  0
	Intensity     float32     // offset 12: zero for disabled slots
	Direction     [3]float32  // offset 16: normalized, pointing from the light into the scene
	ShadowEnabled float32     // offset 28: 1 when ShadowMatrix and the slot's shadow texture are valid
	ShadowMatrix  [16]float32 // offset 32: light view-projection
}

// GPUPointLight is the GPU-aligned representation of one point light slot.
// Size: 48 bytes.
type GPUPointLight struct {
	Color       [3]float32 // offset  0
	Intensity   float32    // offset 12
	Position    [3]float32 // offset 16
	Attenuation [3]float32 // offset 32: constant, linear, exponential
}

// GPUSpotLight is the GPU-aligned representation of one spot light slot.
// Size: 128 bytes.
type GPUSpotLight struct {
	Color         [3]float32  // offset  0
	Intensity     float32     // offset 12
	Position      [3]float32  // offset 16
	CosCutoff     float32     // offset 28
	Direction     [3]float32  // offset 32
	ShadowEnabled float32     // offset 44
	Attenuation   [3]float32  // offset 48
	ShadowMatrix  [16]float32 // offset 64
}

// GPULightData is the GPU-aligned representation of every light the lighting pass reads.
// Matches the WGSL LightData struct layout exactly (see GPULightDataSource).
type GPULightData struct {
	AmbientColor     [3]float32 // offset  0
	AmbientIntensity float32    // offset 12
	Counts           [3]float32 // offset 16: directional, point and spot slot counts
	ShadowBias       float32    // offset 28
	Directional      [MaxDirectionalLights]GPUDirectionalLight
	Point            [MaxPointLights]GPUPointLight
	Spot             [MaxSpotLights]GPUSpotLight
}

// Size returns the size of the GPULightData block in bytes.
//
// Returns:
//   - int: the block size in bytes (1312)
func (g *GPULightData) Size() int {
	return GPULightDataSize
}

// Marshal serializes the GPULightData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPULightData) Marshal() []byte {
	buf := make([]byte, GPULightDataSize)
	putFloats(buf[0:], g.AmbientColor[:]...)
	putFloats(buf[12:], g.AmbientIntensity)
	putFloats(buf[16:], g.Counts[:]...)
	putFloats(buf[28:], g.ShadowBias)

	off := gpuLightHeaderSize
	for _, d := range g.Directional {
		putFloats(buf[off:], d.Color[:]...)
		putFloats(buf[off+12:], d.Intensity)
		putFloats(buf[off+16:], d.Direction[:]...)
		putFloats(buf[off+28:], d.ShadowEnabled)
		putFloats(buf[off+32:], d.ShadowMatrix[:]...)
		off += gpuDirectionalLightSize
	}
	for _, p := range g.Point {
		putFloats(buf[off:], p.Color[:]...)
		putFloats(buf[off+12:], p.Intensity)
		putFloats(buf[off+16:], p.Position[:]...)
		putFloats(buf[off+32:], p.Attenuation[:]...)
		off += gpuPointLightSize
	}
	for _, s := range g.Spot {
		putFloats(buf[off:], s.Color[:]...)
		putFloats(buf[off+12:], s.Intensity)
		putFloats(buf[off+16:], s.Position[:]...)
		putFloats(buf[off+28:], s.CosCutoff)
		putFloats(buf[off+32:], s.Direction[:]...)
		putFloats(buf[off+44:], s.ShadowEnabled)
		putFloats(buf[off+48:], s.Attenuation[:]...)
		putFloats(buf[off+64:], s.ShadowMatrix[:]...)
		off += gpuSpotLightSize
	}
	return buf
}

// Unmarshal decodes a buffer produced by Marshal.
//
// Parameters:
//   - buf: the serialized block
//
// Returns:
//   - error: an error if buf is too short
func (g *GPULightData) Unmarshal(buf []byte) error {
	if len(buf) < GPULightDataSize {
		return fmt.Errorf("light data needs %d bytes, got %d", GPULightDataSize, len(buf))
	}
	getFloats(buf[0:], g.AmbientColor[:])
	g.AmbientIntensity = getFloat(buf[12:])
	getFloats(buf[16:], g.Counts[:])
	g.ShadowBias = getFloat(buf[28:])

	off := gpuLightHeaderSize
	for i := range g.Directional {
		d := &g.Directional[i]
		getFloats(buf[off:], d.Color[:])
		d.Intensity = getFloat(buf[off+12:])
		getFloats(buf[off+16:], d.Direction[:])
		d.ShadowEnabled = getFloat(buf[off+28:])
		getFloats(buf[off+32:], d.ShadowMatrix[:])
		off += gpuDirectionalLightSize
	}
	for i := range g.Point {
		p := &g.Point[i]
		getFloats(buf[off:], p.Color[:])
		p.Intensity = getFloat(buf[off+12:])
		getFloats(buf[off+16:], p.Position[:])
		getFloats(buf[off+32:], p.Attenuation[:])
		off += gpuPointLightSize
	}
	for i := range g.Spot {
		s := &g.Spot[i]
		getFloats(buf[off:], s.Color[:])
		s.Intensity = getFloat(buf[off+12:])
		getFloats(buf[off+16:], s.Position[:])
		s.CosCutoff = getFloat(buf[off+28:])
		getFloats(buf[off+32:], s.Direction[:])
		s.ShadowEnabled = getFloat(buf[off+44:])
		getFloats(buf[off+48:], s.Attenuation[:])
		getFloats(buf[off+64:], s.ShadowMatrix[:])
		off += gpuSpotLightSize
	}
	return nil
}

// putFloats writes consecutive little-endian float32 values into buf.
func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

func getFloat(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

// getFloats reads len(out) consecutive little-endian float32 values from buf.
func getFloats(buf []byte, out []float32) {
	for i := range out {
		out[i] = getFloat(buf[i*4:])
	}
}
