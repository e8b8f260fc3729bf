package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// gltfMaterialExtractor converts glTF materials into MaterialInfo, loading referenced base colour images.
type gltfMaterialExtractor struct {
	parser *gltfParser
	cache  map[int]MaterialInfo
}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - *gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser *gltfParser) *gltfMaterialExtractor {
	return &gltfMaterialExtractor{parser: parser, cache: make(map[int]MaterialInfo)}
}

// defaultMaterialInfo is used by primitives that reference no material.
func defaultMaterialInfo() MaterialInfo {
	return MaterialInfo{BaseColor: mgl32.Vec4{1, 1, 1, 1}, Repeat: true}
}

// extract returns the material at index. Primitives sharing a material share the loaded image bytes.
func (e *gltfMaterialExtractor) extract(index int) (MaterialInfo, error) {
	if info, ok := e.cache[index]; ok {
		return info, nil
	}
	doc := e.parser.document
	if index < 0 || index >= len(doc.Materials) {
		return MaterialInfo{}, fmt.Errorf("material index %d out of range", index)
	}

	mat := &doc.Materials[index]
	info := defaultMaterialInfo()
	info.Name = mat.Name
	info.Transparent = mat.AlphaMode == "BLEND"

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			info.BaseColor = mgl32.Vec4(*pbr.BaseColorFactor)
		}
		if pbr.BaseColorTexture != nil {
			if err := e.loadTexture(pbr.BaseColorTexture.Index, &info); err != nil {
				return MaterialInfo{}, fmt.Errorf("material %q: base color texture: %w", mat.Name, err)
			}
		}
	}

	e.cache[index] = info
	return info, nil
}

// loadTexture resolves a texture index into image bytes (buffer view or data URI) or a
// file path relative to the document, plus its wrap mode.
func (e *gltfMaterialExtractor) loadTexture(textureIndex int, info *MaterialInfo) error {
	doc := e.parser.document
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Sampler != nil && *tex.Sampler >= 0 && *tex.Sampler < len(doc.Samplers) {
		info.Repeat = samplerRepeats(&doc.Samplers[*tex.Sampler])
	}
	if tex.Source == nil {
		return nil
	}
	if *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return fmt.Errorf("image index %d out of range", *tex.Source)
	}
	img := &doc.Images[*tex.Source]

	switch {
	case img.BufferView != nil:
		_, data, err := e.parser.bufferView(*img.BufferView)
		if err != nil {
			return fmt.Errorf("failed to read image buffer view: %w", err)
		}
		info.Texture = data
	case strings.HasPrefix(img.URI, "data:"):
		data, _, err := decodeDataURI(img.URI)
		if err != nil {
			return fmt.Errorf("failed to decode image data URI: %w", err)
		}
		info.Texture = data
	case img.URI != "":
		info.TexturePath = filepath.Join(e.parser.baseDir, img.URI)
	}
	return nil
}

// samplerRepeats reports whether a sampler wraps on both axes. glTF defaults to repeat.
func samplerRepeats(s *gltfSampler) bool {
	wraps := func(mode *int) bool {
		return mode == nil || *mode == gltfWrapRepeat || *mode == gltfWrapMirroredRepeat
	}
	return wraps(s.WrapS) && wraps(s.WrapT)
}
