package loader

import "io"

// gltfLoaderBackend is the loaderBackend for glTF and GLB files.
type gltfLoaderBackend struct{}

var _ loaderBackend = &gltfLoaderBackend{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() loaderBackend {
	return &gltfLoaderBackend{}
}

func (b *gltfLoaderBackend) Load(path string) ([]Mesh, error) {
	p := &gltfParser{}
	if err := p.parseFile(path); err != nil {
		return nil, err
	}
	return extractMeshes(p)
}

func (b *gltfLoaderBackend) LoadReader(r io.Reader, isGLB bool) ([]Mesh, error) {
	p := &gltfParser{}
	if err := p.parseReader(r, isGLB); err != nil {
		return nil, err
	}
	return extractMeshes(p)
}

// extractMeshes runs the mesh extractor over a parsed document.
func extractMeshes(p *gltfParser) ([]Mesh, error) {
	return newGLTFMeshExtractor(p, newGLTFMaterialExtractor(p)).extractAll()
}
