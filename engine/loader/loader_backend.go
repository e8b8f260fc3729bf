package loader

import "io"

// loaderBackend defines the format-specific half of the loader. Concrete implementations
// (e.g., gltfLoaderBackend) parse a file and return its meshes.
type loaderBackend interface {
	// Load imports every mesh of the file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - []Mesh: the imported meshes
	//   - error: error if loading fails
	Load(path string) ([]Mesh, error)

	// LoadReader imports every mesh from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides binary data, false for text-based formats
	//
	// Returns:
	//   - []Mesh: the imported meshes
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) ([]Mesh, error)
}
