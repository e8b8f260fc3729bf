// Package loader imports static triangle meshes from glTF 2.0 (.gltf) and GLB files into
// CPU meshes ready for geometry.NewMesh, together with the base colour of each primitive's material.
package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Model is an imported file: every mesh instance of its default scene with node transforms baked in.
type Model struct {
	// Name is the cache key the model was loaded under.
	Name string

	// Meshes holds one entry per primitive per node instance.
	Meshes []Mesh
}

// AABB returns the bounds of every mesh of the model.
//
// Returns:
//   - common.AABB: the union of the mesh bounds
func (m *Model) AABB() common.AABB {
	b := common.EmptyAABB()
	for i := range m.Meshes {
		b = b.Expand(m.Meshes[i].CPU.AABB())
	}
	return b
}

// Mesh is one imported primitive.
type Mesh struct {
	Name     string
	CPU      common.CPUMesh
	Material MaterialInfo
}

// MaterialInfo is the part of a file's material the engine's materials can express.
type MaterialInfo struct {
	Name string

	// BaseColor is the linear RGBA base colour factor.
	BaseColor mgl32.Vec4

	// Texture holds embedded encoded image bytes of the base colour texture, or nil.
	Texture []byte

	// TexturePath is the resolved path of an external base colour image, or empty.
	TexturePath string

	// Repeat reports whether the texture wraps rather than clamps.
	Repeat bool

	// Transparent is set for alpha-blended materials.
	Transparent bool
}

// HasTexture reports whether the material references a base colour image.
func (m MaterialInfo) HasTexture() bool {
	return len(m.Texture) > 0 || m.TexturePath != ""
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu  sync.RWMutex
	log *zap.Logger

	modelCache map[string]*Model
	backends   map[string]loaderBackend
}

// Loader loads and caches models. The backend is selected by file extension.
type Loader interface {
	// Load imports a model file and caches it by path.
	// If the model is already cached, the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *Model: the loaded and cached model
	//   - error: error if the extension is unsupported or loading fails
	Load(path string) (*Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	// External buffers and images resolve against the working directory.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	Get(name string) *Model

	// Models returns a copy of the model cache keyed by name.
	Models() map[string]*Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the glTF backend registered for .gltf and .glb files.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	gltf := newGLTFLoaderBackend()
	l := &loader{
		modelCache: make(map[string]*Model),
		backends: map[string]loaderBackend{
			".gltf": gltf,
			".glb":  gltf,
		},
	}
	for _, option := range options {
		option(l)
	}
	if l.log == nil {
		l.log = logger.Named("loader")
	}
	return l
}

func (l *loader) Load(path string) (*Model, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}
	meshes, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.store(path, meshes), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Model, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	ext := ".gltf"
	if isGLB {
		ext = ".glb"
	}
	meshes, err := l.backends[ext].LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return l.store(name, meshes), nil
}

func (l *loader) Get(name string) *Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*Model, len(l.modelCache))
	for k, v := range l.modelCache {
		out[k] = v
	}
	return out
}

// store caches a freshly imported model. A concurrent import of the same name keeps the first result.
func (l *loader) store(name string, meshes []Mesh) *Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[name]; ok {
		return cached
	}
	m := &Model{Name: name, Meshes: meshes}
	l.modelCache[name] = m

	vertices := 0
	for i := range meshes {
		vertices += len(meshes[i].CPU.Positions)
	}
	l.log.Debug("model loaded", zap.String("name", name), zap.Int("meshes", len(meshes)), zap.Int("vertices", vertices))
	return m
}

// resolveBackend selects the backend registered for the file's extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	backend, ok := l.backends[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported model format %q", ext)
	}
	return backend, nil
}
