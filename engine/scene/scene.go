// Package scene groups game objects into a renderable set. Each frame a scene advances every
// enabled object concurrently on a worker pool, then renders the enabled objects through a
// deferred pipeline.
package scene

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"go.uber.org/zap"
)

// UpdateFunc is per-frame game logic attached to a scene. It runs on the render thread
// after the objects were advanced, so it may touch the pipeline and its lights.
type UpdateFunc func(s Scene, deltaTime float32) error

// Scene manages a registry of GameObjects keyed by ID.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
// Thread-safe for concurrent access; Render must still be called on the pipeline's thread.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Count returns the number of registered GameObjects.
	//
	// Returns:
	//   - int: count of GameObjects in the registry
	Count() int

	// Add registers a GameObject. Objects without an ID are assigned the next free one.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the object's ID
	//   - error: an error if another object is registered under the same ID
	Add(obj game_object.GameObject) (uint64, error)

	// Get retrieves a GameObject by its ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove unregisters a GameObject by ID and returns it, or nil if not found.
	// Its GPU resources are not released.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the removed object or nil
	Remove(id uint64) game_object.GameObject

	// Clear unregisters all objects. Does not release GPU resources.
	Clear()

	// GameObjects returns the registered objects in ascending ID order.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	GameObjects() []game_object.GameObject

	// Objects returns the renderable objects of every enabled GameObject in ascending ID order.
	//
	// Returns:
	//   - []object.Object: the objects to render
	Objects() []object.Object

	// SetUpdateFunc registers game logic run by every Update after the objects advanced.
	//
	// Parameters:
	//   - fn: the update function, nil to remove it
	SetUpdateFunc(fn UpdateFunc)

	// Update advances every enabled GameObject concurrently, then runs the update function.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - error: the update function's error
	Update(deltaTime float32) error

	// Render draws the enabled objects through the pipeline's shadow, geometry and light passes.
	//
	// Parameters:
	//   - p: the deferred pipeline
	//
	// Returns:
	//   - error: the pipeline error
	Render(p deferred.Pipeline) error

	// Destroy stops the worker pool and releases the GPU resources of every registered object
	// that owns any. Later calls are no-ops.
	Destroy()
}

// destroyer is implemented by objects owning GPU resources, such as object.Shape.
type destroyer interface {
	Destroy()
}

type scene struct {
	mu       sync.RWMutex
	log      *zap.Logger
	name     string
	active   bool
	registry map[uint64]game_object.GameObject
	nextID   uint64
	update   UpdateFunc

	// updatePool runs object updates; workers persist across frames.
	updatePool    worker.DynamicWorkerPool
	updateWorkers int
	destroyed     bool
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new, inactive Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:          name,
		registry:      make(map[uint64]game_object.GameObject),
		nextID:        1,
		updateWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		s.log = logger.Named("scene")
	}

	// Initialize the pool after options so WithUpdateWorkers can override the default.
	s.updatePool = worker.NewDynamicWorkerPool(s.updateWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add registers obj. Callers hold s.mu.
func (s *scene) add(obj game_object.GameObject) (uint64, error) {
	id := obj.ID()
	if id == 0 {
		for s.registry[s.nextID] != nil {
			s.nextID++
		}
		id = s.nextID
		s.nextID++
		obj.SetID(id)
	} else if existing, ok := s.registry[id]; ok && existing != obj {
		return 0, fmt.Errorf("scene %q: object id %d already registered", s.name, id)
	}
	s.registry[id] = obj
	return id, nil
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.registry[id]
	delete(s.registry, id)
	return obj
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
}

func (s *scene) GameObjects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.registry))
	for id := range s.registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]game_object.GameObject, len(ids))
	for i, id := range ids {
		out[i] = s.registry[id]
	}
	return out
}

func (s *scene) Objects() []object.Object {
	var out []object.Object
	for _, g := range s.GameObjects() {
		if g.Enabled() && g.Object() != nil {
			out = append(out, g.Object())
		}
	}
	return out
}

func (s *scene) SetUpdateFunc(fn UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = fn
}

func (s *scene) Update(deltaTime float32) error {
	objects := s.GameObjects()

	// A WaitGroup provides the per-frame barrier; pool.Wait() blocks until workers idle-exit.
	var wg sync.WaitGroup
	for i, g := range objects {
		if !g.Enabled() {
			continue
		}
		wg.Add(1)
		s.updatePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				g.Update(deltaTime)
				return nil, nil
			},
		})
	}
	wg.Wait()

	s.mu.RLock()
	fn := s.update
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	if err := fn(s, deltaTime); err != nil {
		return fmt.Errorf("scene %q update: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) Render(p deferred.Pipeline) error {
	if err := p.Render(s.Objects()); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name(), err)
	}
	return nil
}

func (s *scene) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	registry, name := s.registry, s.name
	s.registry = make(map[uint64]game_object.GameObject)
	s.mu.Unlock()

	s.updatePool.Stop()
	released := 0
	for _, g := range registry {
		if d, ok := g.Object().(destroyer); ok {
			d.Destroy()
			released++
		}
	}
	s.log.Debug("scene destroyed", zap.String("name", name), zap.Int("released", released))
}
