package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene. Objects without IDs are assigned new IDs;
// objects whose ID is already taken are skipped.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			_, _ = s.add(obj)
		}
	}
}

// WithUpdateWorkers sets the number of worker goroutines advancing objects during Update.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of update workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUpdateWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.updateWorkers = n
	}
}

// WithUpdateFunc registers per-frame game logic.
//
// Parameters:
//   - fn: the update function
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUpdateFunc(fn UpdateFunc) SceneBuilderOption {
	return func(s *scene) {
		s.update = fn
	}
}

// WithLogger sets the logger the scene reports to.
//
// Parameters:
//   - log: the logger to use
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(log *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.log = log
	}
}
