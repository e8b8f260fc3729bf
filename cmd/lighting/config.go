package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
)

// Config describes the demo scene. Every field has a default reproducing the classic
// two-sun, two-point, one-spot lighting setup, so a config file only lists overrides.
type Config struct {
	Window      WindowConfig        `toml:"window"`
	Render      RenderConfig        `toml:"render"`
	Camera      CameraConfig        `toml:"camera"`
	Scene       SceneConfig         `toml:"scene"`
	Ambient     float32             `toml:"ambient"`
	Directional []DirectionalConfig `toml:"directional"`
	Point       []PointConfig       `toml:"point"`
	Spot        []SpotConfig        `toml:"spot"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type RenderConfig struct {
	ClearColor          [4]float32 `toml:"clear_color"`
	ShadowMapResolution uint32     `toml:"shadow_map_resolution"`
	ShadowBias          float32    `toml:"shadow_bias"`

	// Workers is the number of rows shaded in parallel by the software device, 0 for one per CPU.
	Workers int `toml:"workers"`

	// FrameLimit caps the windowed frame rate, 0 for uncapped.
	FrameLimit float64 `toml:"frame_limit"`
	Profile    bool    `toml:"profile"`
}

type CameraConfig struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`

	// Fov is the vertical field of view in degrees.
	Fov  float32 `toml:"fov"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

type SceneConfig struct {
	// Model is an optional .gltf or .glb file rendered in place of the cube.
	Model string `toml:"model"`

	CubeSize    float32 `toml:"cube_size"`
	PlaneSize   float32 `toml:"plane_size"`
	PlaneHeight float32 `toml:"plane_height"`

	// Spin is the turn rate of the centre object around +Y in radians per second.
	Spin float32 `toml:"spin"`

	Color    [4]float32 `toml:"color"`
	Specular [2]float32 `toml:"specular"`
}

type DirectionalConfig struct {
	Direction [3]float32 `toml:"direction"`
	Color     [3]float32 `toml:"color"`
	Intensity float32    `toml:"intensity"`
	Shadows   bool       `toml:"shadows"`
}

type PointConfig struct {
	Position    [3]float32 `toml:"position"`
	Color       [3]float32 `toml:"color"`
	Intensity   float32    `toml:"intensity"`
	Attenuation [3]float32 `toml:"attenuation"`
}

type SpotConfig struct {
	Position    [3]float32 `toml:"position"`
	Direction   [3]float32 `toml:"direction"`
	Color       [3]float32 `toml:"color"`
	Intensity   float32    `toml:"intensity"`
	Attenuation [3]float32 `toml:"attenuation"`

	// Cutoff is the cone half-angle in radians.
	Cutoff  float32 `toml:"cutoff"`
	Shadows bool    `toml:"shadows"`
}

// DefaultConfig returns the built-in scene.
func DefaultConfig() Config {
	att := light.DefaultAttenuation
	attenuation := [3]float32{att.Constant, att.Linear, att.Exponential}
	return Config{
		Window: WindowConfig{Title: "Oxy - Deferred Lighting", Width: 1280, Height: 720},
		Render: RenderConfig{
			ClearColor:          [4]float32{0.8, 0.8, 0.8, 1},
			ShadowMapResolution: 1024,
			ShadowBias:          light.DefaultShadowBias,
		},
		Camera: CameraConfig{
			Position: [3]float32{6, 4, 8},
			Fov:      45,
			Near:     0.1,
			Far:      100,
		},
		Scene: SceneConfig{
			CubeSize:    2,
			PlaneSize:   20,
			PlaneHeight: -1,
			Spin:        0.5,
			Color:       [4]float32{0.9, 0.9, 0.9, 1},
			Specular:    [2]float32{0.5, 16},
		},
		Ambient: 0.1,
		Directional: []DirectionalConfig{
			{Direction: [3]float32{1, -1, -1}, Color: [3]float32{1, 1, 1}, Intensity: 0.3, Shadows: true},
			{Direction: [3]float32{-1, -1, 1}, Color: [3]float32{1, 1, 1}, Intensity: 0.3, Shadows: true},
		},
		Point: []PointConfig{
			{Position: [3]float32{5, 5, 5}, Color: [3]float32{0, 1, 0}, Intensity: 0.5, Attenuation: attenuation},
			{Position: [3]float32{-5, 5, -5}, Color: [3]float32{1, 0, 0}, Intensity: 0.5, Attenuation: attenuation},
		},
		Spot: []SpotConfig{
			{
				Position:    [3]float32{5, 5, 5},
				Direction:   [3]float32{-1, -1, -1},
				Color:       [3]float32{0, 0, 1},
				Intensity:   0.5,
				Attenuation: attenuation,
				Cutoff:      0.05 * math32.Pi,
				Shadows:     true,
			},
		},
	}
}

// LoadConfig reads a TOML file over the defaults. Light tables in the file replace the default lights.
//
// Parameters:
//   - path: the config file, empty for the defaults
//
// Returns:
//   - Config: the merged config
//   - error: a read, decode or validation error
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("decode config %s:%d:%d: %w", path, row, col, err)
		}
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configs the pipeline cannot render.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return fmt.Errorf("camera fov %g must be in (0, 180) degrees", c.Camera.Fov)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera near %g and far %g must satisfy 0 < near < far", c.Camera.Near, c.Camera.Far)
	}
	if n := len(c.Directional); n > light.MaxDirectionalLights {
		return fmt.Errorf("%d directional lights, at most %d are supported", n, light.MaxDirectionalLights)
	}
	if n := len(c.Point); n > light.MaxPointLights {
		return fmt.Errorf("%d point lights, at most %d are supported", n, light.MaxPointLights)
	}
	if n := len(c.Spot); n > light.MaxSpotLights {
		return fmt.Errorf("%d spot lights, at most %d are supported", n, light.MaxSpotLights)
	}
	for i, s := range c.Spot {
		if s.Cutoff <= 0 || s.Cutoff >= math32.Pi/2 {
			return fmt.Errorf("spot light %d cutoff %g must be in (0, π/2)", i, s.Cutoff)
		}
	}
	if c.Scene.CubeSize <= 0 || c.Scene.PlaneSize <= 0 {
		return fmt.Errorf("cube and plane sizes must be positive")
	}
	return nil
}
