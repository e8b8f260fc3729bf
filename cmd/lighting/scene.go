package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/game_object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/geometry"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/loader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/object"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// demo owns everything the lighting scene allocates on a context.
type demo struct {
	cfg      Config
	pipeline deferred.Pipeline
	scene    scene.Scene
	spinning []game_object.GameObject
	textures []*material.Texture
	paused   bool
	log      *zap.Logger
}

// newDemo builds the pipeline, its light slots and the scene objects on ctx.
func newDemo(ctx gpu.Context, cfg Config, width, height int, log *zap.Logger) (*demo, error) {
	cam := camera.NewCamera(
		camera.WithPosition(mgl32.Vec3(cfg.Camera.Position)),
		camera.WithTarget(mgl32.Vec3(cfg.Camera.Target)),
		camera.WithFov(mgl32.DegToRad(cfg.Camera.Fov)),
		camera.WithAspect(float32(width)/float32(height)),
		camera.WithNear(cfg.Camera.Near),
		camera.WithFar(cfg.Camera.Far),
	)

	p, err := deferred.New(ctx, width, height, mgl32.Vec4(cfg.Render.ClearColor),
		deferred.WithCamera(cam),
		deferred.WithShadowMapResolution(cfg.Render.ShadowMapResolution),
		deferred.WithShadowBias(cfg.Render.ShadowBias),
		deferred.WithDirectionalLights(len(cfg.Directional)),
		deferred.WithPointLights(len(cfg.Point)),
		deferred.WithSpotLights(len(cfg.Spot)),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	d := &demo{cfg: cfg, pipeline: p, log: log}
	if err := d.configureLights(); err != nil {
		d.destroy()
		return nil, err
	}
	if err := d.buildScene(ctx); err != nil {
		d.destroy()
		return nil, err
	}
	return d, nil
}

func (d *demo) configureLights() error {
	d.pipeline.AmbientLight().SetIntensity(d.cfg.Ambient)

	for i, c := range d.cfg.Directional {
		l, err := d.pipeline.DirectionalLight(i)
		if err != nil {
			return err
		}
		l.SetDirection(mgl32.Vec3(c.Direction))
		l.SetColor(mgl32.Vec3(c.Color))
		l.SetIntensity(c.Intensity)
		if c.Shadows {
			if err := l.EnableShadows(); err != nil {
				return fmt.Errorf("directional light %d: %w", i, err)
			}
		}
	}

	for i, c := range d.cfg.Point {
		l, err := d.pipeline.PointLight(i)
		if err != nil {
			return err
		}
		l.SetPosition(mgl32.Vec3(c.Position))
		l.SetColor(mgl32.Vec3(c.Color))
		l.SetIntensity(c.Intensity)
		l.SetAttenuation(attenuationOf(c.Attenuation))
	}

	for i, c := range d.cfg.Spot {
		l, err := d.pipeline.SpotLight(i)
		if err != nil {
			return err
		}
		l.SetPosition(mgl32.Vec3(c.Position))
		l.SetDirection(mgl32.Vec3(c.Direction))
		l.SetColor(mgl32.Vec3(c.Color))
		l.SetIntensity(c.Intensity)
		l.SetAttenuation(attenuationOf(c.Attenuation))
		l.SetCutoff(c.Cutoff)
		if c.Shadows {
			if err := l.EnableShadows(); err != nil {
				return fmt.Errorf("spot light %d: %w", i, err)
			}
		}
	}

	d.log.Info("lights configured",
		zap.Int("directional", len(d.cfg.Directional)),
		zap.Int("point", len(d.cfg.Point)),
		zap.Int("spot", len(d.cfg.Spot)),
	)
	return nil
}

func attenuationOf(v [3]float32) light.Attenuation {
	if v == ([3]float32{}) {
		return light.DefaultAttenuation
	}
	return light.Attenuation{Constant: v[0], Linear: v[1], Exponential: v[2]}
}

func (d *demo) buildScene(ctx gpu.Context) error {
	sc := d.cfg.Scene
	cache := d.pipeline.Programs()
	d.scene = scene.NewScene("lighting", scene.WithLogger(d.log.Named("scene")))

	plane, err := geometry.NewMesh(ctx, cache, geometry.NewPlane(sc.PlaneSize, sc.PlaneSize))
	if err != nil {
		return fmt.Errorf("create plane: %w", err)
	}
	floor := object.NewShape(plane, material.NewColorMaterial(mgl32.Vec4{1, 1, 1, 1}))
	if _, err := d.scene.Add(game_object.NewGameObject(floor,
		game_object.WithTarget(plane),
		game_object.WithPosition(mgl32.Vec3{0, sc.PlaneHeight, 0}),
	)); err != nil {
		floor.Destroy()
		return err
	}

	centre, err := d.centreObjects(ctx)
	if err != nil {
		for _, c := range centre {
			if r, ok := c.obj.(interface{ Destroy() }); ok {
				r.Destroy()
			}
		}
		return err
	}
	for _, c := range centre {
		gobj := game_object.NewGameObject(c.obj,
			game_object.WithTarget(c.target),
			game_object.WithRotationSpeed(mgl32.Vec3{0, sc.Spin, 0}),
		)
		if _, err := d.scene.Add(gobj); err != nil {
			return err
		}
		d.spinning = append(d.spinning, gobj)
	}
	return nil
}

type centreObject struct {
	obj    object.Object
	target game_object.Transformable
}

// centreObjects returns the model's meshes fitted to the cube size, or a cube when no model is configured.
func (d *demo) centreObjects(ctx gpu.Context) ([]centreObject, error) {
	sc := d.cfg.Scene
	cache := d.pipeline.Programs()
	surface := material.NewColorMaterial(mgl32.Vec4(sc.Color), material.WithSpecular(sc.Specular[0], sc.Specular[1]))

	if sc.Model == "" {
		cube, err := geometry.NewMesh(ctx, cache, geometry.NewCube(sc.CubeSize))
		if err != nil {
			return nil, fmt.Errorf("create cube: %w", err)
		}
		return []centreObject{{obj: object.NewShape(cube, surface), target: cube}}, nil
	}

	model, err := loader.NewLoader(loader.WithLogger(d.log.Named("loader"))).Load(sc.Model)
	if err != nil {
		return nil, err
	}
	fitted := fitModel(model, sc.CubeSize)

	var out []centreObject
	for _, m := range fitted.Meshes {
		mesh, err := geometry.NewMesh(ctx, cache, m.CPU)
		if err != nil {
			return out, fmt.Errorf("create mesh %s: %w", m.Name, err)
		}
		if !m.Material.HasTexture() {
			mat := material.NewColorMaterial(m.Material.BaseColor,
				material.WithSpecular(sc.Specular[0], sc.Specular[1]),
				material.WithTransparent(m.Material.Transparent),
			)
			out = append(out, centreObject{obj: object.NewShape(mesh, mat), target: mesh})
			continue
		}
		tex, err := material.LoadTexture(ctx, m.Material.Texture, m.Material.TexturePath, m.Material.Repeat)
		if err != nil {
			mesh.Destroy()
			return out, fmt.Errorf("texture for mesh %s: %w", m.Name, err)
		}
		d.textures = append(d.textures, tex)
		mat := material.NewTextureMaterial(tex,
			material.WithSpecular(sc.Specular[0], sc.Specular[1]),
			material.WithTransparent(m.Material.Transparent),
		)
		out = append(out, centreObject{obj: object.NewShape(mesh, mat), target: mesh})
	}
	d.log.Info("model loaded", zap.String("path", sc.Model), zap.Int("meshes", len(out)))
	return out, nil
}

// fitModel returns a copy of the model recentred on the origin with its largest extent scaled to size.
func fitModel(m *loader.Model, size float32) *loader.Model {
	bounds := m.AABB()
	if bounds.IsEmpty() {
		return m
	}
	extent := bounds.Size()
	largest := max(extent.X(), extent.Y(), extent.Z())
	if largest <= 0 {
		return m
	}
	scale := size / largest
	centre := bounds.Center()

	out := &loader.Model{Name: m.Name, Meshes: make([]loader.Mesh, len(m.Meshes))}
	for i, mesh := range m.Meshes {
		cpu := mesh.CPU
		cpu.Positions = make([]mgl32.Vec3, len(mesh.CPU.Positions))
		for j, p := range mesh.CPU.Positions {
			cpu.Positions[j] = p.Sub(centre).Mul(scale)
		}
		out.Meshes[i] = loader.Mesh{Name: mesh.Name, CPU: cpu, Material: mesh.Material}
	}
	return out
}

// toggleShadows flips shadow casting on every light that can cast them.
func (d *demo) toggleShadows() error {
	for _, l := range d.pipeline.Lights() {
		if !l.CanCastShadows() {
			continue
		}
		if l.IsShadowsEnabled() {
			l.DisableShadows()
			continue
		}
		if err := l.EnableShadows(); err != nil {
			return err
		}
	}
	return nil
}

// togglePointLights flips every point light slot on or off.
func (d *demo) togglePointLights() {
	for i := range d.cfg.Point {
		l, err := d.pipeline.PointLight(i)
		if err != nil {
			return
		}
		l.SetEnabled(!l.Enabled())
	}
}

// togglePause stops or resumes the centre object's spin.
func (d *demo) togglePause() {
	d.paused = !d.paused
	speed := mgl32.Vec3{0, d.cfg.Scene.Spin, 0}
	if d.paused {
		speed = mgl32.Vec3{}
	}
	for _, g := range d.spinning {
		g.SetRotationSpeed(speed)
	}
}

func (d *demo) destroy() {
	if d.scene != nil {
		d.scene.Destroy()
	}
	for _, t := range d.textures {
		t.Destroy()
	}
	d.textures = nil
	if d.pipeline != nil {
		d.pipeline.Destroy()
	}
}
