package wgpuctx

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// textureObject is a texture with its default view. Colour textures also own the sampler
// their program bindings use.
type textureObject struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	format  gpu.TextureFormat
	width   uint32
	height  uint32
}

func (t *textureObject) release() {
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// renderTarget groups attachments of one size. The default target's colour attachment is
// resolved per frame.
type renderTarget struct {
	colors        []*textureObject
	depth         *textureObject
	width, height int
}

// textureFormat maps an engine texel format to its WebGPU format.
func textureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gpu.TextureFormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case gpu.TextureFormatDepth32F:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// newTexture allocates a texture, its view and, for colour textures, its sampler, then
// uploads any initial pixels.
func (c *contextImpl) newTexture(desc gpu.TextureDescriptor) (*textureObject, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q has zero size", desc.Label)
	}
	if desc.Data != nil {
		if desc.Format != gpu.TextureFormatRGBA8 {
			return nil, fmt.Errorf("texture %q: initial data is only supported for RGBA8", desc.Label)
		}
		if want := int(desc.Width * desc.Height * 4); len(desc.Data) != want {
			return nil, fmt.Errorf("texture %q: expected %d bytes of pixel data, got %d", desc.Label, want, len(desc.Data))
		}
	}

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.RenderAttachment {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	size := wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1}
	tex, err := c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        textureFormat(desc.Format),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}
	t := &textureObject{texture: tex, format: desc.Format, width: desc.Width, height: desc.Height}

	if t.view, err = tex.CreateView(nil); err != nil {
		t.release()
		return nil, fmt.Errorf("failed to create view of texture %q: %w", desc.Label, err)
	}

	if !desc.Format.IsDepth() {
		address := wgpu.AddressModeClampToEdge
		if desc.Repeat {
			address = wgpu.AddressModeRepeat
		}
		t.sampler, err = c.device.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         desc.Label + " Sampler",
			AddressModeU:  address,
			AddressModeV:  address,
			AddressModeW:  address,
			MagFilter:     wgpu.FilterModeLinear,
			MinFilter:     wgpu.FilterModeLinear,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			t.release()
			return nil, fmt.Errorf("failed to create sampler of texture %q: %w", desc.Label, err)
		}
	}

	if desc.Data != nil {
		c.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			desc.Data,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Width * 4,
				RowsPerImage: desc.Height,
			},
			&size,
		)
	}
	return t, nil
}

func (c *contextImpl) CreateTexture(desc gpu.TextureDescriptor) (gpu.TextureID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.newTexture(desc)
	if err != nil {
		return 0, err
	}
	id := gpu.TextureID(c.newID())
	c.textures[id] = t
	return id, nil
}

func (c *contextImpl) DeleteTexture(id gpu.TextureID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.textures[id]
	if !ok {
		return
	}
	t.release()
	delete(c.textures, id)
}

func (c *contextImpl) TextureSize(id gpu.TextureID) (uint32, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.textures[id]
	if !ok {
		return 0, 0
	}
	return t.width, t.height
}

func (c *contextImpl) CreateRenderTarget(colors []gpu.TextureID, depth gpu.TextureID) (gpu.RenderTargetID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rt := &renderTarget{width: -1}
	attach := func(id gpu.TextureID) (*textureObject, error) {
		t, ok := c.textures[id]
		if !ok {
			return nil, fmt.Errorf("unknown texture %d", id)
		}
		w, h := int(t.width), int(t.height)
		if rt.width >= 0 && (w != rt.width || h != rt.height) {
			return nil, fmt.Errorf("attachment %d is %dx%d, expected %dx%d", id, w, h, rt.width, rt.height)
		}
		rt.width, rt.height = w, h
		return t, nil
	}
	for _, id := range colors {
		t, err := attach(id)
		if err != nil {
			return 0, err
		}
		if t.format.IsDepth() {
			return 0, fmt.Errorf("texture %d cannot be a colour attachment", id)
		}
		rt.colors = append(rt.colors, t)
	}
	if depth != 0 {
		t, err := attach(depth)
		if err != nil {
			return 0, err
		}
		if !t.format.IsDepth() {
			return 0, fmt.Errorf("texture %d cannot be a depth attachment", depth)
		}
		rt.depth = t
	}
	if rt.width < 0 {
		return 0, fmt.Errorf("render target has no attachments")
	}
	id := gpu.RenderTargetID(c.newID())
	c.targets[id] = rt
	return id, nil
}

func (c *contextImpl) DeleteRenderTarget(id gpu.RenderTargetID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.targets, id)
	if c.current == id {
		c.current = gpu.DefaultRenderTarget
	}
}

func (c *contextImpl) BindRenderTarget(id gpu.RenderTargetID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != gpu.DefaultRenderTarget {
		if _, ok := c.targets[id]; !ok {
			return fmt.Errorf("unknown render target %d", id)
		}
	}
	c.current = id
	return nil
}

// attachments resolves the bound target into views and formats, acquiring the surface
// image of the default target if this frame has not done so yet.
func (c *contextImpl) attachments() (views []*wgpu.TextureView, formats []wgpu.TextureFormat, depth *textureObject, release func(), err error) {
	release = func() {}
	if rt, ok := c.targets[c.current]; ok {
		for _, t := range rt.colors {
			views = append(views, t.view)
			formats = append(formats, textureFormat(t.format))
		}
		return views, formats, rt.depth, release, nil
	}

	if c.surface == nil {
		t := c.frame.colors[0]
		return []*wgpu.TextureView{t.view}, []wgpu.TextureFormat{textureFormat(t.format)}, c.frame.depth, release, nil
	}
	if c.surfaceTexture == nil {
		tex, err := c.surface.GetCurrentTexture()
		if err != nil {
			return nil, nil, nil, release, fmt.Errorf("failed to acquire surface image: %w", err)
		}
		c.surfaceTexture = tex
	}
	view, err := c.surfaceTexture.CreateView(nil)
	if err != nil {
		return nil, nil, nil, release, fmt.Errorf("failed to create surface view: %w", err)
	}
	return []*wgpu.TextureView{view}, []wgpu.TextureFormat{c.surfaceFormat}, c.frame.depth, view.Release, nil
}
