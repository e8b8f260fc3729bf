package material

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrTextureDestroyed is returned when a material is bound with a destroyed texture.
var ErrTextureDestroyed = errors.New("texture has been destroyed")

// Texture owns one RGBA8 texture on a graphics context.
type Texture struct {
	ctx           gpu.Context
	id            gpu.TextureID
	width, height uint32
	destroyed     bool
}

// NewTexture uploads decoded pixels as a texture.
//
// Parameters:
//   - ctx: the graphics context
//   - data: RGBA pixels, 4 bytes per texel
//   - repeat: true to wrap texture coordinates outside [0, 1]
//
// Returns:
//   - *Texture: the texture
//   - error: an error if the texture could not be created
func NewTexture(ctx gpu.Context, data common.TextureStagingData, repeat bool) (*Texture, error) {
	id, err := ctx.CreateTexture(gpu.TextureDescriptor{
		Label:  "Material Texture",
		Width:  data.Width,
		Height: data.Height,
		Format: gpu.TextureFormatRGBA8,
		Data:   data.Pixels,
		Repeat: repeat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture: %w", err)
	}
	return &Texture{ctx: ctx, id: id, width: data.Width, height: data.Height}, nil
}

// LoadTexture decodes an encoded image, from data or from path when data is empty, and uploads it.
//
// Parameters:
//   - ctx: the graphics context
//   - data: encoded image bytes, may be nil
//   - path: image file path used when data is empty
//   - repeat: true to wrap texture coordinates outside [0, 1]
//
// Returns:
//   - *Texture: the texture
//   - error: an error if decoding or upload failed
func LoadTexture(ctx gpu.Context, data []byte, path string, repeat bool) (*Texture, error) {
	staging, err := common.DecodeTexture(data, path)
	if err != nil {
		return nil, err
	}
	return NewTexture(ctx, staging, repeat)
}

// ID returns the texture handle.
func (t *Texture) ID() gpu.TextureID {
	return t.id
}

// Size returns the texture dimensions in texels.
func (t *Texture) Size() (width, height uint32) {
	return t.width, t.height
}

// Destroy releases the texture. Later calls are no-ops.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.ctx.DeleteTexture(t.id)
}

// TextureMaterial shades a surface with a texture modulated by a tint.
type TextureMaterial struct {
	// Texture is the sampled colour texture. It is shared, not owned.
	Texture *Texture

	// Tint multiplies the sampled colour.
	Tint mgl32.Vec4

	// Surface is the Phong response.
	Surface Surface

	// Transparent forces the material out of the geometry pass.
	Transparent bool
}

var _ Material = TextureMaterial{}

// NewTextureMaterial creates a textured material with a white tint.
//
// Parameters:
//   - tex: the colour texture
//   - opts: variadic list of MaterialBuilderOption functions
//
// Returns:
//   - TextureMaterial: the material
func NewTextureMaterial(tex *Texture, opts ...MaterialBuilderOption) TextureMaterial {
	s := applyOptions(opts)
	return TextureMaterial{
		Texture:     tex,
		Tint:        mgl32.Vec4{1, 1, 1, 1},
		Surface:     s.surface,
		Transparent: s.transparent,
	}
}

func (m TextureMaterial) Kind() string {
	return KindTexture
}

func (m TextureMaterial) FragmentSource() string {
	return textureFragmentSource
}

func (m TextureMaterial) Bind(ctx gpu.Context, p *program.Program) error {
	if m.Texture == nil || m.Texture.destroyed {
		return ErrTextureDestroyed
	}
	if err := ctx.UseTexture(p.ID, "surface_texture", m.Texture.id); err != nil {
		return fmt.Errorf("failed to bind surface texture: %w", err)
	}
	if err := bindColor(ctx, p, m.Tint); err != nil {
		return err
	}
	return m.Surface.bind(ctx, p)
}

func (m TextureMaterial) IsTransparent() bool {
	return m.Transparent || m.Tint[3] < 1
}

func (m TextureMaterial) RenderStates() gpu.RenderStates {
	return gpu.DefaultRenderStates()
}
