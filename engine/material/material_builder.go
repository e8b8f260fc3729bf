package material

// MaterialBuilderOption is a function that configures the shared settings of a material
// during construction.
type MaterialBuilderOption func(*settings)

// settings are the options every built-in material accepts.
type settings struct {
	surface     Surface
	transparent bool
}

func applyOptions(opts []MaterialBuilderOption) settings {
	s := settings{surface: DefaultSurface}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithSurface is an option builder that replaces the whole Phong response.
//
// Parameters:
//   - surface: the response
//
// Returns:
//   - MaterialBuilderOption: a function that applies the surface option
func WithSurface(surface Surface) MaterialBuilderOption {
	return func(s *settings) {
		s.surface = surface
	}
}

// WithDiffuse is an option builder that sets the diffuse intensity.
//
// Parameters:
//   - diffuse: the diffuse intensity
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse option
func WithDiffuse(diffuse float32) MaterialBuilderOption {
	return func(s *settings) {
		s.surface.Diffuse = diffuse
	}
}

// WithSpecular is an option builder that sets the specular intensity and exponent.
//
// Parameters:
//   - intensity: the specular intensity
//   - power: the specular exponent
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option
func WithSpecular(intensity, power float32) MaterialBuilderOption {
	return func(s *settings) {
		s.surface.Specular = intensity
		s.surface.Power = power
	}
}

// WithTransparent is an option builder that flags the material as transparent regardless
// of its colour.
//
// Parameters:
//   - transparent: true to exclude the material from the geometry pass
//
// Returns:
//   - MaterialBuilderOption: a function that applies the transparency option
func WithTransparent(transparent bool) MaterialBuilderOption {
	return func(s *settings) {
		s.transparent = transparent
	}
}
