package program_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/program"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const colorFragment = `//@oxy:kernel geometry_color
//@oxy:include gbuffer
//@oxy:input pos
//@oxy:input nor
//@oxy:uniform surface_color vec4

@fragment
fn fs_main(in: VertexOutput) -> GBufferOutput {
    var out: GBufferOutput;
    out.position = vec4<f32>(in.pos, 0.0);
    out.normal = vec4<f32>(in.nor, 0.0);
    out.color = uniforms.surface_color;
    return out;
}
`

func sourceFor(t *testing.T, c program.Capability, fragment string, calls *int) program.SourceFunc {
	return func() (string, string, program.Requirements, error) {
		*calls++
		req, err := program.ParseRequirements(fragment)
		if err != nil {
			return "", "", req, err
		}
		vs, err := program.VertexSource(c, req)
		return vs, fragment, req, err
	}
}

func TestParseRequirements(t *testing.T) {
	req, err := program.ParseRequirements(colorFragment)
	require.NoError(t, err)
	assert.Equal(t, program.Requirements{Normals: true}, req)

	_, err = program.ParseRequirements("//@oxy:input nor\n@fragment fn fs_main() {}")
	var compileErr *program.ShaderCompileError
	assert.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Message, "pos")
}

func TestVertexSourceDeclaresOnlyRequiredStreams(t *testing.T) {
	tests := []struct {
		name      string
		cap       program.Capability
		req       program.Requirements
		kernel    string
		attrs     []string
		instanced bool
	}{
		{"static position only", program.Capability{}, program.Requirements{}, "mesh", []string{"position"}, false},
		{"static normals", program.Capability{Normals: true, UVs: true}, program.Requirements{Normals: true}, "mesh", []string{"position", "normal"}, false},
		{"instanced all", program.Capability{Instanced: true}, program.Requirements{Normals: true, UVs: true}, "instanced_mesh", []string{"position", "normal", "uv_coordinates", "instance_model", "instance_normal"}, true},
		{"instanced depth", program.Capability{Instanced: true}, program.Requirements{}, "instanced_mesh", []string{"position", "instance_model"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs, err := program.VertexSource(tt.cap, tt.req)
			require.NoError(t, err)
			p, err := shader.Compile(vs, "@fragment fn fs_main() {}")
			require.NoError(t, err)

			r := p.Reflection
			assert.Equal(t, tt.kernel, r.VertexKernel)
			var names []string
			for _, a := range r.Attributes {
				names = append(names, a.Name)
			}
			assert.ElementsMatch(t, tt.attrs, names)
			_, ok := r.Block("camera")
			assert.True(t, ok)
			assert.Equal(t, tt.req.Normals, contains(r.Inputs, shader.InputNormal))
			assert.Equal(t, tt.req.UVs, contains(r.Inputs, shader.InputUV))
			if tt.instanced {
				assert.Contains(t, p.VertexSource, "@location(6) instance_model_3: vec4<f32>")
				assert.Equal(t, tt.req.Normals, strings.Contains(p.VertexSource, "@location(10) instance_normal_3: vec4<f32>"))
			}
		})
	}
}

func contains(in []shader.AnnotationArg, v shader.AnnotationArg) bool {
	for _, x := range in {
		if x == v {
			return true
		}
	}
	return false
}

func TestCacheSharesPrograms(t *testing.T) {
	dev := soft.New(4, 4)
	cache := program.NewCache(dev)
	sig := program.Signature{Material: "color", Geometry: program.Capability{Normals: true}}

	calls := 0
	const users = 5
	handles := make([]*program.Handle, users)
	for i := range handles {
		h, err := cache.Acquire(sig, sourceFor(t, sig.Geometry, colorFragment, &calls))
		require.NoError(t, err)
		handles[i] = h
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Compiles())
	assert.Equal(t, 1, dev.Stats().ProgramsCreated)
	assert.Equal(t, users, cache.Users(sig))
	for _, h := range handles[1:] {
		assert.Same(t, handles[0].Program(), h.Program())
	}
	assert.Equal(t, program.Requirements{Normals: true}, handles[0].Program().Requirements)

	for _, h := range handles[:users-1] {
		h.Release()
		h.Release()
	}
	assert.Equal(t, 1, cache.Users(sig))
	assert.Equal(t, 1, dev.LivePrograms())

	handles[users-1].Release()
	assert.Zero(t, cache.Len())
	assert.Zero(t, dev.LivePrograms())
	assert.Equal(t, 1, dev.Stats().ProgramsDeleted)

	h, err := cache.Acquire(sig, sourceFor(t, sig.Geometry, colorFragment, &calls))
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, 2, calls, "released signature compiles again")
	assert.Equal(t, 2, cache.Compiles())
}

func TestCacheDistinctSignatures(t *testing.T) {
	dev := soft.New(4, 4)
	cache := program.NewCache(dev)
	calls := 0

	static := program.Signature{Material: "color", Geometry: program.Capability{Normals: true}}
	instanced := program.Signature{Material: "color", Geometry: program.Capability{Instanced: true, Normals: true}}

	a, err := cache.Acquire(static, sourceFor(t, static.Geometry, colorFragment, &calls))
	require.NoError(t, err)
	b, err := cache.Acquire(instanced, sourceFor(t, instanced.Geometry, colorFragment, &calls))
	require.NoError(t, err)

	assert.NotEqual(t, a.Program().ID, b.Program().ID)
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Zero(t, dev.LivePrograms())
	a.Release()
	b.Release()
	assert.Equal(t, 2, dev.Stats().ProgramsDeleted, "handles are inert after Clear")
}

func TestCacheCompileFailureLeavesNoEntry(t *testing.T) {
	dev := soft.New(4, 4)
	cache := program.NewCache(dev)
	sig := program.Signature{Material: "custom:broken"}

	broken := "//@oxy:kernel no_such_kernel\n//@oxy:input pos\n@fragment fn fs_main() {}"
	calls := 0
	h, err := cache.Acquire(sig, sourceFor(t, sig.Geometry, broken, &calls))
	assert.Nil(t, h)
	var compileErr *program.ShaderCompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Contains(t, compileErr.Message, "no_such_kernel")
	assert.Zero(t, cache.Len())
	assert.Zero(t, cache.Users(sig))

	_, err = cache.Acquire(sig, sourceFor(t, sig.Geometry, broken, &calls))
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "failures are not cached")
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "static", program.Capability{}.String())
	assert.Equal(t, "instanced+normals+uvs", program.Capability{Instanced: true, Normals: true, UVs: true}.String())
	assert.Equal(t, "texture/static+uvs", program.Signature{Material: "texture", Geometry: program.Capability{UVs: true}}.String())
}
