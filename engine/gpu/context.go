// Package gpu defines the graphics context the engine renders through.
//
// The engine never talks to a graphics API directly. Every buffer upload, program
// compilation, uniform binding and draw goes through a Context, which lets the same
// pipeline run on WebGPU hardware (engine/gpu/wgpuctx) or on the CPU reference
// device (engine/gpu/soft).
//
// Programs are written in WGSL with @oxy: annotations (see engine/shader). Both
// implementations compile the annotated source with shader.Compile and address
// attributes, uniforms, uniform blocks and textures by the names declared there.
package gpu

// Context is the low-level graphics context collaborator.
//
// A Context is not safe for concurrent use. All calls happen on the thread that owns it.
type Context interface {
	// CreateBuffer allocates a new, empty buffer handle.
	//
	// Returns:
	//   - BufferID: the new buffer
	//   - error: an error if the handle could not be created
	CreateBuffer() (BufferID, error)

	// DeleteBuffer releases a buffer handle. Unknown or zero handles are ignored.
	//
	// Parameters:
	//   - id: the buffer to release
	DeleteBuffer(id BufferID)

	// BindBuffer attaches a buffer to a binding point so that BufferData writes into it.
	//
	// Parameters:
	//   - target: the binding point
	//   - id: the buffer to bind
	BindBuffer(target BufferTarget, id BufferID)

	// UnbindBuffer detaches whatever buffer is bound at target.
	//
	// Parameters:
	//   - target: the binding point
	UnbindBuffer(target BufferTarget)

	// BufferData replaces the contents of the buffer bound at target.
	//
	// Parameters:
	//   - target: the binding point whose buffer receives the data
	//   - data: the bytes to upload, may be empty
	//   - usage: the usage hint for this upload
	//
	// Returns:
	//   - error: an error if no buffer is bound at target
	BufferData(target BufferTarget, data []byte, usage Usage) error

	// CreateProgram compiles a vertex and fragment source pair into a program.
	//
	// Parameters:
	//   - vertexSource: annotated WGSL vertex stage
	//   - fragmentSource: annotated WGSL fragment stage
	//
	// Returns:
	//   - ProgramID: the compiled program
	//   - error: the compiler diagnostic on failure
	CreateProgram(vertexSource, fragmentSource string) (ProgramID, error)

	// DeleteProgram releases a program. Unknown or zero handles are ignored.
	//
	// Parameters:
	//   - id: the program to release
	DeleteProgram(id ProgramID)

	// SetUniformFloat sets a scalar float uniform declared by the program.
	SetUniformFloat(program ProgramID, name string, v float32) error

	// SetUniformInt sets a scalar integer uniform declared by the program.
	SetUniformInt(program ProgramID, name string, v int32) error

	// SetUniformVec2 sets a two-component uniform declared by the program.
	SetUniformVec2(program ProgramID, name string, v [2]float32) error

	// SetUniformVec3 sets a three-component uniform declared by the program.
	SetUniformVec3(program ProgramID, name string, v [3]float32) error

	// SetUniformVec4 sets a four-component uniform declared by the program.
	SetUniformVec4(program ProgramID, name string, v [4]float32) error

	// SetUniformMat4 sets a column-major 4x4 matrix uniform declared by the program.
	SetUniformMat4(program ProgramID, name string, v [16]float32) error

	// UseUniformBlock binds a uniform buffer to a named block of the program.
	//
	// Parameters:
	//   - program: the program declaring the block
	//   - name: the block variable name
	//   - buffer: the buffer holding the block data
	//
	// Returns:
	//   - error: an error if the program does not declare the block
	UseUniformBlock(program ProgramID, name string, buffer BufferID) error

	// UseTexture binds a texture to a named texture slot of the program.
	//
	// Parameters:
	//   - program: the program declaring the texture
	//   - name: the texture variable name
	//   - texture: the texture to sample
	//
	// Returns:
	//   - error: an error if the program does not declare the texture
	UseTexture(program ProgramID, name string, texture TextureID) error

	// UseAttribute binds a buffer as a per-vertex attribute stream of the program.
	//
	// Parameters:
	//   - program: the program declaring the attribute
	//   - name: the attribute name
	//   - buffer: the buffer holding tightly packed float32 components
	//
	// Returns:
	//   - error: an error if the program does not declare the attribute
	UseAttribute(program ProgramID, name string, buffer BufferID) error

	// UseInstanceAttribute binds a buffer as a per-instance attribute stream of the program.
	//
	// Parameters:
	//   - program: the program declaring the attribute
	//   - name: the attribute name
	//   - buffer: the buffer holding tightly packed float32 components
	//
	// Returns:
	//   - error: an error if the program does not declare the instance attribute
	UseInstanceAttribute(program ProgramID, name string, buffer BufferID) error

	// CreateTexture allocates a texture, optionally filled with initial pixels.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - TextureID: the new texture
	//   - error: an error if the description is invalid
	CreateTexture(desc TextureDescriptor) (TextureID, error)

	// DeleteTexture releases a texture. Unknown or zero handles are ignored.
	DeleteTexture(id TextureID)

	// TextureSize returns the dimensions of a texture.
	//
	// Returns:
	//   - width, height: the texture size in texels, zero for unknown textures
	TextureSize(id TextureID) (width, height uint32)

	// CreateRenderTarget groups textures into an off-screen target. All attachments must share one size.
	//
	// Parameters:
	//   - colors: colour attachments in location order, may be empty for depth-only targets
	//   - depth: the depth attachment, or zero for none
	//
	// Returns:
	//   - RenderTargetID: the new target
	//   - error: an error if the attachments are incompatible
	CreateRenderTarget(colors []TextureID, depth TextureID) (RenderTargetID, error)

	// DeleteRenderTarget releases a render target. Its textures are not released.
	DeleteRenderTarget(id RenderTargetID)

	// BindRenderTarget selects the target for following Clear and Draw calls.
	// DefaultRenderTarget selects the context's framebuffer.
	//
	// Returns:
	//   - error: an error if the target is unknown
	BindRenderTarget(id RenderTargetID) error

	// FramebufferSize returns the current size of the context's framebuffer.
	//
	// Returns:
	//   - width, height: the framebuffer size in pixels
	FramebufferSize() (width, height int)

	// Clear resets attachments of the bound render target.
	//
	// Parameters:
	//   - values: which attachments to clear and their values
	//
	// Returns:
	//   - error: an error if the clear could not be issued
	Clear(values ClearValues) error

	// Draw rasterizes geometry with a program into the bound render target.
	//
	// Parameters:
	//   - program: the program to draw with
	//   - states: fixed-function state for this draw
	//   - call: the vertex, index and instance counts
	//
	// Returns:
	//   - error: an error if a declared input is unbound or the draw could not be issued
	Draw(program ProgramID, states RenderStates, call DrawCall) error
}
