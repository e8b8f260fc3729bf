package soft

// DeviceBuilderOption is a function that configures a Device during construction.
type DeviceBuilderOption func(*Device)

// WithWorkers is an option builder that sets how many pool workers shade large render targets.
// A value of 1 rasterizes every draw on the calling goroutine.
//
// Parameters:
//   - n: the worker count, values below 1 are treated as 1
//
// Returns:
//   - DeviceBuilderOption: a function that applies the workers option to a Device
func WithWorkers(n int) DeviceBuilderOption {
	return func(d *Device) {
		d.workers = max(n, 1)
	}
}

// WithMaxBuffers is an option builder that caps the number of live buffers. CreateBuffer
// fails once the cap is reached, which lets callers exercise allocation failure paths.
//
// Parameters:
//   - n: the maximum number of live buffers, zero for no limit
//
// Returns:
//   - DeviceBuilderOption: a function that applies the buffer limit option to a Device
func WithMaxBuffers(n int) DeviceBuilderOption {
	return func(d *Device) {
		d.maxBuffers = n
	}
}

// WithMaxTextures is an option builder that caps the number of live textures. CreateTexture
// fails once the cap is reached.
//
// Parameters:
//   - n: the maximum number of live textures, zero for no limit
//
// Returns:
//   - DeviceBuilderOption: a function that applies the texture limit option to a Device
func WithMaxTextures(n int) DeviceBuilderOption {
	return func(d *Device) {
		d.maxTextures = n
	}
}
