// Bindings for stable-diffusion.cpp.
//
// Without the "sd" build tag (or without cgo) the stub implementation is
// compiled: models are checked for existence but never run, and Available
// reports false. To link the real library:
//
//	CGO_CFLAGS="-I/path/to/stable-diffusion.cpp/include" \
//	CGO_LDFLAGS="-L/path/to/stable-diffusion.cpp/build -lstable-diffusion" \
//	go build -tags sd
package sdruntime

import "image"

// SDContext is an opaque handle to a loaded model. The C pointer is owned by
// the build-specific implementation and looked up by id.
type SDContext struct {
	id        uint64
	modelPath string
	valid     bool
}

// IsValid reports whether the context can still be used.
func (c *SDContext) IsValid() bool {
	if c == nil {
		return false
	}
	return c.valid
}

// ModelPath returns the model file the context was created from.
func (c *SDContext) ModelPath() string {
	if c == nil {
		return ""
	}
	return c.modelPath
}

// LoadOptions control how a model is placed on the device.
type LoadOptions struct {
	Threads int // 0 lets the runtime pick
	Plan    DevicePlan
}

// Available reports whether a real diffusion runtime is linked in.
func Available() bool {
	return runtimeAvailable
}

// LoadModel loads a checkpoint (.safetensors or .ckpt) and returns a context
// that must be released with FreeContext.
func LoadModel(modelPath string, opts LoadOptions) (*SDContext, error) {
	return loadModelImpl(modelPath, opts)
}

// Img2Img runs one image-to-image generation on ctx. Params are validated
// first; the seed must already be resolved.
func Img2Img(ctx *SDContext, params Img2ImgParams) (*image.RGBA, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	return img2imgImpl(ctx, params)
}

// FreeContext releases ctx. Nil or already freed contexts are ignored.
func FreeContext(ctx *SDContext) {
	freeContextImpl(ctx)
}

// GetBackendInfo describes the compute backend compiled into the runtime.
func GetBackendInfo() string {
	return getBackendInfoImpl()
}
