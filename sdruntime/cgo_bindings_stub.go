//go:build !sd || !cgo

package sdruntime

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync/atomic"
)

const runtimeAvailable = false

var stubIDs atomic.Uint64

// The stub accepts any readable file as a model so the pool and provider
// wiring can run; generation always reports ErrRuntimeUnavailable.
func loadModelImpl(modelPath string, _ LoadOptions) (*SDContext, error) {
	info, err := os.Stat(modelPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailed, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ErrModelLoadFailed, modelPath)
	}
	return &SDContext{id: stubIDs.Add(1), modelPath: modelPath, valid: true}, nil
}

func img2imgImpl(ctx *SDContext, _ Img2ImgParams) (*image.RGBA, error) {
	if !ctx.IsValid() {
		return nil, fmt.Errorf("%w: context is nil or freed", ErrGenerationFailed)
	}
	return nil, fmt.Errorf("%w: rebuild with CGO_ENABLED=1 -tags sd", ErrRuntimeUnavailable)
}

func freeContextImpl(ctx *SDContext) {
	if ctx != nil {
		ctx.valid = false
	}
}

func getBackendInfoImpl() string {
	return "none (stub build)"
}
