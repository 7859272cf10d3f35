package sdruntime

import "errors"

// Model loading.
var (
	ErrModelNotFound      = errors.New("sdruntime: model file not found")
	ErrModelLoadFailed    = errors.New("sdruntime: model load failed")
	ErrModelCorrupted     = errors.New("sdruntime: model file is not a valid checkpoint")
	ErrRuntimeUnavailable = errors.New("sdruntime: built without the stable-diffusion runtime")
)

// Generation. Returned errors wrap these with detail; match with errors.Is.
var (
	ErrGenerationFailed  = errors.New("sdruntime: generation failed")
	ErrGenerationTimeout = errors.New("sdruntime: generation timed out")
	ErrInvalidPrompt     = errors.New("sdruntime: invalid prompt")
	ErrInvalidParams     = errors.New("sdruntime: invalid generation parameters")
)

// Context pool.
var (
	ErrContextPoolClosed = errors.New("sdruntime: context pool closed")
	ErrAcquireTimeout    = errors.New("sdruntime: no free context before deadline")
)
