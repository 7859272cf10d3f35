// Package imagegen turns an input image and a prompt into a new image with a
// diffusion backend.
//
// A Provider is one backend: the local stable-diffusion runtime, an
// AUTOMATIC1111-compatible HTTP server, or the OpenAI image edit endpoint.
// Pipeline wraps a Provider with the dependency check, lazy load, input
// resize and output save shared by every caller.
package imagegen

import (
	"context"
	"image"
)

// Request is one image-to-image job as a Provider receives it. InitImage is
// already resized to the working resolution.
type Request struct {
	InitImage      *image.RGBA
	Prompt         string
	NegativePrompt string
	Strength       float64
	GuidanceScale  float64
	Steps          int
	Seed           int64 // negative for random
}

// Provider is an image-to-image backend.
type Provider interface {
	// Name identifies the backend in logs and responses.
	Name() string

	// Missing names the prerequisites that are not satisfied. An empty
	// result means Load can be attempted.
	Missing(ctx context.Context) []string

	// Load prepares the backend. Pipeline calls it at most once successfully.
	Load(ctx context.Context) error

	// Img2Img runs one generation and returns the first image produced.
	Img2Img(ctx context.Context, req Request) (*image.RGBA, error)

	// Close releases anything Load acquired.
	Close() error
}
