package imagegen

import (
	"context"
	"fmt"
	"image"
	"sync"

	"nftgen/imaging"
	"nftgen/logging"
	"nftgen/sdruntime"

	"go.uber.org/zap"
)

// Options are the caller-facing knobs of a generation.
type Options struct {
	Prompt        string
	Strength      float64
	GuidanceScale float64
	Steps         int
	Seed          int64
}

// DefaultOptions returns strength 0.7, guidance 7.5, 20 steps and a random
// seed.
func DefaultOptions(prompt string) Options {
	return Options{
		Prompt:        prompt,
		Strength:      sdruntime.DefaultStrength,
		GuidanceScale: sdruntime.DefaultGuidanceScale,
		Steps:         sdruntime.DefaultSteps,
		Seed:          -1,
	}
}

// Pipeline runs image-to-image generations against one Provider. Inputs
// are always resized to 512x512 and sent with sdruntime.NegativePrompt.
type Pipeline struct {
	provider Provider
	logger   *logging.Logger

	mu     sync.Mutex
	loaded bool
}

// NewPipeline wraps provider. The backend is not touched until the first
// Load or Generate, so constructing a pipeline for a backend with missing
// dependencies succeeds; CheckDependencies reports them. A nil logger
// discards output.
func NewPipeline(provider Provider, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		provider: provider,
		logger:   logger.Named("imagegen"),
	}
}

// Provider returns the backend.
func (p *Pipeline) Provider() Provider {
	return p.provider
}

// CheckDependencies returns a *MissingDependenciesError naming every
// prerequisite the backend lacks, or nil.
func (p *Pipeline) CheckDependencies(ctx context.Context) error {
	if missing := p.provider.Missing(ctx); len(missing) > 0 {
		return &MissingDependenciesError{Provider: p.provider.Name(), Missing: missing}
	}
	return nil
}

// Load prepares the backend once. A failed load is retried on the next call.
func (p *Pipeline) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}
	if err := p.CheckDependencies(ctx); err != nil {
		return err
	}
	p.logger.Info("loading backend", zap.String("provider", p.provider.Name()))
	if err := p.provider.Load(ctx); err != nil {
		return fmt.Errorf("load %s backend: %w", p.provider.Name(), err)
	}
	p.loaded = true
	return nil
}

// Loaded reports whether Load has succeeded.
func (p *Pipeline) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Generate loads the backend if needed, resizes src to the working
// resolution with bicubic sampling, and returns the first generated image.
// Strength and guidance outside their nominal range are logged and sent as
// given.
func (p *Pipeline) Generate(ctx context.Context, src image.Image, opts Options) (*image.RGBA, error) {
	if err := sdruntime.ValidatePrompt(opts.Prompt); err != nil {
		return nil, err
	}
	if opts.Steps < sdruntime.MinSteps {
		return nil, fmt.Errorf("%w: steps %d must be at least %d", sdruntime.ErrInvalidParams, opts.Steps, sdruntime.MinSteps)
	}
	for _, w := range sdruntime.RangeWarnings(opts.Strength, opts.GuidanceScale) {
		p.logger.Warn(w)
	}

	if err := p.Load(ctx); err != nil {
		return nil, err
	}

	init := imaging.Bicubic(src, sdruntime.DefaultImageSize, sdruntime.DefaultImageSize)
	out, err := p.provider.Img2Img(ctx, Request{
		InitImage:      init,
		Prompt:         opts.Prompt,
		NegativePrompt: sdruntime.NegativePrompt,
		Strength:       opts.Strength,
		GuidanceScale:  opts.GuidanceScale,
		Steps:          opts.Steps,
		Seed:           opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

// Transform reads inputPath, generates, and writes the result to outputPath
// as PNG, creating its parent directory.
func (p *Pipeline) Transform(ctx context.Context, inputPath, outputPath string, opts Options) error {
	src, err := imaging.DecodeFile(inputPath)
	if err != nil {
		return err
	}

	p.logger.Info("generating",
		zap.String("input", inputPath),
		zap.String("provider", p.provider.Name()),
		zap.Float64("strength", opts.Strength),
		zap.Float64("guidance_scale", opts.GuidanceScale),
		zap.Int("steps", opts.Steps))

	out, err := p.Generate(ctx, src, opts)
	if err != nil {
		return err
	}
	if err := imaging.SavePNG(outputPath, out); err != nil {
		return err
	}
	p.logger.Info("saved", zap.String("output", outputPath))
	return nil
}

// Close releases the backend.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = false
	return p.provider.Close()
}
