package sdruntime

import (
	"context"
	"fmt"
	"image"
	"sync"

	"golang.org/x/sync/semaphore"
)

// PooledContext is an SDContext checked out of a ContextPool. It must be
// handed back with Release.
type PooledContext struct {
	*SDContext
}

// binding is the set of runtime calls the pool drives. Tests swap it for a
// fake; production uses the cgo or stub bindings.
type binding struct {
	load    func(modelPath string, opts LoadOptions) (*SDContext, error)
	img2img func(ctx *SDContext, params Img2ImgParams) (*image.RGBA, error)
	free    func(ctx *SDContext)
}

var defaultBinding = binding{load: LoadModel, img2img: Img2Img, free: FreeContext}

// ContextPool bounds concurrent generations to the number of model contexts
// the device can hold. Contexts load on first use and are kept idle between
// generations.
type ContextPool struct {
	slots     *semaphore.Weighted
	modelPath string
	opts      LoadOptions
	rt        binding

	mu     sync.Mutex
	idle   []*SDContext
	live   int
	closed bool
}

// NewContextPool creates a pool of at most size contexts for modelPath.
// Nothing is loaded until the first Acquire.
func NewContextPool(size int, modelPath string, opts LoadOptions) (*ContextPool, error) {
	return newContextPool(size, modelPath, opts, defaultBinding)
}

func newContextPool(size int, modelPath string, opts LoadOptions, rt binding) (*ContextPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: pool size %d must be positive", ErrInvalidParams, size)
	}
	return &ContextPool{
		slots:     semaphore.NewWeighted(int64(size)),
		modelPath: modelPath,
		opts:      opts,
		rt:        rt,
	}, nil
}

// Warm loads one context so the first request does not wait for it.
func (p *ContextPool) Warm(ctx context.Context) error {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	p.Release(pc)
	return nil
}

// Img2Img validates params, resolves a random seed and runs the generation
// on a pooled context. When ctx ends first it returns ErrGenerationTimeout;
// the runtime call cannot be interrupted, so its context is released when
// the call returns.
func (p *ContextPool) Img2Img(ctx context.Context, params Img2ImgParams) (*image.RGBA, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	params.Seed = ResolveSeed(params.Seed)

	pc, err := p.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire context: %w", err)
	}

	type outcome struct {
		img *image.RGBA
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer p.Release(pc)
		img, err := p.rt.img2img(pc.SDContext, params)
		done <- outcome{img, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("img2img: %w", o.err)
		}
		return o.img, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
	}
}

// Acquire waits for a free slot and returns an idle context, loading one
// when none is idle.
func (p *ContextPool) Acquire(ctx context.Context) (*PooledContext, error) {
	if p.isClosed() {
		return nil, ErrContextPoolClosed
	}
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquireTimeout, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.slots.Release(1)
		return nil, ErrContextPoolClosed
	}
	if n := len(p.idle); n > 0 {
		sd := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return &PooledContext{sd}, nil
	}
	p.live++
	p.mu.Unlock()

	sd, err := p.rt.load(p.modelPath, p.opts)
	if err != nil {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		p.slots.Release(1)
		return nil, err
	}
	return &PooledContext{sd}, nil
}

// Release returns pc to the pool, freeing it instead when the pool is
// closed. Nil is ignored.
func (p *ContextPool) Release(pc *PooledContext) {
	if pc == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.live--
		p.mu.Unlock()
		p.rt.free(pc.SDContext)
	} else {
		p.idle = append(p.idle, pc.SDContext)
		p.mu.Unlock()
	}
	p.slots.Release(1)
}

// Close frees idle contexts and rejects further Acquires. Checked-out
// contexts are freed as they are released.
func (p *ContextPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.live -= len(idle)
	p.mu.Unlock()

	for _, sd := range idle {
		p.rt.free(sd)
	}
	return nil
}

func (p *ContextPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Size is the number of idle contexts.
func (p *ContextPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Created is the number of loaded contexts, idle or checked out.
func (p *ContextPool) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}
