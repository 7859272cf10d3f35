package imagegen

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"nftgen/logging"
	"nftgen/sdruntime"

	"go.uber.org/zap"
)

// LocalProvider runs img2img in-process through sdruntime.
type LocalProvider struct {
	cfg    *sdruntime.SDConfig
	logger *logging.Logger

	pool *sdruntime.ContextPool

	// verify enables a full SHA-256 pass over the weights on Load.
	verify bool
}

// NewLocalProvider builds a provider for the weights at cfg.ModelPath.
// A cfg.ModelSHA256 is registered for the weights file and turns on
// verification regardless of verifyWeights.
func NewLocalProvider(cfg *sdruntime.SDConfig, logger *logging.Logger, verifyWeights bool) *LocalProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.ModelSHA256 != "" && cfg.ModelPath != "" {
		sdruntime.RegisterModelChecksum(filepath.Base(cfg.ModelPath), cfg.ModelSHA256)
		verifyWeights = true
	}
	return &LocalProvider{cfg: cfg, logger: logger.Named("local"), verify: verifyWeights}
}

// Name returns "local".
func (p *LocalProvider) Name() string { return "local" }

// Missing reports an unlinked runtime and absent weights.
func (p *LocalProvider) Missing(context.Context) []string {
	var missing []string
	if !sdruntime.Available() {
		missing = append(missing, "stable-diffusion runtime (rebuild with -tags sd)")
	}
	if p.cfg.ModelPath == "" {
		missing = append(missing, "model weights (set SD_MODEL_PATH or run with --download)")
	} else if _, err := os.Stat(p.cfg.ModelPath); err != nil {
		missing = append(missing, fmt.Sprintf("model weights (%s)", p.cfg.ModelPath))
	}
	return missing
}

// Load verifies the weights when enabled, picks the device and warms one
// runtime context.
func (p *LocalProvider) Load(ctx context.Context) error {
	if p.verify {
		if err := sdruntime.VerifyModelChecksum(p.cfg.ModelPath); err != nil {
			return err
		}
	}

	plan, err := sdruntime.SelectDevice(p.cfg.Device)
	if err != nil {
		return err
	}
	pool, err := sdruntime.NewContextPool(p.cfg.MaxConcurrent, p.cfg.ModelPath, sdruntime.LoadOptions{
		Threads: p.cfg.Threads,
		Plan:    plan,
	})
	if err != nil {
		return err
	}
	if err := pool.Warm(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("%w: %v", sdruntime.ErrModelLoadFailed, err)
	}
	p.pool = pool

	p.logger.Info("model loaded",
		zap.String("model_id", p.cfg.ModelID),
		zap.String("model_path", p.cfg.ModelPath),
		zap.Stringer("device", plan),
		zap.Bool("safety_checker", false),
		zap.String("backend", sdruntime.GetBackendInfo()))
	return nil
}

// Img2Img runs on a pooled context, bounded by cfg.Timeout.
func (p *LocalProvider) Img2Img(ctx context.Context, req Request) (*image.RGBA, error) {
	if p.pool == nil {
		return nil, ErrNotLoaded
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		p.logger.Debug("context pool",
			zap.Int("loaded", p.pool.Created()),
			zap.Int("idle", p.pool.Size()))
	}()
	return p.pool.Img2Img(ctx, sdruntime.Img2ImgParams{
		InitImage:      req.InitImage,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Strength:       req.Strength,
		GuidanceScale:  req.GuidanceScale,
		Steps:          req.Steps,
		Seed:           req.Seed,
	})
}

// Close frees every loaded context.
func (p *LocalProvider) Close() error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Close()
}

var _ Provider = (*LocalProvider)(nil)
