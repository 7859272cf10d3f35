package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"nftgen/core"
	"nftgen/core/validation"
	"nftgen/history"
	"nftgen/imagegen"
	"nftgen/ipfs"
	"nftgen/logging"
	"nftgen/metrics"
	"nftgen/sdruntime"
	"nftgen/shutdown"
	"nftgen/styles"
	"nftgen/webui"
	"nftgen/webui/auth"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app is the assembled generation service. newApp registers every resource
// it opens with the shutdown manager, so callers only run and shut down.
type app struct {
	cfg      *core.Config
	logger   *logging.Logger
	shutdown *shutdown.Manager

	pipeline *imagegen.Pipeline
	store    *history.Store
	server   *webui.Server
}

func newApp(cfg *core.Config, logger *logging.Logger, mgr *shutdown.Manager) (*app, error) {
	a := &app{cfg: cfg, logger: logger, shutdown: mgr}

	prompts, err := styles.LoadPromptTable(cfg.StylesFile)
	if err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp("", "nftgen-staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	mgr.Register("staging", shutdown.PriorityFiles, shutdown.RemoveDir(logger, staging))
	mgr.Register("partial-writes", shutdown.PriorityFiles, shutdown.RemoveGlob(logger, cfg.ModelsDir, ".*.tmp"))

	sdCfg := sdruntime.LoadSDConfig()
	provider, err := imagegen.NewProvider(cfg, sdCfg, logger)
	if err != nil {
		return nil, err
	}
	a.pipeline = imagegen.NewPipeline(provider, logger)
	mgr.Register("backend", shutdown.PriorityBackend, func(context.Context) error {
		return a.pipeline.Close()
	})

	if cfg.HistoryDB != "" {
		a.store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		mgr.Register("history", shutdown.PriorityStorage, func(context.Context) error {
			return a.store.Close()
		})
	}

	var keys *auth.APIKeyMiddleware
	if cfg.APIKeyHash != "" {
		keys, err = auth.NewAPIKeyMiddleware(cfg.APIKeyHash, logger)
		if err != nil {
			return nil, fmt.Errorf("NFTGEN_API_KEY_HASH: %w", err)
		}
	}

	var pinning *ipfs.Client
	if cfg.NFTStorageAPIKey != "" {
		pinning, err = ipfs.NewClient(ipfs.Config{
			APIKey:   cfg.NFTStorageAPIKey,
			Endpoint: cfg.NFTStorageURL,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	gpu := metrics.NewNVMLReader(0)
	mgr.Register("nvml", shutdown.PriorityTelemetry, func(context.Context) error {
		gpu.Close()
		return nil
	})

	serverCfg := webui.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.MaxUploadBytes = cfg.MaxUploadBytes()
	serverCfg.MaxConcurrent = cfg.MaxConcurrent
	serverCfg.RateLimitRPS = cfg.RateLimitRPS
	serverCfg.RateLimitBurst = cfg.RateLimitBurst
	serverCfg.TrustProxy = core.ParseBoolEnv("NFTGEN_TRUST_PROXY", false)
	serverCfg.Provider = provider.Name()
	serverCfg.TempDir = staging

	a.server, err = webui.NewServer(serverCfg, webui.Deps{
		Diffuser: a.pipeline,
		Prompts:  prompts,
		History:  a.store,
		Stats: metrics.NewStore(metrics.StoreConfig{
			HistoryCapacity: 100,
			Version:         core.Version,
			Provider:        provider.Name(),
		}, time.Now()),
		Prometheus: metrics.NewPrometheus("nftgen"),
		GPUReader:  gpu,
		Auth:       keys,
		Logger:     logger,
		IPFS:       pinning,
	})
	if err != nil {
		return nil, err
	}
	mgr.Register("http", shutdown.PriorityServer, a.server.Shutdown)

	logger.Info("service configured",
		zap.String("provider", provider.Name()),
		zap.String("addr", cfg.Addr()),
		zap.String("history", cfg.HistoryDB),
		zap.Bool("auth", keys != nil),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.String("log_file", logger.LogFilePath()),
	)
	return a, nil
}

// startupChecks lists the checks run before serving. The backend check is
// optional: without a backend every request uses the filter fallback.
func (a *app) startupChecks() []validation.Check {
	checks := []validation.Check{
		validation.EnvFileCheck(".env"),
		validation.ConfigCheck(a.cfg),
		validation.DependencyCheck(a.pipeline.Provider().Name(), a.pipeline, true),
	}
	if a.cfg.Provider == core.ProviderLocal {
		checks = append(checks,
			validation.WritableDirCheck("Models Directory", a.cfg.ModelsDir),
			validation.DiskSpaceCheck(a.cfg.ModelsDir, core.DefaultSDModel.SizeBytes))
	}
	if a.cfg.HistoryDB != "" {
		checks = append(checks, validation.Check{
			Name: "History Database",
			Run: func(ctx context.Context) (string, error) {
				n, err := a.store.Count(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d generations recorded in %s", n, a.store.Path()), nil
			},
		})
	}
	return checks
}

// preload loads the diffusion backend in the background so the first
// request does not pay for it. Failures are logged; requests fall back to
// the filters until a later load succeeds.
func (a *app) preload() {
	a.shutdown.Go("preload", func(ctx context.Context) error {
		if err := a.pipeline.CheckDependencies(ctx); err != nil {
			a.logger.Warn("diffusion unavailable, using filter fallback", zap.Error(err))
			return nil
		}
		start := time.Now()
		if err := a.pipeline.Load(ctx); err != nil {
			return err
		}
		a.logger.Info("diffusion backend loaded", zap.Duration("took", time.Since(start)))
		return nil
	})
}

// run serves on ln, or on the configured address when ln is nil, until
// the manager's context ends or the server fails.
func (a *app) run(ln net.Listener) error {
	ctx := a.shutdown.Context()
	a.preload()

	var err error
	if ln != nil {
		err = a.server.Serve(ctx, ln)
	} else {
		err = a.server.Start(ctx)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		a.logger.Error("server failed", zap.Error(err))
		a.shutdown.Trigger()
	}
	return multierr.Append(err, a.shutdown.Shutdown())
}
