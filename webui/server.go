// Package webui serves the generation API: uploads are stylized through the
// diffusion backend with a filter fallback, and progress is pushed to
// websocket clients.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"nftgen/core"
	"nftgen/history"
	"nftgen/imagegen"
	"nftgen/ipfs"
	"nftgen/logging"
	"nftgen/metrics"
	"nftgen/styles"
	"nftgen/webui/auth"
	"nftgen/webui/static"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ServerConfig configures Server.
type ServerConfig struct {
	Host string
	Port int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // must cover a full diffusion run
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxUploadBytes int64
	MaxConcurrent  int // concurrent diffusion runs
	RateLimitRPS   float64
	RateLimitBurst int
	TrustProxy     bool

	// Provider names the diffusion backend in responses.
	Provider string
	// TempDir holds per-request staging directories. Empty means os.TempDir.
	TempDir string

	DefaultLimit int
	MaxLimit     int
	LogSkipPaths []string
}

// DefaultServerConfig returns the settings used when the environment
// leaves them unset.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            5000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    15 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxUploadBytes:  10 << 20,
		MaxConcurrent:   1,
		RateLimitRPS:    1,
		RateLimitBurst:  5,
		DefaultLimit:    20,
		MaxLimit:        100,
		LogSkipPaths:    []string{"/health", "/metrics"},
	}
}

// Deps are the collaborators of Server. Everything but Logger may be nil:
// a nil Diffuser always falls back to the style filters, a nil History
// disables /api/generations, and so on.
type Deps struct {
	Diffuser   Diffuser
	Prompts    *styles.PromptTable
	History    *history.Store
	Stats      *metrics.Store
	Prometheus *metrics.Prometheus
	GPUReader  metrics.GPUReader
	Auth       *auth.APIKeyMiddleware
	Logger     *logging.Logger

	// Downloader fetches imageUrl sources. Nil uses a default bounded by
	// MaxUploadBytes.
	Downloader *imagegen.Downloader
	// IPFS pins images and metadata. Nil makes the /api/ipfs routes
	// answer that no API key is configured.
	IPFS *ipfs.Client
}

// Server is the HTTP front end of the generation service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	logger     *logging.Logger
	started    time.Time

	diffuser   Diffuser
	prompts    *styles.PromptTable
	sem        *semaphore.Weighted
	downloader *imagegen.Downloader
	ipfs       *ipfs.Client

	store    *history.Store
	history  *history.AsyncWriter
	stats    *metrics.Store
	prom     *metrics.Prometheus
	recorder metrics.Recorder
	gpu      *metrics.GPUCollector

	auth        *auth.APIKeyMiddleware
	limiter     *RateLimiter
	loggingMw   *LoggingMiddleware
	broadcaster *WebSocketBroadcaster

	shutdownOnce sync.Once
	shutdownErr  error
}

var apiRoutes = []string{
	"/api/generate", "/api/styles", "/api/generations", "/api/stats",
	"/api/ipfs/metadata", "/api/ipfs/image",
	"/health", "/metrics", "/ws", "/",
}

// NewServer wires deps into a Server and registers its routes. Zero
// config values fall back to DefaultServerConfig. It does not listen;
// see Start and Serve.
func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	def := DefaultServerConfig()
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = def.MaxUploadBytes
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	if config.DefaultLimit < 1 {
		config.DefaultLimit = def.DefaultLimit
	}
	if config.MaxLimit < 1 {
		config.MaxLimit = def.MaxLimit
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}
	if config.Provider == "" {
		config.Provider = "none"
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	prompts := deps.Prompts
	if prompts == nil {
		prompts = styles.NewPromptTable()
	}
	downloader := deps.Downloader
	if downloader == nil {
		dlCfg := imagegen.DefaultDownloaderConfig()
		dlCfg.MaxBytes = config.MaxUploadBytes
		downloader = imagegen.NewDownloader(dlCfg)
	}

	s := &Server{
		mux:         http.NewServeMux(),
		config:      config,
		logger:      logger.Named("webui"),
		started:     time.Now(),
		diffuser:    deps.Diffuser,
		prompts:     prompts,
		sem:         semaphore.NewWeighted(int64(config.MaxConcurrent)),
		downloader:  downloader,
		ipfs:        deps.IPFS,
		store:       deps.History,
		stats:       deps.Stats,
		prom:        deps.Prometheus,
		auth:        deps.Auth,
		limiter:     NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst),
		broadcaster: NewWebSocketBroadcaster(DefaultBroadcasterConfig(), logger),
	}

	var recorders metrics.Multi
	if s.stats != nil {
		recorders = append(recorders, s.stats)
	}
	if s.prom != nil {
		recorders = append(recorders, s.prom)
	}
	s.recorder = recorders

	if s.store != nil {
		s.history = history.NewAsyncWriter(s.store, logger)
	}
	if deps.GPUReader != nil {
		s.gpu = metrics.NewGPUCollector(metrics.DefaultGPUCollectorConfig(), deps.GPUReader, s.onGPUSample)
	}

	var observer HTTPObserver
	if s.prom != nil {
		observer = s.prom
	}
	s.loggingMw = NewLoggingMiddleware(LoggingMiddlewareConfig{
		Logger:    logger,
		Observer:  observer,
		SkipPaths: config.LogSkipPaths,
		Routes:    apiRoutes,
	})

	s.broadcaster.OnConnect(s.statusMessage)
	s.setupRoutes()

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.rootHandler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	s.logger.Info("server created",
		zap.String("addr", addr),
		zap.String("provider", config.Provider),
		zap.Bool("auth_enabled", s.auth != nil),
		zap.Bool("history_enabled", s.store != nil),
		zap.Bool("ipfs_enabled", s.ipfs != nil),
		zap.Bool("rate_limited", s.limiter.Enabled()),
	)
	return s, nil
}

func (s *Server) setupRoutes() {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/generate", s.handleGenerate)
	api.HandleFunc("GET /api/styles", s.handleStyles)
	api.HandleFunc("GET /api/generations", s.handleGenerations)
	api.HandleFunc("GET /api/generations/{id}", s.handleGeneration)
	api.HandleFunc("GET /api/stats", s.handleStats)
	api.HandleFunc("POST /api/ipfs/metadata", s.handleIPFSMetadata)
	api.HandleFunc("POST /api/ipfs/image", s.handleIPFSImage)

	var protected http.Handler = api
	if s.auth != nil {
		protected = s.auth.Middleware(protected)
	}
	var onLimited func()
	if s.prom != nil {
		onLimited = s.prom.RecordRateLimited
	}
	protected = s.limiter.Middleware(protected, onLimited)
	s.mux.Handle("/api/", protected)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.prom != nil {
		s.mux.Handle("GET /metrics", s.prom.Handler())
	}
	s.mux.HandleFunc("GET /ws", s.broadcaster.HandleConnection)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

func (s *Server) rootHandler() http.Handler {
	h := s.loggingMw.Handler(s.mux)
	if s.config.TrustProxy {
		h = proxyHeaders(h)
	}
	return h
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := static.ReadFile("index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// Start listens on the configured address and serves until ctx is
// cancelled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server, the websocket broadcaster and the GPU sampler
// on ln, and shuts everything down when ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.broadcaster.Start(gctx)
		return nil
	})
	if s.limiter.Enabled() {
		s.limiter.StartCleanupTicker(gctx, time.Minute, 10*time.Minute)
	}
	if s.gpu != nil {
		s.gpu.Start(gctx)
	}

	g.Go(func() error {
		defer cancel()
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// configured timeout, then drains pending history writes. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.shutdownErr = fmt.Errorf("http shutdown: %w", err)
		}
		if s.gpu != nil {
			s.gpu.Stop()
		}
		if s.history != nil {
			pending := s.history.Pending()
			if !s.history.Close(history.DefaultDrainTimeout) {
				s.logger.Warn("history writes still pending at shutdown", zap.Int("queued_at_close", pending))
			}
		}
		s.logger.Info("server stopped")
	})
	return s.shutdownErr
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) onGPUSample(m metrics.GPUMetrics) {
	if s.stats != nil {
		s.stats.UpdateGPU(m)
	}
	if s.prom != nil {
		s.prom.UpdateGPU(m)
	}
	var pct float64
	if m.MemoryTotal > 0 {
		pct = float64(m.MemoryUsed) / float64(m.MemoryTotal) * 100
	}
	s.broadcaster.BroadcastGPUUpdate(GPUUpdateData{
		Utilization:   m.Utilization,
		Temperature:   m.Temperature,
		MemoryUsed:    m.MemoryUsed,
		MemoryTotal:   m.MemoryTotal,
		MemoryPercent: pct,
	})
}

func (s *Server) statusMessage() WSMessage {
	health := metrics.SystemHealthRunning
	uptime := time.Since(s.started)
	if s.stats != nil {
		st := s.stats.SystemStatus()
		health, uptime = st.Health, st.Uptime
	}
	return NewSystemStatusMessage(SystemStatusData{
		Health:   health,
		Version:  core.Version,
		Provider: s.config.Provider,
		Uptime:   FormatDuration(uptime),
	})
}
