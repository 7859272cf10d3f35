// Package shutdown coordinates graceful process exit: the first SIGINT or
// SIGTERM cancels the manager's context, background operations get a grace
// period, then cleanup functions run in priority order. A second signal
// exits immediately.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"nftgen/core"
	"nftgen/logging"

	"go.uber.org/zap"
)

// Cleanup priorities used by the service.
const (
	PriorityServer    = 10 // stop accepting work
	PriorityBackend   = 20 // release model contexts
	PriorityStorage   = 30 // close databases
	PriorityFiles     = 40 // remove staging files
	PriorityTelemetry = 90 // flush logs last
)

// Manager coordinates graceful shutdown: it cancels the shared context,
// waits for tracked operations and then runs cleanups by priority.
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(code int)

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  Tracker
	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds the whole shutdown sequence. Default 60s.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithExit replaces os.Exit for the forced-exit path.
func WithExit(fn func(code int)) Option {
	return func(m *Manager) { m.exit = fn }
}

// NewManager returns a Manager with a 60 second budget. Call Start to
// listen for signals.
func NewManager(logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  60 * time.Second,
		exit:     os.Exit,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("second signal received, exiting immediately")
		m.exit(core.ExitCodeError)
	})
	return m
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function; see the Priority constants.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered cleanup", zap.String("name", name), zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	if m.signals.Increment() == 1 {
		m.logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
		m.cancel()
	}
}

// Trigger begins shutdown without a signal, e.g. when the server fails.
func (m *Manager) Trigger() {
	m.cancel()
}

// Go runs fn in the background as a tracked operation. Shutdown waits for
// it before running cleanups. fn receives the manager context.
func (m *Manager) Go(name string, fn func(ctx context.Context) error) bool {
	if !m.tracker.Start() {
		m.logger.Debug("operation rejected, shutting down", zap.String("operation", name))
		return false
	}
	go func() {
		defer m.tracker.Done()
		if err := fn(m.ctx); err != nil && m.ctx.Err() == nil {
			m.logger.Warn("background operation failed", zap.String("operation", name), zap.Error(err))
		}
	}()
	return true
}

// WrapOperation runs fn synchronously as a tracked operation.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// Shutdown cancels the context, waits for tracked operations, then runs
// cleanups with whatever time remains (at least one second). Only the first
// call does anything.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	begin := time.Now()
	m.cancel()
	m.tracker.Close()

	if n := m.tracker.Active(); n > 0 {
		m.logger.Info("waiting for background operations", zap.Int64("active", n))
	}
	waitCtx, cancelWait := context.WithTimeout(context.Background(), m.timeout)
	if err := m.tracker.Wait(waitCtx); err != nil {
		m.logger.Warn("background operations still running", zap.Int64("active", m.tracker.Active()))
	}
	cancelWait()

	remaining := m.timeout - time.Since(begin)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("running cleanups", zap.Strings("handlers", m.registry.Names()))
	err := m.registry.Shutdown(ctx)
	if err != nil {
		m.logger.Error("shutdown finished with errors", zap.Duration("duration", time.Since(begin)), zap.Error(err))
	} else {
		m.logger.Info("shutdown complete", zap.Duration("duration", time.Since(begin)))
	}

	if started {
		signal.Stop(m.sigChan)
	}
	return err
}

// Wait blocks until shutdown begins.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// ActiveOperations returns the number of running tracked operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.Active()
}

// IsShuttingDown reports whether Shutdown has been called.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// RegisteredHandlers lists cleanup names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
