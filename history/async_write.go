package history

import (
	"context"
	"sync"
	"time"

	"nftgen/logging"

	"go.uber.org/zap"
)

const (
	DefaultChannelCapacity = 100
	DefaultDrainTimeout    = 30 * time.Second
	writeTimeout           = 5 * time.Second
)

// writeOp is a queued store call.
type writeOp struct {
	name string
	fn   func(ctx context.Context, s *Store) error
}

// AsyncWriter applies store writes on a background goroutine so request
// handlers never wait on SQLite. When the queue is full the write runs
// inline.
type AsyncWriter struct {
	store  *Store
	logger *logging.Logger

	ops    chan writeOp
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewAsyncWriter starts the background writer for store.
func NewAsyncWriter(store *Store, logger *logging.Logger) *AsyncWriter {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &AsyncWriter{
		store:  store,
		logger: logger.Named("history"),
		ops:    make(chan writeOp, DefaultChannelCapacity),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()
	for op := range w.ops {
		w.apply(op)
	}
}

func (w *AsyncWriter) apply(op writeOp) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := op.fn(ctx, w.store); err != nil {
		w.logger.Warn("history write failed", zap.String("op", op.name), zap.Error(err))
	}
}

func (w *AsyncWriter) enqueue(op writeOp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ops <- op:
	default:
		w.apply(op)
	}
}

// Started records a new generation in the generating state.
func (w *AsyncWriter) Started(g Generation) {
	w.enqueue(writeOp{name: "insert", fn: func(ctx context.Context, s *Store) error {
		_, err := s.Insert(ctx, g)
		return err
	}})
}

// Finished records the outcome of generation id.
func (w *AsyncWriter) Finished(id, status, mode, outputPath string, processing time.Duration, genErr error) {
	w.enqueue(writeOp{name: "finish", fn: func(ctx context.Context, s *Store) error {
		return s.Finish(ctx, id, status, mode, outputPath, processing, genErr)
	}})
}

// Annotate merges fields into the metadata of generation id.
func (w *AsyncWriter) Annotate(id string, fields map[string]any) {
	w.enqueue(writeOp{name: "annotate", fn: func(ctx context.Context, s *Store) error {
		return s.MergeMetadata(ctx, id, fields)
	}})
}

// Pending returns the number of queued writes.
func (w *AsyncWriter) Pending() int {
	return len(w.ops)
}

// Close drains queued writes, waiting at most timeout. It reports whether
// the drain completed.
func (w *AsyncWriter) Close(timeout time.Duration) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return true
	}
	w.closed = true
	close(w.ops)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
