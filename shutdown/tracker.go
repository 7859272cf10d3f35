package shutdown

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrTrackerClosed = errors.New("shutdown: not accepting new operations")
	ErrWaitTimeout   = errors.New("shutdown: operations did not finish in time")
)

// Tracker counts in-flight operations. The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	n      int64
	closed bool
	idle   chan struct{} // closed when n drops back to zero
}

// Start registers an operation. It returns false once Close was called.
func (t *Tracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	return true
}

// Done ends an operation begun with a successful Start.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

// Wait blocks until no operation is in flight. It returns ErrWaitTimeout if
// ctx ends first.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ErrWaitTimeout
	}
}

// Close rejects further Starts. Operations already running are unaffected.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Active returns the number of operations in flight.
func (t *Tracker) Active() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// IsClosed reports whether Close has been called.
func (t *Tracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
