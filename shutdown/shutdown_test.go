package shutdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"nftgen/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func testLogger(t *testing.T) *logging.Logger {
	return logging.FromZap(zaptest.NewLogger(t))
}

func TestRegistry_OrderAndErrors(t *testing.T) {
	r := NewRegistry()
	var order []string
	add := func(name string, prio int, err error) {
		r.Register(name, prio, func(context.Context) error {
			order = append(order, name)
			return err
		})
	}
	add("logs", 90, nil)
	add("db", 30, errors.New("locked"))
	add("server", 10, nil)
	add("pipeline", 20, errors.New("busy"))
	add("server-2", 10, nil)

	assert.Equal(t, []string{"server", "server-2", "pipeline", "db", "logs"}, r.Names())

	err := r.Shutdown(context.Background())
	assert.Equal(t, []string{"server", "server-2", "pipeline", "db", "logs"}, order)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.EqualError(t, errs[0], "pipeline: busy")
	assert.EqualError(t, errs[1], "db: locked")

	assert.NoError(t, r.Shutdown(context.Background()), "second call is a no-op")
	r.Register("late", 0, func(context.Context) error { return nil })
	assert.Equal(t, 5, r.Count())
}

func TestTracker(t *testing.T) {
	var tr Tracker
	require.True(t, tr.Start())
	assert.Equal(t, int64(1), tr.Active())
	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Wait(short), ErrWaitTimeout)

	done := make(chan error, 1)
	go func() { done <- tr.Wait(context.Background()) }()
	tr.Done()
	assert.NoError(t, <-done)
	assert.Equal(t, int64(0), tr.Active())

	// a second round gets a fresh idle channel
	require.True(t, tr.Start())
	tr.Done()
	assert.NoError(t, tr.Wait(context.Background()))

	tr.Close()
	assert.True(t, tr.IsClosed())
	assert.False(t, tr.Start())
}

func TestSignalCounter(t *testing.T) {
	forced := 0
	s := NewSignalCounter(2, func() { forced++ })
	assert.Equal(t, 1, s.Increment())
	assert.Equal(t, 0, forced)
	assert.Equal(t, 2, s.Increment())
	assert.Equal(t, 1, forced)
	assert.Equal(t, 2, s.Count())
}

func TestManager_ShutdownWaitsForBackgroundWork(t *testing.T) {
	m := NewManager(testLogger(t), WithTimeout(5*time.Second))

	var finished atomic.Bool
	release := make(chan struct{})
	require.True(t, m.Go("preload", func(ctx context.Context) error {
		<-release
		finished.Store(true)
		return nil
	}))
	assert.Equal(t, int64(1), m.ActiveOperations())

	var cleanedAfterWork atomic.Bool
	m.Register("backend", PriorityBackend, func(context.Context) error {
		cleanedAfterWork.Store(finished.Load())
		return nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, m.Shutdown())

	assert.True(t, cleanedAfterWork.Load())
	assert.True(t, m.IsShuttingDown())
	assert.Error(t, m.Context().Err())
	assert.False(t, m.Go("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, m.WrapOperation(context.Background(), "late", func(context.Context) error { return nil }), ErrTrackerClosed)
	assert.NoError(t, m.Shutdown())
}

func TestManager_WrapOperation(t *testing.T) {
	m := NewManager(testLogger(t))

	ran := false
	require.NoError(t, m.WrapOperation(context.Background(), "op", func(context.Context) error {
		ran = true
		assert.Equal(t, int64(1), m.ActiveOperations())
		return nil
	}))
	assert.True(t, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.WrapOperation(ctx, "op", func(context.Context) error { return nil }), context.Canceled)
}

func TestManager_SignalsCancelThenForce(t *testing.T) {
	exitCode := -1
	m := NewManager(testLogger(t), WithExit(func(code int) { exitCode = code }))

	m.handleSignal(syscall.SIGTERM)
	select {
	case <-m.Context().Done():
	default:
		t.Fatal("context not cancelled after first signal")
	}
	assert.Equal(t, -1, exitCode)

	m.handleSignal(syscall.SIGINT)
	assert.Equal(t, 1, exitCode)
}

func TestManager_Trigger(t *testing.T) {
	m := NewManager(testLogger(t))
	m.Trigger()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Trigger")
	}
}

func TestRemoveGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{".model.gguf.123.tmp", ".model.gguf.456.tmp", "model.gguf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.NoError(t, RemoveGlob(testLogger(t), dir, ".*.tmp")(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.gguf", entries[0].Name())
}

func TestRemoveDir(t *testing.T) {
	logger := testLogger(t)
	root := filepath.Join(t.TempDir(), "staging")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nftgen-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nftgen-1", "input.png"), []byte("x"), 0o644))

	require.NoError(t, RemoveDir(logger, root)(context.Background()))
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, RemoveDir(logger, root)(context.Background()), "missing dir is fine")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.NoError(t, RemoveDir(logger, file)(context.Background()))
	_, err = os.Stat(file)
	assert.NoError(t, err, "regular files are left alone")
}
