package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGPUReader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeGPUReader) ReadGPUMetrics() (GPUMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return GPUMetrics{}, f.err
	}
	return GPUMetrics{Utilization: float64(f.calls), MemoryTotal: 1 << 30}, nil
}

func TestGPUCollector_CollectsHistory(t *testing.T) {
	reader := &fakeGPUReader{}
	store := NewStore(DefaultStoreConfig(), time.Now())
	c := NewGPUCollector(GPUCollectorConfig{CollectionInterval: time.Hour, HistorySize: 2}, reader, store.UpdateGPU)

	c.collectOnce()
	c.collectOnce()
	c.collectOnce()

	assert.True(t, c.IsAvailable())
	assert.NoError(t, c.LastError())
	assert.Equal(t, 3.0, c.Current().Utilization)

	hist := c.History(10)
	require.Len(t, hist, 2)
	assert.Equal(t, 2.0, hist[0].Utilization)
	assert.Equal(t, 3.0, hist[1].Utilization)

	gpu, ok := store.GPU()
	assert.True(t, ok)
	assert.Equal(t, 3.0, gpu.Utilization)
}

func TestGPUCollector_ReaderError(t *testing.T) {
	reader := &fakeGPUReader{err: errors.New("no device")}
	called := false
	c := NewGPUCollector(DefaultGPUCollectorConfig(), reader, func(GPUMetrics) { called = true })

	c.collectOnce()

	assert.False(t, c.IsAvailable())
	assert.EqualError(t, c.LastError(), "no device")
	assert.False(t, called)
	assert.Empty(t, c.History(5))
}

func TestGPUCollector_StartStop(t *testing.T) {
	reader := &fakeGPUReader{}
	c := NewGPUCollector(GPUCollectorConfig{CollectionInterval: 10 * time.Millisecond, HistorySize: 10}, reader, nil)

	c.Start(context.Background())
	require.Eventually(t, func() bool { return len(c.History(10)) >= 2 }, time.Second, 5*time.Millisecond)
	c.Stop()

	reader.mu.Lock()
	calls := reader.calls
	reader.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, calls, reader.calls)
}
