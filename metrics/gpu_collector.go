package metrics

import (
	"context"
	"sync"
	"time"
)

// GPUReader samples GPU state.
type GPUReader interface {
	ReadGPUMetrics() (GPUMetrics, error)
}

// GPUCollectorConfig sets the sampling interval and how many samples are
// kept; the default keeps one hour at 5s intervals.
type GPUCollectorConfig struct {
	CollectionInterval time.Duration
	HistorySize        int
}

// DefaultGPUCollectorConfig samples every five seconds and keeps an hour
// of history.
func DefaultGPUCollectorConfig() GPUCollectorConfig {
	return GPUCollectorConfig{CollectionInterval: 5 * time.Second, HistorySize: 720}
}

// GPUCollector polls a GPUReader and forwards each good sample to a sink,
// usually Store.UpdateGPU.
type GPUCollector struct {
	interval time.Duration
	reader   GPUReader
	sink     func(GPUMetrics)

	mu      sync.RWMutex
	samples *ring[GPUMetrics]
	latest  GPUMetrics
	err     error
	ok      bool

	stop context.CancelFunc
	done chan struct{}
}

// NewGPUCollector reads through reader, or NVML device 0 when reader is nil.
// sink may be nil.
func NewGPUCollector(cfg GPUCollectorConfig, reader GPUReader, sink func(GPUMetrics)) *GPUCollector {
	def := DefaultGPUCollectorConfig()
	if cfg.CollectionInterval <= 0 {
		cfg.CollectionInterval = def.CollectionInterval
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = def.HistorySize
	}
	if reader == nil {
		reader = NewNVMLReader(0)
	}
	return &GPUCollector{
		interval: cfg.CollectionInterval,
		reader:   reader,
		sink:     sink,
		samples:  newRing[GPUMetrics](cfg.HistorySize),
	}
}

// Start samples once right away, then every interval until ctx ends or Stop
// is called.
func (c *GPUCollector) Start(ctx context.Context) {
	ctx, c.stop = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			c.collectOnce()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

// Stop ends sampling and waits for the loop to exit.
func (c *GPUCollector) Stop() {
	if c.stop == nil {
		return
	}
	c.stop()
	<-c.done
}

// IsAvailable reports whether the last read succeeded.
func (c *GPUCollector) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ok
}

func (c *GPUCollector) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *GPUCollector) Current() GPUMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// History returns up to limit samples, oldest first.
func (c *GPUCollector) History(limit int) []GPUMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.samples.last(limit)
}

func (c *GPUCollector) collectOnce() {
	m, err := c.reader.ReadGPUMetrics()

	c.mu.Lock()
	c.ok, c.err = err == nil, err
	if err == nil {
		c.latest = m
		c.samples.push(m)
	}
	c.mu.Unlock()

	if err == nil && c.sink != nil {
		c.sink(m)
	}
}
