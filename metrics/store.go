package metrics

import (
	"sync"
	"time"
)

type styleStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures Store.
type StoreConfig struct {
	HistoryCapacity int
	Version         string
	Provider        string
}

// DefaultStoreConfig keeps the last 100 generations.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{HistoryCapacity: 100, Version: "0.0.0"}
}

// Store keeps recent generations in a ring buffer plus running totals.
type Store struct {
	mu sync.RWMutex

	recent *ring[GenerationRecord]

	total     int64
	success   int64
	errors    int64
	fallbacks int64
	byStyle   map[string]*styleStats

	gpu          GPUMetrics
	gpuAvailable bool

	startTime time.Time
	version   string
	provider  string
}

// NewStore returns an empty Store. Uptime is measured from startTime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		recent:    newRing[GenerationRecord](capacity),
		byStyle:   make(map[string]*styleStats),
		startTime: startTime,
		version:   config.Version,
		provider:  config.Provider,
	}
}

// RecordGeneration adds rec. A successful basic-mode record counts as a
// fallback from diffusion.
func (s *Store) RecordGeneration(rec GenerationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent.push(rec)

	s.total++
	switch rec.Status {
	case StatusSuccess:
		s.success++
		if rec.Mode == ModeBasic {
			s.fallbacks++
		}
	case StatusError:
		s.errors++
	}

	st, ok := s.byStyle[rec.Style]
	if !ok {
		st = &styleStats{}
		s.byStyle[rec.Style] = st
	}
	st.count++
	if rec.Status == StatusSuccess {
		st.successCount++
	}
	st.totalDuration += rec.Duration
}

// Stats returns the running totals.
func (s *Store) Stats() GenerationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := GenerationStats{
		TotalProcessed: s.total,
		TotalSuccess:   s.success,
		TotalErrors:    s.errors,
		TotalFallbacks: s.fallbacks,
		ByStyle:        make(map[string]*StyleStats, len(s.byStyle)),
	}
	for style, st := range s.byStyle {
		ss := &StyleStats{Count: st.count}
		if st.count > 0 {
			ss.SuccessRate = float64(st.successCount) / float64(st.count) * 100
			ss.AvgDuration = st.totalDuration / time.Duration(st.count)
		}
		out.ByStyle[style] = ss
	}
	return out
}

// Recent returns up to limit records, oldest first.
func (s *Store) Recent(limit int) []GenerationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recent.last(limit)
}

// UpdateGPU stores the latest GPU sample.
func (s *Store) UpdateGPU(gpu GPUMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpu = gpu
	s.gpuAvailable = true
}

// GPU returns the latest sample and whether one has been taken.
func (s *Store) GPU() (GPUMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gpu, s.gpuAvailable
}

// degradedWindow is how many of the latest records must all fail before
// the service reports degraded.
const degradedWindow = 5

// SystemStatus reports degraded when every recent record failed.
func (s *Store) SystemStatus() SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := SystemHealthRunning
	if window := s.recent.last(degradedWindow); len(window) > 0 && allFailed(window) {
		health = SystemHealthDegraded
	}

	return SystemStatus{
		Health:    health,
		Version:   s.version,
		Provider:  s.provider,
		Uptime:    time.Since(s.startTime),
		LastCheck: time.Now(),
	}
}

func allFailed(recs []GenerationRecord) bool {
	for _, r := range recs {
		if r.Status != StatusError {
			return false
		}
	}
	return true
}
