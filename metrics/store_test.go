package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(style, mode, status string, d time.Duration) GenerationRecord {
	return GenerationRecord{Style: style, Mode: mode, Status: status, Duration: d, StartTime: time.Now()}
}

func TestStore_Stats(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), time.Now())

	s.RecordGeneration(record("anime", ModeDiffusion, StatusSuccess, 2*time.Second))
	s.RecordGeneration(record("anime", ModeBasic, StatusSuccess, 4*time.Second))
	s.RecordGeneration(record("cyberpunk", ModeDiffusion, StatusError, time.Second))

	stats := s.Stats()
	assert.Equal(t, int64(3), stats.TotalProcessed)
	assert.Equal(t, int64(2), stats.TotalSuccess)
	assert.Equal(t, int64(1), stats.TotalErrors)
	assert.Equal(t, int64(1), stats.TotalFallbacks)

	require.Contains(t, stats.ByStyle, "anime")
	anime := stats.ByStyle["anime"]
	assert.Equal(t, int64(2), anime.Count)
	assert.InDelta(t, 100.0, anime.SuccessRate, 0.001)
	assert.Equal(t, 3*time.Second, anime.AvgDuration)

	assert.InDelta(t, 0.0, stats.ByStyle["cyberpunk"].SuccessRate, 0.001)
}

func TestStore_RecentWrapsRing(t *testing.T) {
	s := NewStore(StoreConfig{HistoryCapacity: 3}, time.Now())
	for _, style := range []string{"a", "b", "c", "d", "e"} {
		s.RecordGeneration(record(style, ModeDiffusion, StatusSuccess, 0))
	}

	recent := s.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Style)
	assert.Equal(t, "e", recent[2].Style)

	recent = s.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "e", recent[0].Style)

	assert.Empty(t, s.Recent(0))
}

func TestStore_SystemStatus(t *testing.T) {
	s := NewStore(StoreConfig{HistoryCapacity: 20, Version: "1.2.3", Provider: "local"}, time.Now().Add(-time.Minute))

	st := s.SystemStatus()
	assert.Equal(t, SystemHealthRunning, st.Health)
	assert.Equal(t, "1.2.3", st.Version)
	assert.Equal(t, "local", st.Provider)
	assert.GreaterOrEqual(t, st.Uptime, time.Minute)

	s.RecordGeneration(record("anime", ModeDiffusion, StatusSuccess, 0))
	for i := 0; i < degradedWindow; i++ {
		s.RecordGeneration(record("anime", ModeDiffusion, StatusError, 0))
	}
	assert.Equal(t, SystemHealthDegraded, s.SystemStatus().Health)

	s.RecordGeneration(record("anime", ModeBasic, StatusSuccess, 0))
	assert.Equal(t, SystemHealthRunning, s.SystemStatus().Health)
}

func TestStore_GPU(t *testing.T) {
	s := NewStore(DefaultStoreConfig(), time.Now())
	_, ok := s.GPU()
	assert.False(t, ok)

	s.UpdateGPU(GPUMetrics{Utilization: 42, MemoryTotal: 8 << 30})
	gpu, ok := s.GPU()
	assert.True(t, ok)
	assert.Equal(t, 42.0, gpu.Utilization)
}

func TestMulti_SkipsNil(t *testing.T) {
	a := NewStore(DefaultStoreConfig(), time.Now())
	b := NewStore(DefaultStoreConfig(), time.Now())

	Multi{a, nil, b}.RecordGeneration(record("anime", ModeDiffusion, StatusSuccess, 0))

	assert.Equal(t, int64(1), a.Stats().TotalProcessed)
	assert.Equal(t, int64(1), b.Stats().TotalProcessed)
}
