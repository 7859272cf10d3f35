package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_RecordGeneration(t *testing.T) {
	p := NewPrometheus("test_gen")

	p.RecordGeneration(record("anime", ModeDiffusion, StatusSuccess, time.Second))
	p.RecordGeneration(record("anime", ModeBasic, StatusSuccess, time.Second))
	p.RecordGeneration(record("anime", ModeDiffusion, StatusError, time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.generationsTotal.WithLabelValues("anime", ModeDiffusion, StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.generationsTotal.WithLabelValues("anime", ModeDiffusion, StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fallbacksTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(p.generationDuration))
}

func TestPrometheus_InFlight(t *testing.T) {
	p := NewPrometheus("test_inflight")

	done1 := p.GenerationStarted()
	done2 := p.GenerationStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(p.inFlight))

	done1()
	done2()
	assert.Equal(t, 0.0, testutil.ToFloat64(p.inFlight))
}

func TestPrometheus_HTTPAndGPU(t *testing.T) {
	p := NewPrometheus("test_http")

	p.RecordHTTPRequest(http.MethodPost, "/api/generate", http.StatusOK, 50*time.Millisecond)
	p.RecordHTTPRequest(http.MethodPost, "/api/generate", http.StatusOK, 70*time.Millisecond)
	p.RecordRateLimited()
	p.UpdateGPU(GPUMetrics{Utilization: 55, Temperature: 61, MemoryUsed: 1024, MemoryTotal: 4096})

	assert.Equal(t, 2.0, testutil.ToFloat64(p.httpRequestsTotal.WithLabelValues("POST", "/api/generate", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rateLimitedTotal))
	assert.Equal(t, 55.0, testutil.ToFloat64(p.gpuUtilization))
	assert.Equal(t, 4096.0, testutil.ToFloat64(p.gpuMemoryTotal))
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus("test_handler")
	p.RecordGeneration(record("pixel_art", ModeDiffusion, StatusSuccess, time.Second))

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `test_handler_generations_total{mode="diffusion",status="success",style="pixel_art"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
