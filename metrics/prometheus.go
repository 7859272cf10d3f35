package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus holds the service collectors on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	fallbacksTotal     prometheus.Counter
	inFlight           prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitedTotal    prometheus.Counter

	gpuUtilization prometheus.Gauge
	gpuMemoryUsed  prometheus.Gauge
	gpuMemoryTotal prometheus.Gauge
	gpuTemperature prometheus.Gauge
}

// NewPrometheus registers the collectors under namespace, plus the Go
// runtime and process collectors.
func NewPrometheus(namespace string) *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		generationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations by style, mode and status",
		}, []string{"style", "mode", "status"}),

		generationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation wall time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),

		fallbacksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diffusion_fallbacks_total",
			Help:      "Requests served by the filter pipeline after diffusion failed",
		}),

		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generations_in_flight",
			Help:      "Generations currently running",
		}),

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		rateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),

		gpuUtilization: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_utilization_percent",
			Help:      "GPU utilization",
		}),
		gpuMemoryUsed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_memory_used_bytes",
			Help:      "GPU memory in use",
		}),
		gpuMemoryTotal: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_memory_total_bytes",
			Help:      "GPU memory capacity",
		}),
		gpuTemperature: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_temperature_celsius",
			Help:      "GPU temperature",
		}),
	}
}

// RecordGeneration counts rec by mode and status and observes its duration.
func (p *Prometheus) RecordGeneration(rec GenerationRecord) {
	p.generationsTotal.WithLabelValues(rec.Style, rec.Mode, rec.Status).Inc()
	p.generationDuration.WithLabelValues(rec.Mode).Observe(rec.Duration.Seconds())
	if rec.Status == StatusSuccess && rec.Mode == ModeBasic {
		p.fallbacksTotal.Inc()
	}
}

// GenerationStarted increments the in-flight gauge and returns the matching
// decrement.
func (p *Prometheus) GenerationStarted() (done func()) {
	p.inFlight.Inc()
	return p.inFlight.Dec
}

// RecordHTTPRequest observes one served request.
func (p *Prometheus) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordRateLimited counts a request rejected with 429.
func (p *Prometheus) RecordRateLimited() {
	p.rateLimitedTotal.Inc()
}

// UpdateGPU sets the GPU gauges from a sample.
func (p *Prometheus) UpdateGPU(gpu GPUMetrics) {
	p.gpuUtilization.Set(gpu.Utilization)
	p.gpuMemoryUsed.Set(float64(gpu.MemoryUsed))
	p.gpuMemoryTotal.Set(float64(gpu.MemoryTotal))
	p.gpuTemperature.Set(gpu.Temperature)
}

// Registry exposes the registry for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
