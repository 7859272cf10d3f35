// Package metrics tracks generation outcomes for the service: an in-memory
// summary for the API, Prometheus collectors for scraping, and a GPU sampler.
package metrics

import "time"

// GenerationRecord is one finished request to the generation service.
type GenerationRecord struct {
	ID        string        `json:"id"`
	Style     string        `json:"style"`
	Mode      string        `json:"mode"` // diffusion or basic
	Provider  string        `json:"provider"`
	Status    string        `json:"status"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	ErrorMsg  string        `json:"error_msg,omitempty"`
}

// GPUMetrics is one GPU sample. Memory is in bytes.
type GPUMetrics struct {
	Utilization float64 `json:"utilization"`
	Temperature float64 `json:"temperature"`
	MemoryTotal int64   `json:"memory_total"`
	MemoryUsed  int64   `json:"memory_used"`
	MemoryFree  int64   `json:"memory_free"`
}

// SystemStatus is the service health summary.
type SystemStatus struct {
	Health    string        `json:"health"`
	Version   string        `json:"version"`
	Provider  string        `json:"provider"`
	Uptime    time.Duration `json:"uptime"`
	LastCheck time.Time     `json:"last_check"`
}

// GenerationStats aggregates every record seen since start.
type GenerationStats struct {
	TotalProcessed int64                  `json:"total_processed"`
	TotalSuccess   int64                  `json:"total_success"`
	TotalErrors    int64                  `json:"total_errors"`
	TotalFallbacks int64                  `json:"total_fallbacks"`
	ByStyle        map[string]*StyleStats `json:"by_style"`
}

// StyleStats summarizes one style.
type StyleStats struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	ModeDiffusion = "diffusion"
	ModeBasic     = "basic"
)

const (
	SystemHealthRunning  = "running"
	SystemHealthDegraded = "degraded"
)
