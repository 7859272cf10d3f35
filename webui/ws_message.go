package webui

import "time"

// Event types broadcast over /ws.
const (
	MessageTypeGenerationStarted   = "generation.started"
	MessageTypeGenerationCompleted = "generation.completed"
	MessageTypeGPUUpdate           = "gpu_update"
	MessageTypeSystemStatus        = "system_status"
	MessageTypeError               = "error"
)

// WSMessage is the envelope for every event. Data depends on Type.
type WSMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// NewWSMessage stamps data with the current time.
func NewWSMessage(msgType string, data any) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// GenerationStartedData announces an accepted upload.
type GenerationStartedData struct {
	ID       string `json:"id"`
	Style    string `json:"style"`
	Prompt   string `json:"prompt"`
	Provider string `json:"provider,omitempty"`
}

// GenerationCompletedData reports how a generation finished. Mode is
// "diffusion", "basic" or "original".
type GenerationCompletedData struct {
	ID             string `json:"id"`
	Style          string `json:"style"`
	Status         string `json:"status"`
	Mode           string `json:"mode"`
	ProcessingTime string `json:"processingTime"`
	DurationMS     int64  `json:"durationMs"`
	Error          string `json:"error,omitempty"`
}

// GPUUpdateData mirrors a metrics.GPUMetrics sample.
type GPUUpdateData struct {
	Utilization   float64 `json:"utilization"`
	Temperature   float64 `json:"temperature"`
	MemoryUsed    int64   `json:"memory_used"`
	MemoryTotal   int64   `json:"memory_total"`
	MemoryPercent float64 `json:"memory_percent"`
}

// SystemStatusData is sent to each client when it connects.
type SystemStatusData struct {
	Health   string `json:"health"`
	Version  string `json:"version"`
	Provider string `json:"provider"`
	Uptime   string `json:"uptime"`
}

// ErrCodeGenerationFailed marks an error frame sent when every stage of a
// generation failed.
const ErrCodeGenerationFailed = "generation_failed"

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewGenerationStartedMessage wraps data in a generation.started frame.
func NewGenerationStartedMessage(data GenerationStartedData) WSMessage {
	return NewWSMessage(MessageTypeGenerationStarted, data)
}

// NewGenerationCompletedMessage wraps data in a generation.completed frame.
func NewGenerationCompletedMessage(data GenerationCompletedData) WSMessage {
	return NewWSMessage(MessageTypeGenerationCompleted, data)
}

// NewGPUUpdateMessage wraps a GPU sample.
func NewGPUUpdateMessage(data GPUUpdateData) WSMessage {
	return NewWSMessage(MessageTypeGPUUpdate, data)
}

// NewSystemStatusMessage wraps the greeting sent on connect.
func NewSystemStatusMessage(data SystemStatusData) WSMessage {
	return NewWSMessage(MessageTypeSystemStatus, data)
}

// NewErrorMessage builds an error frame with a stable code.
func NewErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}
