//go:build !linux || !cgo

package metrics

import "errors"

var ErrGPUUnavailable = errors.New("metrics: no NVIDIA GPU available")

// NVMLReader always reports ErrGPUUnavailable on this platform.
type NVMLReader struct{}

// NewNVMLReader returns a reader that always reports ErrGPUUnavailable.
func NewNVMLReader(int) *NVMLReader { return &NVMLReader{} }

func (r *NVMLReader) ReadGPUMetrics() (GPUMetrics, error) {
	return GPUMetrics{}, ErrGPUUnavailable
}

func (r *NVMLReader) Close() {}
