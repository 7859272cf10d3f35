//go:build linux && cgo

package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// ErrGPUUnavailable is returned when no NVIDIA driver or device is present.
var ErrGPUUnavailable = errors.New("metrics: no NVIDIA GPU available")

// NVMLReader samples one device through NVML. NVML is initialized on first
// read and kept open.
type NVMLReader struct {
	index int

	once    sync.Once
	initErr error
}

// NewNVMLReader reads the GPU at index. NVML is initialised on the first read.
func NewNVMLReader(index int) *NVMLReader {
	return &NVMLReader{index: index}
}

func (r *NVMLReader) init() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ErrGPUUnavailable
		}
	}()
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return fmt.Errorf("%w: %s", ErrGPUUnavailable, nvml.ErrorString(ret))
	}
	return nil
}

// ReadGPUMetrics samples utilisation, temperature and memory.
func (r *NVMLReader) ReadGPUMetrics() (GPUMetrics, error) {
	r.once.Do(func() { r.initErr = r.init() })
	if r.initErr != nil {
		return GPUMetrics{}, r.initErr
	}

	dev, ret := nvml.DeviceGetHandleByIndex(r.index)
	if ret != nvml.SUCCESS {
		return GPUMetrics{}, fmt.Errorf("%w: device %d: %s", ErrGPUUnavailable, r.index, nvml.ErrorString(ret))
	}

	var m GPUMetrics
	if util, ret := dev.GetUtilizationRates(); ret == nvml.SUCCESS {
		m.Utilization = float64(util.Gpu)
	}
	if temp, ret := dev.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		m.Temperature = float64(temp)
	}
	mem, ret := dev.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return GPUMetrics{}, fmt.Errorf("nvml memory info: %s", nvml.ErrorString(ret))
	}
	m.MemoryTotal = int64(mem.Total)
	m.MemoryUsed = int64(mem.Used)
	m.MemoryFree = int64(mem.Free)
	return m, nil
}

// Close shuts NVML down if it was initialized.
func (r *NVMLReader) Close() {
	if r.initErr == nil {
		nvml.Shutdown()
	}
}
