//go:build !linux || !cgo

package sdruntime

// DetectAccelerators reports no GPUs on platforms without NVML support.
func DetectAccelerators() ([]Accelerator, error) {
	return nil, nil
}
