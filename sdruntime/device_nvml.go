//go:build linux && cgo

package sdruntime

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// DetectAccelerators lists NVIDIA GPUs through NVML. A host without the
// driver yields an empty list and no error.
func DetectAccelerators() (accels []Accelerator, err error) {
	defer func() {
		// NVML panics when libnvidia-ml cannot be dlopen'd on some drivers.
		if r := recover(); r != nil {
			accels, err = nil, nil
		}
	}()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, nil
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml device count: %s", nvml.ErrorString(ret))
	}

	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		a := Accelerator{Index: i}
		if name, ret := dev.GetName(); ret == nvml.SUCCESS {
			a.Name = name
		}
		if mem, ret := dev.GetMemoryInfo(); ret == nvml.SUCCESS {
			a.MemoryTotal = mem.Total
		}
		accels = append(accels, a)
	}
	return accels, nil
}
