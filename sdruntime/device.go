package sdruntime

import (
	"fmt"
	"strings"
)

// Device is the compute target for diffusion.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
)

// Precision is the weight type the model is loaded with.
type Precision string

const (
	PrecisionFP16 Precision = "fp16"
	PrecisionFP32 Precision = "fp32"
)

// Accelerator is a detected GPU.
type Accelerator struct {
	Index       int
	Name        string
	MemoryTotal uint64 // bytes
}

// DevicePlan is the resolved placement for a model load.
type DevicePlan struct {
	Device           Device
	Precision        Precision
	AttentionSlicing bool
	Accelerator      *Accelerator // nil on CPU
}

func (p DevicePlan) String() string {
	if p.Accelerator != nil {
		return fmt.Sprintf("%s (%s, %s)", p.Device, p.Accelerator.Name, p.Precision)
	}
	return fmt.Sprintf("%s (%s)", p.Device, p.Precision)
}

// ParseDevice accepts "auto", "cuda" (or "gpu") and "cpu". Empty means auto.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DeviceAuto, nil
	case "cuda", "gpu":
		return DeviceCUDA, nil
	case "cpu":
		return DeviceCPU, nil
	default:
		return "", fmt.Errorf("%w: unknown device %q (want auto, cuda or cpu)", ErrInvalidParams, s)
	}
}

// PlanDevice resolves requested against the detected accelerators. A GPU
// runs half precision with attention slicing; the CPU runs full precision.
func PlanDevice(requested Device, accels []Accelerator) (DevicePlan, error) {
	switch requested {
	case DeviceCPU:
		return cpuPlan(), nil
	case DeviceCUDA:
		if len(accels) == 0 {
			return DevicePlan{}, fmt.Errorf("%w: cuda requested but no GPU detected", ErrInvalidParams)
		}
		return gpuPlan(accels[0]), nil
	case DeviceAuto, "":
		if len(accels) == 0 {
			return cpuPlan(), nil
		}
		return gpuPlan(accels[0]), nil
	default:
		return DevicePlan{}, fmt.Errorf("%w: unknown device %q", ErrInvalidParams, requested)
	}
}

// SelectDevice detects accelerators and plans requested against them.
func SelectDevice(requested Device) (DevicePlan, error) {
	accels, err := DetectAccelerators()
	if err != nil {
		accels = nil
	}
	return PlanDevice(requested, accels)
}

func cpuPlan() DevicePlan {
	return DevicePlan{Device: DeviceCPU, Precision: PrecisionFP32}
}

func gpuPlan(a Accelerator) DevicePlan {
	return DevicePlan{
		Device:           DeviceCUDA,
		Precision:        PrecisionFP16,
		AttentionSlicing: true,
		Accelerator:      &a,
	}
}
