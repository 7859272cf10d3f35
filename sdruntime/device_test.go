package sdruntime

import (
	"errors"
	"testing"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    Device
		wantErr bool
	}{
		{"", DeviceAuto, false},
		{"auto", DeviceAuto, false},
		{"CUDA", DeviceCUDA, false},
		{"gpu", DeviceCUDA, false},
		{" cpu ", DeviceCPU, false},
		{"mps", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDevice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDevice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDevice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanDevice(t *testing.T) {
	gpus := []Accelerator{{Index: 0, Name: "NVIDIA RTX 4090", MemoryTotal: 24 << 30}}

	t.Run("auto with gpu", func(t *testing.T) {
		plan, err := PlanDevice(DeviceAuto, gpus)
		if err != nil {
			t.Fatal(err)
		}
		if plan.Device != DeviceCUDA || plan.Precision != PrecisionFP16 || !plan.AttentionSlicing {
			t.Errorf("plan = %+v, want cuda fp16 with attention slicing", plan)
		}
		if plan.Accelerator == nil || plan.Accelerator.Name != "NVIDIA RTX 4090" {
			t.Errorf("accelerator = %+v", plan.Accelerator)
		}
	})

	t.Run("auto without gpu falls back to cpu", func(t *testing.T) {
		plan, err := PlanDevice(DeviceAuto, nil)
		if err != nil {
			t.Fatal(err)
		}
		if plan.Device != DeviceCPU || plan.Precision != PrecisionFP32 || plan.AttentionSlicing {
			t.Errorf("plan = %+v, want cpu fp32", plan)
		}
	})

	t.Run("forced cpu ignores gpu", func(t *testing.T) {
		plan, _ := PlanDevice(DeviceCPU, gpus)
		if plan.Device != DeviceCPU {
			t.Errorf("device = %s, want cpu", plan.Device)
		}
	})

	t.Run("forced cuda without gpu", func(t *testing.T) {
		if _, err := PlanDevice(DeviceCUDA, nil); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("err = %v, want ErrInvalidParams", err)
		}
	})
}
