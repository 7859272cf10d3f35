package sdruntime

import (
	"testing"
	"time"
)

func TestLoadSDConfigDefaults(t *testing.T) {
	for _, k := range []string{"SD_MODEL_PATH", "SD_MODEL_ID", "SD_DEVICE", "SD_THREADS", "SD_TIMEOUT_SECONDS",
		"SD_MAX_CONCURRENT"} {
		t.Setenv(k, "")
	}

	cfg := LoadSDConfig()
	if cfg.ModelID != DefaultModelID {
		t.Errorf("ModelID = %q", cfg.ModelID)
	}
	if cfg.Device != DeviceAuto {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.Timeout != DefaultTimeoutSeconds*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestLoadSDConfigOverrides(t *testing.T) {
	t.Setenv("SD_DEVICE", "cpu")
	t.Setenv("SD_MAX_CONCURRENT", "0")
	t.Setenv("SD_THREADS", "-3")
	t.Setenv("SD_TIMEOUT_SECONDS", "30")

	cfg := LoadSDConfig()
	if cfg.Device != DeviceCPU {
		t.Errorf("Device = %q, want cpu", cfg.Device)
	}
	if cfg.MaxConcurrent != DefaultMaxConcurrent {
		t.Errorf("MaxConcurrent = %d, want default", cfg.MaxConcurrent)
	}
	if cfg.Threads != 0 {
		t.Errorf("Threads = %d, want 0 for negative", cfg.Threads)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}
