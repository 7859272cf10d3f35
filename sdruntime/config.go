package sdruntime

import (
	"strings"
	"time"

	"nftgen/core"
)

// SDConfig holds local runtime settings.
type SDConfig struct {
	ModelPath   string // weights file; empty means the default model in the models dir
	ModelSHA256 string // expected hash of ModelPath; set, it enables verification on load
	ModelID     string // informational, e.g. runwayml/stable-diffusion-v1-5
	Device      Device
	Threads     int

	Timeout       time.Duration
	MaxConcurrent int // context pool size
}

// Defaults.
const (
	DefaultModelID        = "runwayml/stable-diffusion-v1-5"
	DefaultStrength       = 0.7
	DefaultGuidanceScale  = 7.5
	DefaultSteps          = 20
	DefaultImageSize      = 512
	DefaultTimeoutSeconds = 600
	DefaultMaxConcurrent  = 1

	// NegativePrompt is applied to every generation.
	NegativePrompt = "blurry, low quality, distorted, deformed, ugly, bad anatomy"
)

// LoadSDConfig reads the SD_* runtime variables. Malformed numbers fall
// back to defaults; an unknown SD_DEVICE falls back to auto. Generation
// knobs are not read from the environment: they come from the caller.
func LoadSDConfig() *SDConfig {
	device, err := ParseDevice(core.GetEnvOrDefault("SD_DEVICE", ""))
	if err != nil {
		device = DeviceAuto
	}

	cfg := &SDConfig{
		ModelPath:     core.GetEnvOrDefault("SD_MODEL_PATH", ""),
		ModelSHA256:   strings.ToLower(core.GetEnvOrDefault("SD_MODEL_SHA256", "")),
		ModelID:       core.GetEnvOrDefault("SD_MODEL_ID", DefaultModelID),
		Device:        device,
		Threads:       core.ParseIntEnv("SD_THREADS", 0),
		Timeout:       core.ParseDurationEnv("SD_TIMEOUT_SECONDS", DefaultTimeoutSeconds),
		MaxConcurrent: core.ParseIntEnv("SD_MAX_CONCURRENT", DefaultMaxConcurrent),
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Threads < 0 {
		cfg.Threads = 0
	}
	return cfg
}
