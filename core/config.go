package core

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Generation providers understood by imagegen.
const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
	ProviderOpenAI = "openai"
)

// Service defaults.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 5000
	DefaultMaxUploadMB    = 10
	DefaultMaxConcurrent  = 1
	DefaultRateLimitRPS   = 1.0
	DefaultRateLimitBurst = 5
	DefaultRemoteTimeout  = 300
)

// Config holds application configuration read from the environment.
// Stable Diffusion runtime tuning (SD_MODEL_PATH, SD_DEVICE, ...) is read by
// sdruntime.LoadSDConfig.
type Config struct {
	// Logging
	LogLevel string
	DevMode  bool
	LogFile  string

	// Generation backend
	Provider      string
	RemoteURL     string // AUTOMATIC1111-compatible endpoint for ProviderRemote
	RemoteTimeout time.Duration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	ModelsDir     string

	// Style prompt overrides (YAML)
	StylesFile string

	// Generation service
	Host           string
	Port           int
	HistoryDB      string
	APIKeyHash     string // bcrypt hash; empty disables API-key auth
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	MaxUploadMB    int

	// NFT pinning
	NFTStorageAPIKey string // empty disables the /api/ipfs uploads
	NFTStorageURL    string
}

// ConfigOption overrides a loaded value before validation.
type ConfigOption func(*Config)

// WithProvider selects the generation backend in place of NFTGEN_PROVIDER.
// An empty name keeps the environment's choice.
func WithProvider(name string) ConfigOption {
	return func(c *Config) {
		if name != "" {
			c.Provider = strings.ToLower(strings.TrimSpace(name))
		}
	}
}

// LoadConfig reads Config from the environment, applies opts and validates
// the result. Callers load .env with godotenv before calling this.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		LogLevel: GetEnvOrDefault("NFTGEN_LOG_LEVEL", ""),
		DevMode:  ParseBoolEnv("DEV_MODE", false),
		LogFile:  GetEnvOrDefault("LOG_FILE", ""),

		Provider:      strings.ToLower(GetEnvOrDefault("NFTGEN_PROVIDER", ProviderLocal)),
		RemoteURL:     GetEnvOrDefault("SD_REMOTE_URL", ""),
		RemoteTimeout: ParseDurationEnv("SD_REMOTE_TIMEOUT_SECONDS", DefaultRemoteTimeout),
		OpenAIAPIKey:  GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL: GetEnvOrDefault("OPENAI_BASE_URL", ""),
		ModelsDir:     GetEnvOrDefault("NFTGEN_MODELS_DIR", "models"),

		StylesFile: GetEnvOrDefault("NFTGEN_STYLES_FILE", ""),

		Host:           GetEnvOrDefault("NFTGEN_HOST", DefaultHost),
		Port:           ParseIntEnv("NFTGEN_PORT", DefaultPort),
		HistoryDB:      GetEnvOrDefault("NFTGEN_HISTORY_DB", ""),
		APIKeyHash:     GetEnvOrDefault("NFTGEN_API_KEY_HASH", ""),
		RateLimitRPS:   ParseFloat64Env("NFTGEN_RATE_LIMIT_RPS", DefaultRateLimitRPS),
		RateLimitBurst: ParseIntEnv("NFTGEN_RATE_LIMIT_BURST", DefaultRateLimitBurst),
		MaxConcurrent:  ParseIntEnv("NFTGEN_MAX_CONCURRENT", DefaultMaxConcurrent),
		MaxUploadMB:    ParseIntEnv("NFTGEN_MAX_UPLOAD_MB", DefaultMaxUploadMB),

		NFTStorageAPIKey: GetEnvOrDefault("NFT_STORAGE_API_KEY", ""),
		NFTStorageURL:    GetEnvOrDefault("NFT_STORAGE_URL", ""),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, at first use.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal, ProviderOpenAI:
	case ProviderRemote:
		if c.RemoteURL == "" {
			return ErrMissingConfig("SD_REMOTE_URL")
		}
	default:
		return ErrUnknownProvider(c.Provider)
	}

	if c.RemoteURL != "" {
		if err := validateHTTPURL("SD_REMOTE_URL", c.RemoteURL); err != nil {
			return err
		}
	}
	if c.OpenAIBaseURL != "" {
		if err := validateHTTPURL("OPENAI_BASE_URL", c.OpenAIBaseURL); err != nil {
			return err
		}
	}
	if c.NFTStorageURL != "" {
		if err := validateHTTPURL("NFT_STORAGE_URL", c.NFTStorageURL); err != nil {
			return err
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidValue("NFTGEN_PORT", strconv.Itoa(c.Port), "must be between 1 and 65535")
	}
	if c.MaxConcurrent < 1 {
		return ErrInvalidValue("NFTGEN_MAX_CONCURRENT", strconv.Itoa(c.MaxConcurrent), "must be at least 1")
	}
	if c.MaxUploadMB < 1 {
		return ErrInvalidValue("NFTGEN_MAX_UPLOAD_MB", strconv.Itoa(c.MaxUploadMB), "must be at least 1")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return ErrInvalidValue("NFTGEN_RATE_LIMIT_RPS", "", "rate and burst must be positive")
	}
	return nil
}

// Addr returns the host:port the service listens on.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * BytesPerMB
}

// ModelPath resolves filename inside ModelsDir.
func (c *Config) ModelPath(filename string) string {
	return filepath.Join(c.ModelsDir, filename)
}

func validateHTTPURL(varName, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL(varName, raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL(varName, raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return ErrInvalidURL(varName, raw, "missing host")
	}
	return nil
}
