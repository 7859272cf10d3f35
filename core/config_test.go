package core

import (
	"errors"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NFTGEN_PROVIDER", "")
	t.Setenv("NFTGEN_PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Provider != ProviderLocal {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderLocal)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.MaxUploadBytes() != DefaultMaxUploadMB*BytesPerMB {
		t.Errorf("MaxUploadBytes() = %d", cfg.MaxUploadBytes())
	}
	if cfg.Addr() != "localhost:5000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadConfig_WithProvider(t *testing.T) {
	t.Setenv("NFTGEN_PROVIDER", "dreamer")
	t.Setenv("SD_REMOTE_URL", "http://sd.local:7860")

	cfg, err := LoadConfig(WithProvider(" Remote "))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Provider != ProviderRemote {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderRemote)
	}

	if _, err := LoadConfig(WithProvider("")); err == nil {
		t.Error("empty override should keep the invalid NFTGEN_PROVIDER")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantCode string
	}{
		{
			name:     "unknown provider",
			env:      map[string]string{"NFTGEN_PROVIDER": "dreamer"},
			wantCode: ErrCodeUnknownBackend,
		},
		{
			name:     "remote without url",
			env:      map[string]string{"NFTGEN_PROVIDER": "remote", "SD_REMOTE_URL": ""},
			wantCode: ErrCodeMissingConfig,
		},
		{
			name:     "remote with bad scheme",
			env:      map[string]string{"NFTGEN_PROVIDER": "remote", "SD_REMOTE_URL": "ftp://sd.local"},
			wantCode: ErrCodeInvalidURL,
		},
		{
			name:     "nft.storage url without scheme",
			env:      map[string]string{"NFT_STORAGE_URL": "api.nft.storage"},
			wantCode: ErrCodeInvalidURL,
		},
		{
			name:     "port out of range",
			env:      map[string]string{"NFTGEN_PORT": "70000"},
			wantCode: ErrCodeInvalidValue,
		},
		{
			name:     "zero concurrency",
			env:      map[string]string{"NFTGEN_MAX_CONCURRENT": "0"},
			wantCode: ErrCodeInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig() error = nil")
			}
			cfgErr, ok := IsConfigError(err)
			if !ok {
				t.Fatalf("error %T is not a *ConfigError", err)
			}
			if cfgErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", cfgErr.Code, tt.wantCode)
			}
		})
	}
}

func TestConfigError_Message(t *testing.T) {
	err := ErrMissingConfig("SD_REMOTE_URL")
	want := "Missing required configuration: SD_REMOTE_URL. Set SD_REMOTE_URL in the environment or in .env"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := errors.Join(errors.New("startup"), err)
	if _, ok := IsConfigError(wrapped); !ok {
		t.Error("IsConfigError() should see through wrapping")
	}
}

func TestExitCodeFor(t *testing.T) {
	if ExitCodeFor(nil) != ExitCodeSuccess {
		t.Error("nil error should map to success")
	}
	if ExitCodeFor(errors.New("boom")) != ExitCodeError {
		t.Error("any error should map to ExitCodeError")
	}
}
