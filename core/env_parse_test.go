package core

import (
	"testing"
	"time"
)

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "42", 42},
		{"padded", "  9 ", 9},
		{"invalid", "many", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NFTGEN_TEST_INT", tt.value)
			if got := ParseIntEnv("NFTGEN_TEST_INT", 7); got != tt.want {
				t.Errorf("ParseIntEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := map[string]bool{
		"true": true, "YES": true, "1": true, "on": true,
		"false": false, "no": false, "0": false, "OFF": false,
	}
	for value, want := range tests {
		t.Run(value, func(t *testing.T) {
			t.Setenv("NFTGEN_TEST_BOOL", value)
			if got := ParseBoolEnv("NFTGEN_TEST_BOOL", !want); got != want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", value, got, want)
			}
		})
	}

	t.Run("garbage keeps default", func(t *testing.T) {
		t.Setenv("NFTGEN_TEST_BOOL", "maybe")
		if !ParseBoolEnv("NFTGEN_TEST_BOOL", true) {
			t.Error("ParseBoolEnv(maybe) should return the default")
		}
	})
}

func TestParseFloatAndDurationEnv(t *testing.T) {
	t.Setenv("NFTGEN_TEST_FLOAT", "2.5")
	t.Setenv("NFTGEN_TEST_SECONDS", "30")

	if got := ParseFloat64Env("NFTGEN_TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("ParseFloat64Env() = %v, want 2.5", got)
	}
	if got := ParseDurationEnv("NFTGEN_TEST_SECONDS", 5); got != 30*time.Second {
		t.Errorf("ParseDurationEnv() = %v, want 30s", got)
	}
	if got := GetEnvOrDefault("NFTGEN_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnvOrDefault() = %q, want fallback", got)
	}
}
