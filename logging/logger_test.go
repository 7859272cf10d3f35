package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncLogger flushes the logger, tolerating the EINVAL some platforms return
// for syncing terminals.
func syncLogger(t testing.TB, logger *Logger) {
	t.Helper()
	if err := logger.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
		t.Logf("Sync() warning: %v", err)
	}
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nftgen.log")
	var console bytes.Buffer

	logger, err := NewLogger(Config{Level: zapcore.InfoLevel, FilePath: logPath, Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("generation finished", zap.String("style", "anime"))
	syncLogger(t, logger)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry[FieldMessage] != "generation finished" {
		t.Errorf("msg = %v, want %q", entry[FieldMessage], "generation finished")
	}
	if entry["style"] != "anime" {
		t.Errorf("style = %v, want anime", entry["style"])
	}
	if console.Len() == 0 {
		t.Error("console output is empty")
	}
	if logger.LogFilePath() != logPath {
		t.Errorf("LogFilePath() = %q, want %q", logger.LogFilePath(), logPath)
	}
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, err := NewLogger(Config{Level: zapcore.WarnLevel, Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")
	syncLogger(t, logger)

	out := console.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn entry missing: %s", out)
	}
	if logger.LogFilePath() != "" {
		t.Errorf("LogFilePath() = %q, want empty", logger.LogFilePath())
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var console bytes.Buffer
	logger, err := NewLogger(Config{Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("provider configured",
		zap.String("openai_api_key", "plain-value"),
		zap.String("detail", "using sk-abcdefghijklmnopqrstuvwxyz0123"),
	)
	logger.Info("request", zap.String("X-API-Key", "letmein"), zap.String("path", "/api/generate"))
	syncLogger(t, logger)

	scanner := bufio.NewScanner(&console)
	lines := 0
	for scanner.Scan() {
		line := scanner.Text()
		lines++
		for _, secret := range []string{"plain-value", "sk-abcdefghij", "letmein"} {
			if strings.Contains(line, secret) {
				t.Errorf("secret %q leaked: %s", secret, line)
			}
		}
	}
	if lines != 2 {
		t.Errorf("got %d lines, want 2", lines)
	}
}

func TestLogger_NamedAndWith(t *testing.T) {
	var console bytes.Buffer
	logger, err := NewLogger(Config{Console: &console})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Named("stylize").With(zap.String("input", "in.png")).Info("done")
	syncLogger(t, logger)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(console.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry[FieldLogger] != "stylize" {
		t.Errorf("logger = %v, want stylize", entry[FieldLogger])
	}
	if entry["input"] != "in.png" {
		t.Errorf("input = %v, want in.png", entry["input"])
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("ignored")
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}

func TestParseLogLevelString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" INFO ", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevelString(tt.in, zapcore.ErrorLevel); got != tt.want {
				t.Errorf("ParseLogLevelString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Env(t *testing.T) {
	t.Setenv("NFTGEN_TEST_LEVEL", "debug")
	if got := ParseLogLevel("NFTGEN_TEST_LEVEL", zapcore.InfoLevel); got != zapcore.DebugLevel {
		t.Errorf("ParseLogLevel() = %v, want debug", got)
	}
	if got := ParseLogLevel("NFTGEN_TEST_LEVEL_UNSET", zapcore.InfoLevel); got != zapcore.InfoLevel {
		t.Errorf("ParseLogLevel() unset = %v, want info", got)
	}
}

func TestApplyFileWriterDefaults(t *testing.T) {
	got := applyFileWriterDefaults(FileWriterConfig{MaxBackups: 9})
	if got.MaxSizeMB != DefaultMaxSizeMB || got.MaxAgeDays != DefaultMaxAgeDays {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.MaxBackups != 9 {
		t.Errorf("MaxBackups = %d, want 9", got.MaxBackups)
	}
}

func TestNewCLILogger_Levels(t *testing.T) {
	t.Setenv("NFTGEN_LOG_LEVEL", "")

	var quiet bytes.Buffer
	logger, err := NewCLILogger(&quiet, false, "")
	if err != nil {
		t.Fatalf("NewCLILogger() error = %v", err)
	}
	logger.Info("loading backend")
	logger.Warn("strength out of range")
	syncLogger(t, logger)
	if strings.Contains(quiet.String(), "loading backend") {
		t.Errorf("info entry written without --verbose: %s", quiet.String())
	}
	if !strings.Contains(quiet.String(), "strength out of range") {
		t.Errorf("warn entry missing: %s", quiet.String())
	}

	var verbose bytes.Buffer
	logger, err = NewCLILogger(&verbose, true, "")
	if err != nil {
		t.Fatalf("NewCLILogger() error = %v", err)
	}
	logger.Debug("resized input")
	syncLogger(t, logger)
	if !strings.Contains(verbose.String(), "resized input") {
		t.Errorf("debug entry missing with --verbose: %s", verbose.String())
	}
}
