package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLogLevel reads the level named by the environment variable key,
// falling back to def when it is unset or not a level name.
func ParseLogLevel(key string, def zapcore.Level) zapcore.Level {
	return ParseLogLevelString(os.Getenv(key), def)
}

// ParseLogLevelString accepts any zap level name plus "warning".
func ParseLogLevelString(s string, def zapcore.Level) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return def
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return def
	}
	return lvl
}
