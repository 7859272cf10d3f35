package logging

import (
	"io"

	"go.uber.org/zap/zapcore"
)

// NewCLILogger returns the logger used by the command-line tools: colored
// console output on console at warn level, or debug when verbose. When
// filePath is set, entries are also written to a rotating JSON file.
func NewCLILogger(console io.Writer, verbose bool, filePath string) (*Logger, error) {
	level := ParseLogLevel("NFTGEN_LOG_LEVEL", zapcore.WarnLevel)
	if verbose {
		level = zapcore.DebugLevel
	}
	return NewLogger(Config{
		Level:       level,
		Development: true,
		FilePath:    filePath,
		Console:     console,
	})
}
