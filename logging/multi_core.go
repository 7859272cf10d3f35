package logging

import (
	"go.uber.org/zap/zapcore"
)

// NewMultiCore tees a console core and, when fileWriter is non-nil, a JSON
// file core. The console encoder is colored text in development and JSON
// otherwise. Returns nil when both writers are nil.
func NewMultiCore(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	var cores []zapcore.Core

	if consoleWriter != nil {
		var consoleEncoder zapcore.Encoder
		if isDev {
			consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
		} else {
			consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, consoleWriter, level))
	}

	if fileWriter != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(NewEncoderConfig()),
			fileWriter,
			level,
		))
	}

	switch len(cores) {
	case 0:
		return nil
	case 1:
		return cores[0]
	default:
		return zapcore.NewTee(cores...)
	}
}
