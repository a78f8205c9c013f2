// Package log contains zap constructors and field helpers shared by the stream components.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ConsoleEncoder represents logging with plain text.
	ConsoleEncoder = "console"
	// JSONEncoder represents logging with JSON.
	JSONEncoder = "json"
)

// where logs go by default.
var logWriter io.Writer = os.Stdout

// NewWithLevel creates a named logger with a fixed level and with a set of (optional) hooks.
func NewWithLevel(module string, level zap.AtomicLevel, encoder zapcore.Encoder,
	hooks ...func(zapcore.Entry) error,
) *zap.Logger {
	core := zapcore.NewCore(encoder, zapcore.AddSync(logWriter), level)
	return zap.New(zapcore.RegisterHooks(core, hooks...)).Named(module)
}

// New creates a logger from textual level and encoder kind.
func New(module, level, encoder string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse level %q: %w", level, err)
	}
	var enc zapcore.Encoder
	switch encoder {
	case "", ConsoleEncoder:
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case JSONEncoder:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log encoder %q", encoder)
	}
	return NewWithLevel(module, lvl, enc), nil
}

// LevelFromVerbosity maps numeric verbosity of the stream engine to a zap level.
// 0 keeps warnings and errors, 1 adds info, 2 and above adds debug.
func LevelFromVerbosity(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// WithVerbosity returns logger that drops entries below the level selected by verbosity.
func WithVerbosity(logger *zap.Logger, verbosity int) *zap.Logger {
	lvl := LevelFromVerbosity(verbosity)
	if logger.Level() >= lvl {
		return logger
	}
	return logger.WithOptions(zap.IncreaseLevel(lvl))
}
