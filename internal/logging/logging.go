// Package logging wraps zap the way the rest of the stack expects: a
// single sugared logger, console output for humans, verbose flag
// toggling debug level.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the sugared logging handle passed around the CLI and core.
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger builds a console-encoded logger. Debug level when verbose.
func NewLogger(verbose bool) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "" // keep CLI output terse

	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than fail the CLI over logging.
		logger = zap.NewNop()
	}

	return &Logger{SugaredLogger: logger.Sugar()}
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
