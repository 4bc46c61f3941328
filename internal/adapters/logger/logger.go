// Package logger implements a logging adapter using log/slog.
package logger

import (
	"log/slog"
	"os"

	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// Logger implements ports.Logger using log/slog with a text handler to
// stderr, matching 12-factor app guidance for CLI tools.
type Logger struct {
	logger *slog.Logger
}

// New creates a new Logger instance.
func New() ports.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{logger: slog.New(handler)}
}

// Info logs an informational message with structured key/value args.
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a non-fatal warning (§7's "warnings do not abort the command").
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs a failure, attaching the error under the "error" key.
func (l *Logger) Error(err error, args ...any) {
	l.logger.Error(err.Error(), append([]any{"error", err}, args...)...)
}
