package logger

import (
	"log/slog"

	"memecoin_tracker/internal/app/port"
)

// slogAdapter implements port.Logger on top of an slog logger.
type slogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns a port.Logger writing to l, or to the slog default when l is nil.
// After New has run the default is backed by zap.
func NewSlogAdapter(l *slog.Logger) port.Logger {
	return &slogAdapter{logger: l}
}

func (a *slogAdapter) target() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// Info logs an informational message.
func (a *slogAdapter) Info(msg string, args ...any) {
	a.target().Info(msg, args...)
}

// Debug logs a debug message.
func (a *slogAdapter) Debug(msg string, args ...any) {
	a.target().Debug(msg, args...)
}

// Warn logs a warning.
func (a *slogAdapter) Warn(msg string, args ...any) {
	a.target().Warn(msg, args...)
}

// Error logs an error.
func (a *slogAdapter) Error(msg string, args ...any) {
	a.target().Error(msg, args...)
}
