package logger

import (
	"fmt"
	"log/slog"
	"strings"

	"memecoin_tracker/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a config level string to a zap level. Unknown values fall back to info.
func ParseLevel(levelStr string) (zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "INFO", "":
		return zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// New builds the production JSON zap logger described by cfg and installs it as the slog default.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, ok := ParseLevel(cfg.Level)

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{"stdout", cfg.File}
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	if !ok {
		zapLogger.Warn("Invalid log level string, defaulting to INFO", zap.String("input", cfg.Level))
	}

	InstallSlog(zapLogger)
	return zapLogger, nil
}

// InstallSlog routes the default slog logger onto zapLogger's core.
func InstallSlog(zapLogger *zap.Logger) {
	handler := zapslog.NewHandler(zapLogger.Core())
	slog.SetDefault(slog.New(handler))
}
