package logger

import (
	"log/slog"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zapcore.Level
		wantOK bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"INFO", zapcore.InfoLevel, true},
		{"", zapcore.InfoLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInstallSlog_RoutesDefaultThroughZap(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	core, logs := observer.New(zapcore.InfoLevel)
	InstallSlog(zap.New(core))

	adapter := NewSlogAdapter(nil)
	adapter.Info("Snapshot written", "path", "backups/x.json")
	adapter.Debug("filtered out")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry at info level, got %d", len(entries))
	}
	if entries[0].Message != "Snapshot written" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["path"]; got != "backups/x.json" {
		t.Errorf("path field = %v", got)
	}
}
