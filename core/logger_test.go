package core

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

var (
	_ Logger = (*DefaultLogger)(nil)
	_ Logger = (*NoOpLogger)(nil)
	_ Logger = (*SlogLogger)(nil)
)

func TestSlogLogger_WritesFields(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	// Act
	logger.Warn("(m,k)-firm window violated", F("task", "airbag"), F("misses", 11))
	logger.Debug("debug line")

	// Assert
	out := buf.String()
	for _, want := range []string{"level=WARN", "task=airbag", "misses=11", "level=DEBUG"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestSlogLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	logger.Debug("hidden")
	logger.Error("shown", F("error", "boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Fatalf("output %q missing error field", out)
	}
}

func TestNewSlogLogger_NilUsesDefault(t *testing.T) {
	logger := NewSlogLogger(nil)
	logger.Info("no panic")
}
