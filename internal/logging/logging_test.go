package logging

import (
	"context"
	"testing"
)

func TestInitLoggerLevels(t *testing.T) {
	levels := []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, Level(99)}
	for _, level := range levels {
		InitLogger(level, FormatJSON)
		if GetLogger() == nil {
			t.Fatalf("GetLogger() returned nil for level %d", level)
		}
	}
}

func TestInitLoggerFormats(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatText} {
		InitLogger(LevelInfo, format)
		if GetLogger() == nil {
			t.Fatalf("GetLogger() returned nil for format %d", format)
		}
	}
}

func TestWithOperation(t *testing.T) {
	ctx := WithOperation(context.Background(), "render")
	if got := GetOperation(ctx); got != "render" {
		t.Errorf("GetOperation() = %q, want %q", got, "render")
	}
}

func TestGetOperationMissing(t *testing.T) {
	if got := GetOperation(context.Background()); got != "" {
		t.Errorf("GetOperation() = %q, want empty", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	InitLogger(LevelInfo, FormatJSON)

	// Without operation, the default logger comes back.
	if LoggerFromContext(context.Background()) != defaultLogger {
		t.Error("expected default logger for bare context")
	}

	// With operation, a derived logger comes back.
	ctx := WithOperation(context.Background(), "parse")
	if LoggerFromContext(ctx) == defaultLogger {
		t.Error("expected derived logger for operation context")
	}
}

func TestHelpersDoNotPanic(t *testing.T) {
	InitLogger(LevelDebug, FormatJSON)
	ctx := WithOperation(context.Background(), "validate")

	Debug("debug", "k", "v")
	Info("info", "k", "v")
	Warn("warn", "k", "v")
	Error("error", "k", "v")
	DebugContext(ctx, "debug")
	InfoContext(ctx, "info")
	WarnContext(ctx, "warn")
	ErrorContext(ctx, "error")
	RenderOperation("render", "html", 3)
	PluginLoading("p1", "1.0.0", []string{"html"})
	PluginError("p1", "initialize", context.Canceled)
	RoundTripResult("markdown", 0.97, true)
}
