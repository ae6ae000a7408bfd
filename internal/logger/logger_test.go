package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled with warn override")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestFromContext(t *testing.T) {
	base, err := NewLogger("prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ContextWithLogger(context.Background(), base)
	if FromContext(ctx) != base {
		t.Error("expected the stored logger back")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected nop fallback for bare context")
	}
}
