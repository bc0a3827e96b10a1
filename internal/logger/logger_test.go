package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		if got := toZapLevel(tc.in); got != tc.want {
			t.Fatalf("toZapLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGet_ReturnsSingleton(t *testing.T) {
	a := Get(ErrorLevel)
	b := Get(DebugLevel)
	if a != b {
		t.Fatalf("expected the same logger instance")
	}
	if a.Desugar().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("first level should win")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Infow("ignored", "k", "v")
	if l.Desugar().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("nop logger should be disabled")
	}
}
