package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		log, err := New(tt.level, "json")
		if err != nil {
			t.Fatalf("%s: build failed: %v", tt.level, err)
		}
		if !log.Core().Enabled(tt.want) {
			t.Fatalf("%s: expected %v enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && log.Core().Enabled(tt.want-1) {
			t.Fatalf("%s: expected %v disabled", tt.level, tt.want-1)
		}
	}
}

func TestNewConsoleEncoding(t *testing.T) {
	if _, err := New("info", "console"); err != nil {
		t.Fatalf("console logger failed: %v", err)
	}
	if _, err := New("info", "xml"); err != nil {
		t.Fatalf("unknown encoding must fall back to json: %v", err)
	}
}
