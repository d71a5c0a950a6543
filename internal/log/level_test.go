package log

import (
	"log/slog"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLevelToSlogLevel(t *testing.T) {
	if LevelWarn.ToSlogLevel() != slog.LevelWarn {
		t.Errorf("LevelWarn should map to slog.LevelWarn")
	}
	if Level(42).ToSlogLevel() != slog.LevelInfo {
		t.Errorf("unknown levels should map to slog.LevelInfo")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"WARNING", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"CRITICAL", LevelError},
		{"", LevelWarn},
		{"loud", LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
