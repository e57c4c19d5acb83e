package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected LogLevel
	}{
		{"debug", "debug", LevelDebug},
		{"info", "info", LevelInfo},
		{"warn", "warn", LevelWarn},
		{"warning alias", "warning", LevelWarn},
		{"error", "error", LevelError},
		{"case insensitive", "DEBUG", LevelDebug},
		{"surrounding whitespace", "  error ", LevelError},
		{"empty defaults to info", "", LevelInfo},
		{"unknown defaults to info", "verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.value); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Output tests (not parallel: they swap the package-level backend)
// =============================================================================

func captureOutput(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	prev := GetLevel()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(prev)
		SetOutput(discardWriter{})
	})
	return &buf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %s", len(lines), buf.String())
	}
	if lines[0]["level"] != "warn" || lines[0]["message"] != "warn 3" {
		t.Errorf("first line = %v, want warn 3", lines[0])
	}
	if lines[1]["level"] != "error" || lines[1]["message"] != "error 4" {
		t.Errorf("second line = %v, want error 4", lines[1])
	}
}

func TestPrintfIgnoresLevel(t *testing.T) {
	buf := captureOutput(t, LevelError)

	Printf("access %s", "line")
	Println("a", "b", 3)

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	if lines[0]["message"] != "access line" {
		t.Errorf("Printf message = %v, want %q", lines[0]["message"], "access line")
	}
	if lines[1]["message"] != "a b 3" {
		t.Errorf("Println message = %v, want %q", lines[1]["message"], "a b 3")
	}
}

func TestIsDebugEnabled(t *testing.T) {
	captureOutput(t, LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false after SetLevel(LevelDebug)")
	}
	SetLevel(LevelInfo)
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() = true after SetLevel(LevelInfo)")
	}
}
