package logging

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestLoggerWritesToBuffer(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelInfo, io.Discard)

	logger.Info("watch started", map[string]string{"path": "README.md"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != LevelInfo {
		t.Fatalf("expected info level, got %q", entry.Level)
	}
	if entry.Message != "watch started" {
		t.Fatalf("expected message, got %q", entry.Message)
	}
	if entry.Context["path"] != "README.md" {
		t.Fatalf("expected context path, got %v", entry.Context)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelWarning, io.Discard)

	logger.Debug("debug", nil)
	logger.Info("info", nil)
	logger.Warn("warn", nil)

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != LevelWarning {
		t.Fatalf("expected warning level, got %q", entries[0].Level)
	}
}

func TestLoggerWithMergesFields(t *testing.T) {
	buffer := NewLogBuffer(10)
	base := NewLoggerWithOutput(buffer, LevelDebug, io.Discard)
	child := base.With(map[string]string{"conn_id": "7"})

	child.Debug("event ignored", map[string]string{"reason": "unchanged"})
	base.Debug("plain", nil)

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Context["conn_id"] != "7" || entries[0].Context["reason"] != "unchanged" {
		t.Fatalf("unexpected child context: %v", entries[0].Context)
	}
	if entries[1].Context != nil {
		t.Fatalf("expected base logger to stay unscoped, got %v", entries[1].Context)
	}
}

func TestLoggerFormatsSortedFields(t *testing.T) {
	var output bytes.Buffer
	logger := NewLoggerWithOutput(nil, LevelInfo, &output)

	logger.Info("payload sent", map[string]string{"bytes": "12", "at": "now"})

	line := output.String()
	if !strings.Contains(line, `level=info msg="payload sent" at="now" bytes="12"`) {
		t.Fatalf("unexpected log line: %q", line)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored", nil)
	if logger.With(map[string]string{"a": "b"}) != nil {
		t.Fatalf("expected nil child logger")
	}
	if logger.Enabled(LevelError) {
		t.Fatalf("expected nil logger to be disabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warn":    LevelWarning,
		"warning": LevelWarning,
		"error":   LevelError,
	}
	for input, want := range cases {
		got, ok := ParseLevel(input)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %q, %v; want %q", input, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}
