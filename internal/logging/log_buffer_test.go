package logging

import "testing"

func TestLogBufferDropsOldestEntries(t *testing.T) {
	buffer := NewLogBuffer(3)
	for _, message := range []string{"a", "b", "c", "d", "e"} {
		buffer.Add(LogEntry{Message: message})
	}

	entries := buffer.List()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	got := entries[0].Message + entries[1].Message + entries[2].Message
	if got != "cde" {
		t.Fatalf("expected newest entries in order, got %q", got)
	}
}

func TestLogBufferEmpty(t *testing.T) {
	if entries := NewLogBuffer(4).List(); entries != nil {
		t.Fatalf("expected nil list, got %v", entries)
	}
}
