package logging

import (
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const DefaultBufferSize = 500

var levelOrder = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Logger records entries into a LogBuffer for /api/logs and prints them as
// key=value lines. A nil *Logger drops everything.
type Logger struct {
	buffer *LogBuffer
	out    *log.Logger
	min    Level
	fields map[string]string
}

// NewLogger prints to stderr.
func NewLogger(buffer *LogBuffer, minLevel Level) *Logger {
	return NewLoggerWithOutput(buffer, minLevel, os.Stderr)
}

func NewLoggerWithOutput(buffer *LogBuffer, minLevel Level, output io.Writer) *Logger {
	if buffer == nil {
		buffer = NewLogBuffer(DefaultBufferSize)
	}
	if output == nil {
		output = io.Discard
	}
	if _, known := levelOrder[minLevel]; !known {
		minLevel = LevelInfo
	}
	return &Logger{
		buffer: buffer,
		out:    log.New(output, "", log.LstdFlags),
		min:    minLevel,
	}
}

// Discard only keeps errors, in a one-slot buffer nobody reads.
func Discard() *Logger {
	return NewLoggerWithOutput(NewLogBuffer(1), LevelError, io.Discard)
}

func (l *Logger) Buffer() *LogBuffer {
	if l == nil {
		return nil
	}
	return l.buffer
}

// With scopes a logger to one connection or component. The parent is left
// unchanged.
func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	child.fields = mergeFields(l.fields, fields)
	return &child
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.log(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.log(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.log(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.log(LevelError, message, fields)
}

// Enabled lets callers skip building fields for entries that would be
// filtered out.
func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	rank, known := levelOrder[level]
	if !known {
		rank = levelOrder[LevelInfo]
	}
	return rank >= levelOrder[l.min]
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if !l.Enabled(level) {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Context:   mergeFields(l.fields, fields),
	}
	l.buffer.Add(entry)
	l.out.Print(formatEntry(entry))
}

// ParseLevel accepts the names used in config.yaml and WATCHFILE_LOG_LEVEL.
// An empty value means info.
func ParseLevel(value string) (Level, bool) {
	name := strings.ToLower(strings.TrimSpace(value))
	switch name {
	case "":
		return LevelInfo, true
	case "warn":
		return LevelWarning, true
	}
	if _, known := levelOrder[Level(name)]; known {
		return Level(name), true
	}
	return "", false
}

// mergeFields returns nil when there is nothing to record.
func mergeFields(base, extra map[string]string) map[string]string {
	if len(base)+len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(extra))
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	return merged
}

func formatEntry(entry LogEntry) string {
	parts := []string{
		"level=" + string(entry.Level),
		"msg=" + strconv.Quote(entry.Message),
	}
	for _, key := range slices.Sorted(maps.Keys(entry.Context)) {
		parts = append(parts, key+"="+strconv.Quote(entry.Context[key]))
	}
	return strings.Join(parts, " ")
}
