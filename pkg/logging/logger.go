package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// level ordering for filtering
var levelOrder = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// StructuredLogger writes structured log lines to an io.Writer
type StructuredLogger struct {
	out      io.Writer
	minLevel int
	format   string
	fields   []Field
	mu       *sync.Mutex
}

// NewLogger creates a structured logger writing to stderr
func NewLogger(config LogConfig) *StructuredLogger {
	return NewLoggerWithWriter(config, os.Stderr)
}

// NewLoggerWithWriter creates a structured logger with a custom writer
func NewLoggerWithWriter(config LogConfig, out io.Writer) *StructuredLogger {
	minLevel, ok := levelOrder[strings.ToLower(config.Level)]
	if !ok {
		minLevel = levelOrder["info"]
	}

	format := config.Format
	if format == "" {
		format = "json"
	}

	return &StructuredLogger{
		out:      out,
		minLevel: minLevel,
		format:   format,
		mu:       &sync.Mutex{},
	}
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string, fields ...Field) {
	l.log("debug", msg, fields)
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string, fields ...Field) {
	l.log("info", msg, fields)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string, fields ...Field) {
	l.log("warn", msg, fields)
}

// Error logs an error message
func (l *StructuredLogger) Error(msg string, fields ...Field) {
	l.log("error", msg, fields)
}

// WithFields returns a new logger with the given fields attached to every entry
func (l *StructuredLogger) WithFields(fields ...Field) Logger {
	child := *l
	child.fields = append(append([]Field(nil), l.fields...), fields...)
	return &child
}

// LogExecutionEvent records review execution lifecycle events
func (l *StructuredLogger) LogExecutionEvent(executionID string, event string, data map[string]interface{}) {
	fields := []Field{
		F("execution_id", executionID),
		F("event", event),
	}
	for _, key := range sortedKeys(data) {
		fields = append(fields, F(key, data[key]))
	}
	l.Info("execution "+event, fields...)
}

// LogDimensionEvent records per-dimension analysis events
func (l *StructuredLogger) LogDimensionEvent(executionID string, dimension string, event string, data map[string]interface{}) {
	fields := []Field{
		F("execution_id", executionID),
		F("dimension", dimension),
		F("event", event),
	}
	for _, key := range sortedKeys(data) {
		fields = append(fields, F(key, data[key]))
	}
	l.Info("dimension "+event, fields...)
}

func (l *StructuredLogger) log(level, msg string, fields []Field) {
	if levelOrder[level] < l.minLevel {
		return
	}

	all := append(append([]Field(nil), l.fields...), fields...)

	var line string
	if l.format == "text" {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s [%s] %s", time.Now().Format(time.RFC3339), strings.ToUpper(level), msg)
		for _, f := range all {
			fmt.Fprintf(&sb, " %s=%v", f.Key, f.Value)
		}
		line = sb.String()
	} else {
		entry := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339Nano),
			"level":     level,
			"message":   msg,
		}
		for _, f := range all {
			entry[f.Key] = f.Value
		}
		encoded, err := json.Marshal(entry)
		if err != nil {
			// Fall back to a plain line rather than dropping the entry
			line = fmt.Sprintf("%s [%s] %s (unencodable fields)", time.Now().Format(time.RFC3339), strings.ToUpper(level), msg)
		} else {
			line = string(encoded)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, line)
}

func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NopLogger discards all log output; it backs tests and optional dependencies
type NopLogger struct{}

// Debug implements Logger
func (NopLogger) Debug(string, ...Field) {}

// Info implements Logger
func (NopLogger) Info(string, ...Field) {}

// Warn implements Logger
func (NopLogger) Warn(string, ...Field) {}

// Error implements Logger
func (NopLogger) Error(string, ...Field) {}

// WithFields implements Logger
func (n NopLogger) WithFields(...Field) Logger { return n }

// LogExecutionEvent implements Logger
func (NopLogger) LogExecutionEvent(string, string, map[string]interface{}) {}

// LogDimensionEvent implements Logger
func (NopLogger) LogDimensionEvent(string, string, string, map[string]interface{}) {}
