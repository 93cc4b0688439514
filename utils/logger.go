package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Logger is a small leveled logger. Fields attached via WithField are
// rendered sorted so log lines are stable.
type Logger struct {
	out    *log.Logger
	level  LogLevel
	fields map[string]interface{}
}

// NewLogger creates a logger writing to w at the given level.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	return &Logger{
		out:    log.New(w, "", log.LstdFlags),
		level:  level,
		fields: map[string]interface{}{},
	}
}

// SetLevel changes the minimum level that gets emitted.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// WithField returns a child logger that always emits key=value.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child logger carrying all of fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	child := &Logger{out: l.out, level: l.level, fields: make(map[string]interface{}, len(l.fields)+len(fields))}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (l *Logger) emit(level LogLevel, format string, v ...interface{}) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, l.fields[k]))
		}
		msg += " [" + strings.Join(parts, " ") + "]"
	}
	l.out.Printf("[%s] %s", level, msg)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(format string, v ...interface{}) { l.emit(DEBUG, format, v...) }

// Info logs at INFO level.
func (l *Logger) Info(format string, v ...interface{}) { l.emit(INFO, format, v...) }

// Warn logs at WARN level.
func (l *Logger) Warn(format string, v ...interface{}) { l.emit(WARN, format, v...) }

// Error logs at ERROR level.
func (l *Logger) Error(format string, v ...interface{}) { l.emit(ERROR, format, v...) }

// Log is the process-wide logger.
var Log = NewLogger(os.Stdout, INFO)
