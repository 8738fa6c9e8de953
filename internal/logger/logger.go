// Package logger is the leveled log used across the engine, CLI and daemon.
package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

// Level orders message severities
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes prefixed lines at or above its level. A nil *Logger
// discards everything.
type Logger struct {
	logger *log.Logger
	level  Level
	file   *os.File
}

// New creates a logger writing to logFile, or to stderr when logFile is empty
func New(logFile, logLevel string) (*Logger, error) {
	var out io.Writer = os.Stderr
	var file *os.File

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		file = f
		out = f
	}

	return &Logger{
		logger: log.New(out, "", log.LstdFlags),
		level:  ParseLevel(logLevel),
		file:   file,
	}, nil
}

// NewWriter creates a logger on an arbitrary writer
func NewWriter(w io.Writer, logLevel string) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
		level:  ParseLevel(logLevel),
	}
}

// Discard returns a logger that drops all output
func Discard() *Logger {
	return nil
}

func (l *Logger) printf(level Level, prefix, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.logger.Printf(prefix+format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.printf(LevelDebug, "[DEBUG] ", format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.printf(LevelInfo, "[INFO] ", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.printf(LevelWarn, "[WARN] ", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.printf(LevelError, "[ERROR] ", format, args...)
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}
