// SPDX-License-Identifier: MIT

// Package log provides a minimal leveled logger over the standard library
// logger. The level is stored atomically so the analysis loop can log from
// its own goroutine without coordination.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// Level defines the severity of a log message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the Level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a Level.
// Unrecognized names return LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level.
func SetLevel(level Level) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the current global logging level.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func shouldLog(level Level) bool {
	return level >= GetLevel()
}

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		logger.Printf("[%s] %s", LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		logger.Printf("[%s]  %s", LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		logger.Printf("[%s]  %s", LevelWarn, fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		logger.Printf("[%s] %s", LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits. Fatal messages are
// always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	logger.Fatalf("[%s] %s", LevelFatal, fmt.Sprintf(format, v...))
}
