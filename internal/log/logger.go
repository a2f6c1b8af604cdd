// Package log provides a global logger with configurable logging level. Messages use printf-style
// formatting and are rendered through zerolog.

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anomalies that are not expected to occur during normal use.
	LevelWarning              // Logs anomalies that are expected to occur occasionally during normal use.
	LevelInfo                 // Logs major events.
	LevelDebug                // Logs detailed IO
)

var (
	globalLogLevel = LevelWarning
	logMutex       sync.Mutex
	base           = newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
)

var zerologLevels = map[Level]zerolog.Level{
	LevelDebug:   zerolog.DebugLevel,
	LevelInfo:    zerolog.InfoLevel,
	LevelWarning: zerolog.WarnLevel,
	LevelError:   zerolog.ErrorLevel,
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("component", "connectedcars").Logger()
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log entries to w. Entries written to w are JSON objects.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	base = newLogger(w)
}

// ParseLevel maps a level name ("none", "error", "warn", "info", "debug") to a Level.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "none", "off":
		return LevelNone, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelNone, fmt.Errorf("unknown log level '%s'", name)
}

func logger() (Level, zerolog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	return globalLogLevel, base
}

func log(level Level, format string, a ...interface{}) {
	current, l := logger()
	if level > current || level == LevelNone {
		return
	}
	l.WithLevel(zerologLevels[level]).Msgf(format, a...)
}

func Debug(format string, a ...interface{}) {
	log(LevelDebug, format, a...)
}
func Info(format string, a ...interface{}) {
	log(LevelInfo, format, a...)
}
func Warning(format string, a ...interface{}) {
	log(LevelWarning, format, a...)
}
func Error(format string, a ...interface{}) {
	log(LevelError, format, a...)
}
