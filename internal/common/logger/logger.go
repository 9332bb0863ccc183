// Package logger provides leveled logging for feedtick, backed by zerolog.
// Console output goes to stderr in a human-readable form; optional file
// logging appends structured JSON lines under XDG_STATE_HOME.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelQuiet // No output
)

var zerologLevels = map[Level]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
	LevelQuiet: zerolog.Disabled,
}

// Logger handles application logging
type Logger struct {
	mu         sync.Mutex
	level      Level
	console    io.Writer
	fileOutput *os.File
	zl         zerolog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = &Logger{
			level:   LevelInfo,
			console: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen},
		}
		defaultLogger.rebuild()
	})
	return defaultLogger
}

// rebuild recreates the underlying zerolog logger after a level or
// destination change. Callers must hold mu.
func (l *Logger) rebuild() {
	writers := []io.Writer{l.console}
	if l.fileOutput != nil {
		writers = append(writers, l.fileOutput)
	}
	l.zl = zerolog.New(io.MultiWriter(writers...)).
		Level(zerologLevels[l.level]).
		With().Timestamp().Logger()
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// SetVerbose enables debug output
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.SetLevel(LevelDebug)
	}
}

// SetQuiet disables all output except errors
func (l *Logger) SetQuiet(quiet bool) {
	if quiet {
		l.SetLevel(LevelError)
	}
}

// EnableFileLogging enables logging to a file in addition to the console
func (l *Logger) EnableFileLogging() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	logDir := LogDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, "feedtick.log")
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileOutput = f
	l.rebuild()
	return nil
}

// Close closes the log file if open
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fileOutput != nil {
		l.fileOutput.Close()
		l.fileOutput = nil
		l.rebuild()
	}
}

// LogDir returns the log directory path
func LogDir() string {
	return filepath.Join(xdg.StateHome, "feedtick", "logs")
}

// Component returns a zerolog logger tagged with a component name, for
// call sites that want structured fields instead of printf formatting.
func (l *Logger) Component(name string) zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl.With().Str("component", name).Logger()
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelDebug:
		zl.Debug().Msg(msg)
	case LevelInfo:
		zl.Info().Msg(msg)
	case LevelWarn:
		zl.Warn().Msg(msg)
	case LevelError:
		zl.Error().Msg(msg)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Package-level convenience functions
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }
func Info(format string, args ...interface{})  { Default().Info(format, args...) }
func Warn(format string, args ...interface{})  { Default().Warn(format, args...) }
func Error(format string, args ...interface{}) { Default().Error(format, args...) }
func SetVerbose(v bool)                        { Default().SetVerbose(v) }
func SetQuiet(q bool)                          { Default().SetQuiet(q) }

// Component returns a component-tagged zerolog logger from the default logger.
func Component(name string) zerolog.Logger { return Default().Component(name) }
