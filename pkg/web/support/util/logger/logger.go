// Package logger provides the leveled logging facade used across the storefront web framework.
// It keeps a printf-style API and writes structured entries through zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is a type representing the logging level.
type LogLevel int

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues or warning messages.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for fatal error messages that cause application termination.
	LevelFatal
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	base     = newBase(os.Stdout, "storefront")
)

func newBase(w io.Writer, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// Configure replaces the output writer and service name of the base logger.
// Tests use it to capture output.
func Configure(w io.Writer, service string) {
	if w == nil {
		w = os.Stdout
	}
	if service == "" {
		service = "storefront"
	}
	mu.Lock()
	base = newBase(w, service)
	mu.Unlock()
}

// SetLogLevel sets the global log level for the framework.
// Valid string values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// If an invalid value is specified, the default "INFO" level is used and a warning is printed.
func SetLogLevel(level string) {
	var next LogLevel
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		next = LevelDebug
	case "INFO":
		next = LevelInfo
	case "WARN":
		next = LevelWarn
	case "ERROR":
		next = LevelError
	case "FATAL":
		next = LevelFatal
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		next = LevelInfo
	}
	mu.Lock()
	logLevel = next
	mu.Unlock()
	zerolog.SetGlobalLevel(zerologLevels[next])
}

// zerologLevels keeps loggers obtained through WithComponent at the same level as the facade.
var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
	LevelFatal: zerolog.FatalLevel,
}

// GetLogLevel returns the currently configured level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

func emit(level LogLevel, format string, v ...interface{}) {
	mu.RLock()
	enabled := logLevel <= level
	l := base
	mu.RUnlock()
	if !enabled {
		return
	}

	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = l.Debug()
	case LevelInfo:
		ev = l.Info()
	case LevelWarn:
		ev = l.Warn()
	default:
		ev = l.Error()
	}
	ev.Msgf(format, v...)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	emit(LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	emit(LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	emit(LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	emit(LevelError, format, v...)
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()
	l.WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}
