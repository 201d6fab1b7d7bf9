// Package logging provides structured logging for the chain indexer:
// component-scoped loggers over charmbracelet/log, plus an optional
// callback tap so an embedder can consume the follower's log stream
// programmatically instead of scraping stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Level represents a log level.
type Level = log.Level

// Log levels.
const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
	FatalLevel = log.FatalLevel
)

// Callback receives every Info/Error call after the underlying logger has
// handled it, carrying the level name and the rendered message. It fires
// even when the logger's level filters the line out of the writer.
type Callback func(level string, msg string)

// Logger wraps charmbracelet/log with component prefixes and the optional
// callback tap.
type Logger struct {
	*log.Logger
	timeFormat string
	callback   Callback
}

// Config holds logger configuration.
type Config struct {
	Level      string
	TimeFormat string
	Output     io.Writer
	Callback   Callback
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		TimeFormat: time.TimeOnly,
		Output:     os.Stderr,
	}
}

// New creates a new logger with the given configuration.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	logger := log.NewWithOptions(output, log.Options{
		ReportCaller:    false,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
	})
	logger.SetLevel(ParseLevel(cfg.Level))

	return &Logger{Logger: logger, timeFormat: cfg.TimeFormat, callback: cfg.Callback}
}

// Default returns the default logger.
func Default() *Logger {
	return New(DefaultConfig())
}

// ParseLevel parses a string level into a log.Level.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Info logs at info level and feeds the callback tap, if any.
func (l *Logger) Info(msg interface{}, keyvals ...interface{}) {
	l.Logger.Info(msg, keyvals...)
	l.emit("info", msg)
}

// Error logs at error level and feeds the callback tap, if any.
func (l *Logger) Error(msg interface{}, keyvals ...interface{}) {
	l.Logger.Error(msg, keyvals...)
	l.emit("error", msg)
}

func (l *Logger) emit(level string, msg interface{}) {
	if l.callback != nil {
		l.callback(level, fmt.Sprint(msg))
	}
}

// With returns a new logger with the given key-value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), timeFormat: l.timeFormat, callback: l.callback}
}

// Component returns a logger prefixed for a specific subsystem (follower,
// supervisor, ...), inheriting the parent's level and callback.
func (l *Logger) Component(name string) *Logger {
	timeFormat := l.timeFormat
	if timeFormat == "" {
		timeFormat = time.TimeOnly
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Prefix:          name,
	})
	logger.SetLevel(l.GetLevel())
	return &Logger{Logger: logger, timeFormat: timeFormat, callback: l.callback}
}

// Global default logger instance.
var defaultLogger = Default()

// SetDefault sets the default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// GetDefault returns the default logger.
func GetDefault() *Logger {
	return defaultLogger
}
