// Package logger is the process-wide structured logging front, backed by
// log/slog.
//
// The level and format can be adjusted at runtime; the handler is rebuilt on
// each change. Output defaults to stdout.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string `mapstructure:"level" yaml:"level"`   // DEBUG, INFO, WARN, ERROR
	Format string `mapstructure:"format" yaml:"format"` // text, json
	Output string `mapstructure:"output" yaml:"output"` // stdout, stderr, or file path
}

var (
	mu      sync.RWMutex
	level   = slog.LevelInfo
	format  = "text"
	output  io.Writer = os.Stdout
	slogger *slog.Logger
)

func init() {
	reconfigure()
}

// reconfigure rebuilds the slog handler from the current settings.
// Callers must hold mu.
func reconfigure() {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slogger = slog.New(handler)
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
		}
		output = f
	}
	if cfg.Level != "" {
		level = parseLevel(cfg.Level)
	}
	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		format = f
	}
	reconfigure()
	return nil
}

// InitWithWriter initializes the logger with a custom io.Writer.
// This is primarily useful for testing.
func InitWithWriter(w io.Writer, levelName, formatName string) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	if levelName != "" {
		level = parseLevel(levelName)
	}
	if f := strings.ToLower(formatName); f == "text" || f == "json" {
		format = f
	}
	reconfigure()
}

// SetLevel sets the minimum log level. Invalid levels are ignored.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(name) {
	case "DEBUG", "INFO", "WARN", "ERROR":
		level = parseLevel(name)
		reconfigure()
	}
}

func parseLevel(name string) slog.Level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level with structured fields.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) {
	getLogger().Debug(msg, args...)
}

// Info logs at info level with structured fields.
func Info(msg string, args ...any) {
	getLogger().Info(msg, args...)
}

// Warn logs at warn level with structured fields.
func Warn(msg string, args ...any) {
	getLogger().Warn(msg, args...)
}

// Error logs at error level with structured fields.
func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// With returns a child logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}
