// Package debug provides process-wide diagnostic logging using log/slog.
// Logging is off until Init enables it; the planning core logs through this
// package so library callers pay nothing by default.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
)

// EnvVar turns debug logging on when set to a true value
const EnvVar = "SCHEMADIFF_DEBUG"

// Format selects the handler used for enabled logging
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

var (
	// logger is the global debug logger instance
	logger *slog.Logger
	// enabled indicates if debug logging is enabled
	enabled bool
	// out and format are reused when Init is called again
	out    io.Writer = os.Stderr
	format           = TextFormat
	// mu protects the state above
	mu sync.RWMutex
)

func init() {
	on, _ := strconv.ParseBool(os.Getenv(EnvVar))
	Init(on)
}

// Init enables or disables debug logging. When disabled, every record is
// discarded without being formatted.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	logger = newLogger()
}

// SetOutput redirects enabled logging to w in the given format
func SetOutput(w io.Writer, f Format) {
	mu.Lock()
	defer mu.Unlock()

	out, format = w, f
	logger = newLogger()
}

// newLogger must be called with mu held
func newLogger() *slog.Logger {
	if !enabled {
		return slog.New(slog.DiscardHandler)
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if format == JSONFormat {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
