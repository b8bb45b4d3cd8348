package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/inkfleet/inkfleet/internal/config"
)

var logger *slog.Logger

func init() {
	logger = newLogger()
	slog.SetDefault(logger)
}

func newLogger() *slog.Logger {
	level := parseLevel(config.Get("LOG_LEVEL", "info"))

	w := os.Stdout
	opts := &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}
	return slog.New(tint.NewHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level with structured key/value pairs.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs at info level with structured key/value pairs.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs at warn level with structured key/value pairs.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs at error level with structured key/value pairs.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// WithComponent returns a logger scoped to a named component.
func WithComponent(component string) *slog.Logger {
	return logger.With("component", component)
}

// InfoWithComponent logs at info level tagged with a component name.
func InfoWithComponent(component, msg string, args ...any) {
	WithComponent(component).Info(msg, args...)
}

// WarnWithComponent logs at warn level tagged with a component name.
func WarnWithComponent(component, msg string, args ...any) {
	WithComponent(component).Warn(msg, args...)
}

// ErrorWithComponent logs at error level tagged with a component name.
func ErrorWithComponent(component, msg string, args ...any) {
	WithComponent(component).Error(msg, args...)
}
