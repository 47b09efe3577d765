// Package logging configures slog for the fetcher: text on the console,
// JSON in rotating files under the log directory.
package logging

import (
	"log/slog"
	"os"
)

var defaultLogger *slog.Logger

// Init sets up the global logger. logDir may be empty, in which case only
// the console handler is installed.
func Init(logDir string, level slog.Level) {
	defaultLogger = Setup(logDir, level)
	slog.SetDefault(defaultLogger)
}

// Package-level helpers so callers don't have to thread a logger around.
// Before Init they fall back to a plain console logger, shared across calls.

var fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

func fallback() *slog.Logger {
	return fallbackLogger
}

func Info(msg string, args ...any) {
	if defaultLogger == nil {
		fallback().Info(msg, args...)
		return
	}
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if defaultLogger == nil {
		fallback().Warn(msg, args...)
		return
	}
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if defaultLogger == nil {
		fallback().Error(msg, args...)
		return
	}
	defaultLogger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	if defaultLogger == nil {
		fallback().Debug(msg, args...)
		return
	}
	defaultLogger.Debug(msg, args...)
}

// ParseLevel maps a LOG_LEVEL string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
