// Package logging is a small leveled wrapper around log/slog, kept in the
// same shape as the teacher's internal/logger.go (SetVerbose/LogInfo/
// LogDebug/LogWarn/LogError) but backed by structured key/value logging
// instead of interpolated strings, per the pattern itsddvn-goclaw uses in
// internal/skills/watcher.go.
package logging

import (
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetVerbose switches the logger between info and debug level, matching
// the teacher's SetVerbose(bool) call shape.
func SetVerbose(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// LogError logs at error level with structured fields.
func LogError(msg string, args ...any) { logger.Error(msg, args...) }

// LogWarn logs at warn level with structured fields.
func LogWarn(msg string, args ...any) { logger.Warn(msg, args...) }

// LogInfo logs at info level with structured fields.
func LogInfo(msg string, args ...any) { logger.Info(msg, args...) }

// LogDebug logs at debug level with structured fields.
func LogDebug(msg string, args ...any) { logger.Debug(msg, args...) }

// Logger returns the current handler-backed logger, for callers that want
// to attach a persistent field set via .With(...).
func Logger() *slog.Logger { return logger }
