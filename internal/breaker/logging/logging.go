// Package logging builds the tint-backed slog.Logger every command
// threads explicitly rather than reaching for a package global.
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// New configures the application-wide logger for level, tagging every
// line with a run_id and the AWS profile in use.
func New(level, runID, profile string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	})

	return slog.New(handler).With("run_id", runID, "profile", profile)
}
