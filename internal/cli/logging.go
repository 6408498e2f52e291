package cli

import (
	"log/slog"
	"os"
	"strings"
)

// createLogger creates a stderr text logger at the given level
func createLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}

// activeLogLevel returns the configured log level, tolerating a nil
// config when a handler runs outside the root command's setup.
func activeLogLevel() string {
	if cfg == nil {
		return "info"
	}
	return cfg.LogLevel
}
