// Package logging wires log/slog to a handler fit for the environment:
// colored tint output for terminals, plain JSON for anything that ships
// logs somewhere else.
//
// Environment variables:
//
//	LOG_LEVEL:  debug, info, warn, error (default: info)
//	LOG_FORMAT: console, json (default: console)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger based on LOG_LEVEL and LOG_FORMAT.
func Setup() {
	SetupWithLevel(levelFromEnv())
}

// SetupWithLevel installs the default logger at the given level, honoring
// LOG_FORMAT for the output shape.
func SetupWithLevel(level slog.Level) {
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	}
	slog.SetDefault(slog.New(handler))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
