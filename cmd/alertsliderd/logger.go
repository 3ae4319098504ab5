package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is the daemon's verbosity as written in config and flags.
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

var slogLevels = map[LogLevel]slog.Level{
	LogLevelError: slog.LevelError,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelDebug: slog.LevelDebug,
}

// parseLogLevel accepts any case and "warning" as an alias of "warn".
func parseLogLevel(s string) (LogLevel, error) {
	lvl := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if lvl == "warning" {
		lvl = LogLevelWarn
	}
	if _, ok := slogLevels[lvl]; !ok {
		return "", fmt.Errorf("unknown log level %q (want error, warn, info or debug)", s)
	}
	return lvl, nil
}

// setupLogger returns a text logger on stdout. Unknown levels log at info.
func setupLogger(level LogLevel) *slog.Logger {
	l, ok := slogLevels[level]
	if !ok {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
