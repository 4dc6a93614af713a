// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used across the driver.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Config controls how the driver's logger is constructed.
type Config struct {
	Output      io.Writer
	Level       string // "debug", "info", "warn", "error"
	ReportCaller bool
}

// DefaultConfig returns the logger configuration used when the host
// process does not supply its own: info level, stderr, no caller info.
func DefaultConfig() Config {
	return Config{
		Output: os.Stderr,
		Level:  "info",
	}
}

// Logger wraps charmbracelet/log so call sites never import it directly.
type Logger struct {
	inner *charmlog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportCaller:    cfg.ReportCaller,
		ReportTimestamp: true,
	})
	l.SetLevel(parseLevel(cfg.Level))
	return &Logger{inner: l}
}

func parseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// With returns a sub-logger carrying the given key/value pairs on every entry.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{inner: l.inner.With(keyvals...)}
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.inner.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.inner.Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.inner.Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.inner.Error(msg, keyvals...) }
