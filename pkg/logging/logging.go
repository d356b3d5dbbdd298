// Package logging provides a process-wide structured logger.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var singleton atomic.Value

func init() {
	singleton.Store(newDefault())
}

func newDefault() *slog.Logger {
	if unstructuredLogs() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// unstructuredLogs reads the AGENTWORLD_UNSTRUCTURED_LOGS env toggle:
// "false"/"0" select JSON logs; unset or any other value defaults to
// true (human-readable text logs).
func unstructuredLogs() bool {
	v, ok := os.LookupEnv("AGENTWORLD_UNSTRUCTURED_LOGS")
	if !ok {
		return true
	}
	switch v {
	case "false", "0":
		return false
	case "true", "1":
		return true
	default:
		return true
	}
}

// Get returns the current process logger.
func Get() *slog.Logger { return singleton.Load().(*slog.Logger) }

// Set replaces the process logger. Intended for service startup and tests.
func Set(l *slog.Logger) { singleton.Store(l) }

// WithService returns a logger tagged with the given service name.
func WithService(service string) *slog.Logger {
	return Get().With("service", service)
}

func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// InfoCtx/ErrorCtx take a context so call sites can carry request-scoped
// attributes (request id, operation) without plumbing a logger by hand.
func InfoCtx(ctx context.Context, msg string, args ...any)  { Get().InfoContext(ctx, msg, args...) }
func ErrorCtx(ctx context.Context, msg string, args ...any) { Get().ErrorContext(ctx, msg, args...) }
