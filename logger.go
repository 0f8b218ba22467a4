package offheap

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with allocator-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithName adds an object name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// LogStore logs a store operation.
func (l *Logger) LogStore(ctx context.Context, name string, size, addr uint64, reused bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "store failed",
			"name", name,
			"size", size,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "store completed",
		"name", name,
		"size", size,
		"addr", addr,
		"reused", reused,
	)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "remove completed",
		"name", name,
	)
}

// LogGC logs a collection cycle.
func (l *Logger) LogGC(ctx context.Context, merged, reachable, collected int) {
	l.InfoContext(ctx, "garbage collection completed",
		"merged_runs", merged,
		"reachable", reachable,
		"collected", collected,
	)
}

// LogExport logs a report export.
func (l *Logger) LogExport(ctx context.Context, name string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "report export failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "report exported",
		"name", name,
		"bytes", bytes,
	)
}
