package statemap

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with statemap-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithBucketSize adds a bucket_size field to the logger.
func (l *Logger) WithBucketSize(bits uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket_size", bits),
	}
}

// WithCapacity adds a capacity field to the logger.
func (l *Logger) WithCapacity(buckets uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("capacity", buckets),
	}
}

// LogResize logs a completed resize.
func (l *Logger) LogResize(oldCapacity, newCapacity, elements uint64, duration time.Duration) {
	l.Debug("resized",
		"old_capacity", oldCapacity,
		"new_capacity", newCapacity,
		"elements", elements,
		"duration", duration,
	)
}

// LogSnapshotSave logs a snapshot save operation.
func (l *Logger) LogSnapshotSave(name string, bytes int64, err error) {
	if err != nil {
		l.Error("snapshot save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("snapshot saved",
			"name", name,
			"bytes", bytes,
		)
	}
}

// LogSnapshotLoad logs a snapshot load operation.
func (l *Logger) LogSnapshotLoad(name string, elements uint64, err error) {
	if err != nil {
		l.Error("snapshot load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("snapshot loaded",
			"name", name,
			"elements", elements,
		)
	}
}
