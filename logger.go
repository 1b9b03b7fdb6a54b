package unifile

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with unifile-specific context.
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

// WithScheme adds a scheme field to the logger.
func (l *Logger) WithScheme(scheme string) *Logger {
	return &Logger{
		Logger: l.Logger.With("scheme", scheme),
	}
}

// WithLocation adds a location field to the logger.
func (l *Logger) WithLocation(location string) *Logger {
	return &Logger{
		Logger: l.Logger.With("location", location),
	}
}

// WithFormat adds a format field to the logger.
func (l *Logger) WithFormat(format string) *Logger {
	return &Logger{
		Logger: l.Logger.With("format", format),
	}
}

// LogBuild logs a file system construction.
func (l *Logger) LogBuild(ctx context.Context, scheme, location string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "file system build failed",
			"scheme", scheme,
			"location", location,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "file system ready",
			"scheme", scheme,
			"location", location,
		)
	}
}

// LogConvert logs a file conversion.
func (l *Logger) LogConvert(ctx context.Context, input, output string, rows int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "convert failed",
			"input", input,
			"output", output,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "convert completed",
			"input", input,
			"output", output,
			"rows", rows,
		)
	}
}

// LogGenerate logs a random data generation.
func (l *Logger) LogGenerate(ctx context.Context, output string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "generate failed",
			"output", output,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "generate completed",
			"output", output,
			"rows", rows,
		)
	}
}
