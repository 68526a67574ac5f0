package scalareval

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with engine-specific context.
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

// WithBackend adds a backend field to the logger.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", name),
	}
}

// WithChunks adds a chunk count field to the logger.
func (l *Logger) WithChunks(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("chunks", n),
	}
}

// LogEvaluate logs an expression evaluation. The chunk count is carried by
// WithChunks once the query has been planned.
func (l *Logger) LogEvaluate(ctx context.Context, results int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "evaluate failed",
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "evaluate completed",
			"results", results,
			"elapsed", elapsed,
		)
	}
}

// LogMatchAny logs a match-any query.
func (l *Logger) LogMatchAny(ctx context.Context, sets, probe, matches int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "match any failed",
			"sets", sets,
			"probe", probe,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "match any completed",
			"sets", sets,
			"probe", probe,
			"matches", matches,
			"elapsed", elapsed,
		)
	}
}

// LogFallback logs a backend fallback decided at construction.
func (l *Logger) LogFallback(ctx context.Context, from, to string, cause error) {
	l.WarnContext(ctx, "backend unavailable, falling back",
		"from", from,
		"to", to,
		"cause", cause,
	)
}
