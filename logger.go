package kernelgo

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with kernelgo-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to w.
// A nil w writes to stderr.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs to w.
// A nil w writes to stderr.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithOp adds an op field to the logger.
func (l *Logger) WithOp(op string) *Logger {
	return &Logger{
		Logger: l.Logger.With("op", op),
	}
}

// WithRequestID adds a request id field to the logger.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("request_id", id),
	}
}

// LogExecute logs a kernel request.
func (l *Logger) LogExecute(ctx context.Context, request, descriptor string, err error) {
	if err != nil {
		l.WarnContext(ctx, "request failed",
			"request", request,
			"kind", KindOf(err).String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "request executed",
			"request", request,
			"result", descriptor,
		)
	}
}

// LogRejected logs a request refused by the memory guard.
func (l *Logger) LogRejected(ctx context.Context, op string, requested, used, budget int64) {
	l.WarnContext(ctx, "request rejected by memory guard",
		"op", op,
		"requested", requested,
		"used", used,
		"budget", budget,
	)
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, action, prefix string, arrays int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+action+" failed",
			"prefix", prefix,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+action+" completed",
			"prefix", prefix,
			"arrays", arrays,
		)
	}
}
