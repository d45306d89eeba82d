// Package logging holds the slog helpers shared by every futar component.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type contextKey struct{}

// New builds a logger writing to w. format is "json" or "text"; anything else
// falls back to text.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a configuration string to a slog level.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// LogError logs err at error level with a message and optional attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		return
	}
	logger.Error(msg, append([]any{slog.String("error", errString(err))}, attrs...)...)
}

// LogOperation records a named operation at info level.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) {
	if logger == nil {
		return
	}
	logger.Info(operation, attrs...)
}

// LogRequest records a finished HTTP exchange, inbound or outbound.
func LogRequest(logger *slog.Logger, method, url string, status int, durationMs float64, attrs ...any) {
	if logger == nil {
		return
	}
	base := []any{
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", status),
		slog.Float64("duration_ms", durationMs),
	}
	level := slog.LevelInfo
	if status >= 400 || status == 0 {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "http_request", append(base, attrs...)...)
}

// SafeCloseWithLogging closes c and logs a failure instead of returning it.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, resource string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "failed to close resource", err, slog.String("resource", resource))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
