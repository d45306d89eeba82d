package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("boom") }

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input, slog.LevelWarn))
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.Info("hello", "component", "test")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, "text")

	logger.Info("quiet")
	assert.Empty(t, buf.String())
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard()
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestLogRequest_WarnsOnFailureStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "text")

	LogRequest(logger, "GET", "http://example/stops", 502, 12.5)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status=502")
}

func TestSafeCloseWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "text")

	SafeCloseWithLogging(failingCloser{}, logger, "body")
	SafeCloseWithLogging(nil, logger, "nothing")

	assert.Contains(t, buf.String(), "resource=body")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestNilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogError(nil, "x", errors.New("y"))
		LogOperation(nil, "x")
		LogRequest(nil, "GET", "u", 200, 1)
	})
}
