package pkg

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs installs a debug-level text logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := DefaultLogger
	t.Cleanup(func() { SetLogger(original) })
	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		t.Run(level.String(), func(t *testing.T) {
			SetLogLevel(level)
			assert.Equal(t, level, GetLogLevel())
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	require.NotNil(t, logger)

	logger.Info("test message")
	assert.Contains(t, buf.String(), `"msg":"test message"`)
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func(Component, string, ...any)
	}{
		{"debug", LogDebug},
		{"info", LogInfo},
		{"warn", LogWarn},
		{"error", LogError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			tt.log(ComponentPort, tt.name+" message", "port", 2)
			out := buf.String()
			assert.Contains(t, out, tt.name+" message")
			assert.Contains(t, out, "component=port")
			assert.Contains(t, out, "port=2")
		})
	}
}

func TestLogErr_FlattensDriverError(t *testing.T) {
	buf := captureLogs(t)

	err := CodeError(CauseCommandFailed, 5, "address device")
	LogErr(ComponentPort, "port configuration failed", err, "port", 1)

	out := buf.String()
	assert.Contains(t, out, `cause="command failed"`)
	assert.Contains(t, out, "file=log_test.go")
	assert.Contains(t, out, "code=5")
	assert.Contains(t, out, `detail="address device"`)
	assert.Contains(t, out, "port=1")
}

func TestLogErr_PlainError(t *testing.T) {
	buf := captureLogs(t)

	LogErr(ComponentTool, "failed", errors.New("boom"))
	assert.Contains(t, buf.String(), "error=boom")
}
