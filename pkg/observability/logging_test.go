package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/internal/config"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "warn", LogFormat: "json"})

	out := captureStdout(t, func() {
		logger.Debug(context.Background(), "debug message")
		logger.Info(context.Background(), "info message")
		logger.Warn(context.Background(), "warn message")
		logger.Error(context.Background(), "error message", nil)
	})

	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLoggerJSONFormatIncludesFieldsAndError(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "debug", LogFormat: "json"})

	out := captureStdout(t, func() {
		logger.Error(context.Background(), "tap failed", assertError("boom"), map[string]interface{}{"element_id": "42"})
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, LogLevelError, entry.Level)
	assert.Equal(t, "tap failed", entry.Message)
	assert.Equal(t, "agent", entry.Service)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, "42", entry.Fields["element_id"])
}

func TestLoggerTextFormatOmitsFields(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "info", LogFormat: "text"})

	out := captureStdout(t, func() {
		logger.Info(context.Background(), "session started")
	})

	assert.Contains(t, out, "agent")
	assert.Contains(t, out, "session started")
	assert.NotContains(t, out, "{")
}

func TestWithFieldsMergesPresetFields(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "debug", LogFormat: "json"})
	fl := logger.WithFields(map[string]interface{}{"session_id": "s-1"})

	out := captureStdout(t, func() {
		fl.Info(context.Background(), "step executed")
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "s-1", entry.Fields["session_id"])
}

func TestShouldLogDefaultsUnknownConfiguredLevelToInfo(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "nonsense", LogFormat: "json"})
	assert.False(t, logger.shouldLog(LogLevelDebug))
	assert.True(t, logger.shouldLog(LogLevelInfo))
}

func TestPerformanceLoggerLogsSlowOperationOnlyAboveThreshold(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "debug", LogFormat: "json"})
	pl := NewPerformanceLogger(logger)

	out := captureStdout(t, func() {
		pl.LogSlowOperation(context.Background(), "decide", 50, 100)
		pl.LogSlowOperation(context.Background(), "decide", 500, 100)
	})

	assert.Equal(t, 1, countLines(out))
	assert.Contains(t, out, "Slow operation detected: decide")
}

func TestAuditLoggerRecordsUserActionAndSystemEvent(t *testing.T) {
	logger := NewLogger(config.ObservabilityConfig{ServiceName: "agent", LogLevel: "debug", LogFormat: "json"})
	al := NewAuditLogger(logger)

	out := captureStdout(t, func() {
		al.LogUserAction(context.Background(), "click", "sess-1", "42")
		al.LogSystemEvent(context.Background(), "session_started", "session")
	})

	assert.Contains(t, out, "step executed: click")
	assert.Contains(t, out, "session event: session_started")
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
