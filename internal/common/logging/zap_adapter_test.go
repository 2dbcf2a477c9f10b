package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestZapAdapter(t *testing.T) {
	t.Run("basic logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{
			Level:      DebugLevel,
			Output:     &buf,
			TimeFormat: time.RFC3339,
		})
		require.NoError(t, err)

		logger.Debug("debug message", Field{"key", "value"})
		logger.Info("info message", Field{"count", 42})
		logger.Warn("warn message", Field{"enabled", true})
		logger.Error("error message", errors.New("test error"), Field{"code", "ERR123"})

		output := buf.String()
		assert.Contains(t, output, "DEBUG")
		assert.Contains(t, output, "debug message")
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "info message")
		assert.Contains(t, output, "WARN")
		assert.Contains(t, output, "warn message")
		assert.Contains(t, output, "ERROR")
		assert.Contains(t, output, "error message")
		assert.Contains(t, output, "test error")
	})

	t.Run("with fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf})
		require.NoError(t, err)

		logger = logger.WithFields(
			Field{"component", "pipeline"},
			Field{"app_id", "app123"},
		)
		logger.Info("test message", Field{"rows", 2})

		output := buf.String()
		assert.Contains(t, output, "component")
		assert.Contains(t, output, "pipeline")
		assert.Contains(t, output, "app123")
		assert.Contains(t, output, "rows")
	})

	t.Run("with request id in context", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf})
		require.NoError(t, err)

		ctx := ContextWithRequestID(context.Background(), "req-456")
		logger.WithContext(ctx).Info("context test")

		output := buf.String()
		assert.Contains(t, output, "request_id")
		assert.Contains(t, output, "req-456")
	})

	t.Run("context without request id returns same logger", func(t *testing.T) {
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &bytes.Buffer{}})
		require.NoError(t, err)

		assert.Same(t, logger, logger.WithContext(context.Background()))
	})

	t.Run("log level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: WarnLevel, Output: &buf})
		require.NoError(t, err)

		logger.Debug("debug - should not appear")
		logger.Info("info - should not appear")
		logger.Warn("warn - should appear")
		logger.Error("error - should appear", nil)

		output := buf.String()
		assert.NotContains(t, output, "debug - should not appear")
		assert.NotContains(t, output, "info - should not appear")
		assert.Contains(t, output, "warn - should appear")
		assert.Contains(t, output, "error - should appear")
	})

	t.Run("json encoding", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf, JSON: true})
		require.NoError(t, err)

		logger.Info("json line", Field{"app_id", "app123"}, Field{"rows", 3})

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
		assert.Equal(t, "json line", entry["msg"])
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "app123", entry["app_id"])
		assert.Equal(t, float64(3), entry["rows"])
	})

	t.Run("prefix names the logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf, Prefix: "okta"})
		require.NoError(t, err)

		logger.Info("named")
		assert.Contains(t, buf.String(), "okta")
	})
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info("dropped")
		logger.WithFields(Field{"k", "v"}).Error("dropped", errors.New("x"))
	})
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: DebugLevel, Output: &buf})
	require.NoError(t, err)
	SetGlobalLogger(logger)

	Info("global info")
	Error("global error", errors.New("boom"))
	WithContext(ContextWithRequestID(context.Background(), "req-1")).Info("with request id")

	output := buf.String()
	assert.Contains(t, output, "global info")
	assert.Contains(t, output, "global error")
	assert.Contains(t, output, "boom")
	assert.Contains(t, output, "with request id")
	assert.Contains(t, output, "req-1")
}

func TestGlobalLogger_Concurrency(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				SetGlobalLogger(NewNopLogger())
				return
			}
			GetGlobalLogger().Info("concurrent")
		}(i)
	}
	wg.Wait()
}
