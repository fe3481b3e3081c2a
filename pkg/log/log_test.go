package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	tcs := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"trace":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tcs {
		assert.Equal(t, want, GetLevel(in), in)
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "JSON")
	logger.Debug("hidden")
	logger.Info("stored", "key", "player:1", "error", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stored", line["msg"])
	assert.Equal(t, "player:1", line["key"])
	assert.Equal(t, "boom", line["err"])
	assert.NotContains(t, line, "error")
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "")
	logger.Debug("visible", "n", 3)
	assert.Contains(t, buf.String(), "msg=visible")
	assert.Contains(t, buf.String(), "n=3")

	NewNop().Error("dropped")
}
