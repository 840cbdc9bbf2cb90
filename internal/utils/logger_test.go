package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(false, "json", &buf)

	logger.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	logger.SetDebug(true)
	assert.True(t, logger.IsDebug())
	logger.Debug("shown", 42)
	assert.Contains(t, buf.String(), "shown 42")

	logger.SetDebug(false)
	assert.False(t, logger.IsDebug())
}

func TestLoggerJSONRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(false, "json", &buf)

	logger.Warn("lookup failed:", "boom")

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "lookup failed: boom", record["msg"])
}
