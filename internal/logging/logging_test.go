package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestLogAdjustment(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSymbol(zerolog.New(&buf), "ACME")

	LogAdjustment(logger, "ACME", "2016-04-01", "Bonus", 0.5, 12)
	m := decodeLine(t, &buf)
	assert.Equal(t, "adjustment", m["event"])
	assert.Equal(t, "2016-04-01", m["exec_date"])
	assert.Equal(t, "Bonus", m["action_type"])
	assert.Equal(t, 0.5, m["factor"])
	assert.Equal(t, 12.0, m["rows"])
	assert.Equal(t, "info", m["level"])
}

func TestLogSkip(t *testing.T) {
	var buf bytes.Buffer
	LogSkip(zerolog.New(&buf), "ACME", "2016-04-01", "Rights", errors.New("no prior data"))
	m := decodeLine(t, &buf)
	assert.Equal(t, "adjustment_skipped", m["event"])
	assert.Equal(t, "no prior data", m["error"])
	assert.Equal(t, "warn", m["level"])
}

func TestLogWindowUpdate(t *testing.T) {
	var buf bytes.Buffer
	LogWindowUpdate(WithOperation(zerolog.New(&buf), "update_4w"), "4w", true, 3, 120, time.Second)
	m := decodeLine(t, &buf)
	assert.Equal(t, "window_update", m["event"])
	assert.Equal(t, "update_4w", m["operation"])
	assert.Equal(t, true, m["overwrite"])
	assert.Equal(t, 120.0, m["rows"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
	assert.True(t, ValidLevel("error"))
	assert.False(t, ValidLevel("verbose"))
}

func TestNewLoggerWithConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricebook.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "info", File: true, FilePath: path, MaxSize: 1})
	logger.Info().Msg("hello")
	logger.Debug().Msg("hidden")

	assert.FileExists(t, path)
}
