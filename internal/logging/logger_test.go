package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"info":   slog.LevelInfo,
		"warn":   slog.LevelWarn,
		"error":  slog.LevelError,
		"silent": LevelSilent,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseLevel("trace")
	assert.EqualError(t, err, `unknown log level "trace"`)
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("build finished", "session", "abc", "elements", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "build finished", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "abc", record["session"])
	assert.EqualValues(t, 3, record["elements"])
}

func TestNewHumanLogger(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	log := NewHumanLogger(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Warn("function mismatch", "element", "test::f")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "function mismatch")
	assert.Contains(t, out, "element=test::f")
}

func TestSilent(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "silent", "json")
	require.NoError(t, err)
	log.Error("nothing")
	assert.Empty(t, buf.String())
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "info", "xml")
	assert.EqualError(t, err, `unknown log format "xml"`)
}

func TestNewNopLogger(t *testing.T) {
	assert.False(t, NewNopLogger().Enabled(context.Background(), slog.LevelError))
}
