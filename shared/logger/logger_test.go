package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel []string
	}{
		{name: "debug", level: "debug", wantLevel: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{name: "info", level: "info", wantLevel: []string{"INFO", "WARN", "ERROR"}},
		{name: "warn", level: "warn", wantLevel: []string{"WARN", "ERROR"}},
		{name: "error", level: "error", wantLevel: []string{"ERROR"}},
		{name: "case insensitive", level: "WARN", wantLevel: []string{"WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message", slog.String("code", "500"))

			var levels []string
			for _, entry := range decodeLines(t, output) {
				levels = append(levels, entry["level"].(string))
			}
			assert.Equal(t, tt.wantLevel, levels)
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", NoColor: true, writer: output})
	require.NoError(t, err)

	logger.Info("console test", slog.String("job_id", "4"))

	// tint abbreviates levels
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "console test")
	assert.Contains(t, output.String(), "job_id=4")
}

func TestNew_SourceLocation(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", EnableSource: true, writer: output})
	require.NoError(t, err)

	logger.Info("message with source")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source := entries[0]["source"].(map[string]interface{})
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", slog.String("user_id", "1"))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "1", entry["user_id"])
}

func TestNew_FileOutputError(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "tracker.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "Info", expected: slog.LevelInfo},
		{level: "warning", expected: slog.LevelWarn},
		{level: " error ", expected: slog.LevelError},
		{level: "invalid", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_ComponentAndGroup(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", writer: output})
	require.NoError(t, err)

	logger.Component("events").Info("dispatched")
	logger.WithGroup("http").Info("request", slog.Int("status", 200))
	logger.With(slog.String("service", "tracker-web")).Info("started")

	entries := decodeLines(t, output)
	require.Len(t, entries, 3)
	assert.Equal(t, "events", entries[0]["component"])
	assert.Equal(t, float64(200), entries[1]["http"].(map[string]interface{})["status"])
	assert.Equal(t, "tracker-web", entries[2]["service"])
}

func TestNewDefaultAndDiscard(t *testing.T) {
	assert.NotNil(t, NewDefault().Logger)

	discard := Discard()
	discard.Info("dropped")
	assert.NoError(t, discard.Close())
}
