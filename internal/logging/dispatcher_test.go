package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuiteSpot/extension/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*DispatcherLogger)
		level string
		msg   string
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("handling event", "command", ":MAPS:LIST:") }, "debug", "handling event"},
		{"info", func(l *DispatcherLogger) { l.Info("queued", "command", ":PACKS:REFRESH:") }, "info", "queued"},
		{"error", func(l *DispatcherLogger) { l.Error("event failed", "command", ":SHUFFLE:ADD:") }, "error", "event failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["message"])
			assert.NotEmpty(t, entry["command"])
		})
	}
}

func TestDispatcherLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("event failed",
		"command", ":TRAINING:ADD:",
		"args", 3,
		"error", errors.New("pack not found"),
		"dangling")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "dispatcher", entry["component"])
	assert.Equal(t, ":TRAINING:ADD:", entry["command"])
	assert.Equal(t, float64(3), entry["args"])
	assert.Equal(t, "pack not found", entry["error"])
	assert.Equal(t, "dangling", entry[badKey])
}

func TestDispatcherLogger_NonStringKey(t *testing.T) {
	var buf bytes.Buffer
	NewDispatcherLogger(zerolog.New(&buf)).Info("queued", 42, "depth", 3)

	entry := decodeLine(t, &buf)
	assert.Equal(t, float64(42), entry[badKey])
	assert.Equal(t, float64(3), entry["depth"])
}

func TestDispatcherLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")
	assert.Zero(t, buf.Len())
}
