package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_FileOnly_NoConsole(t *testing.T) {
	console := captureConsole(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&fileBuf, "info", nil)
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file", "log should appear in file")
	assert.Empty(t, console.String(), "nothing should reach the console when a file is provided")
}

func TestSetup_NoFile_WritesToConsole(t *testing.T) {
	console := captureConsole(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("hello console")

	assert.Contains(t, console.String(), "hello console")
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	mapType := "training"
	m.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("session", "abc"), slog.String("mapType", mapType)}
	})
	m.Setup(&buf, "info", nil)

	m.Logger().Info("first")
	mapType = "workshop"
	m.Logger().Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "session=abc")
	assert.Contains(t, lines[1], "mapType=training")
	assert.Contains(t, lines[2], "mapType=workshop")
}

func TestSetup_ExtraSinks(t *testing.T) {
	var file, sink bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, slog.NewJSONHandler(&sink, &slog.HandlerOptions{Level: slog.LevelWarn}))

	m.Logger().Info("info only")
	m.Logger().Warn("to both")

	assert.Contains(t, file.String(), "info only")
	assert.Contains(t, file.String(), "to both")
	assert.NotContains(t, sink.String(), "info only")
	assert.Contains(t, sink.String(), `"msg":"to both"`)
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)

			m.Logger().Debug("bag drawn", "code", "A503-264C-A7EB-D282")
			m.Logger().Info("map loaded")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "bag drawn"))
			assert.Contains(t, buf.String(), "map loaded")
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var before, after bytes.Buffer
	m := NewSlogManager()

	m.Setup(&before, "info", nil)
	m.Logger().Info("before reload")
	m.Setup(&after, "info", nil)
	m.Logger().Info("after reload")

	assert.NotContains(t, before.String(), "after reload")
	assert.Contains(t, after.String(), "after reload")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	m.WriteLog("plugin", "dropped", "info")
}

func TestWriteLog_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "level=DEBUG"},
		{"INFO", "level=INFO"},
		{"warning", "level=WARN"},
		{"error", "level=ERROR"},
		{"verbose", "level=INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("SettingsUI", "pack list opened", tt.level)

			out := buf.String()
			assert.Contains(t, out, "pack list opened")
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "source=SettingsUI")
		})
	}
}

// captureConsole swaps the console writer for a buffer until the test ends.
func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := consoleWriter
	consoleWriter = &buf
	t.Cleanup(func() { consoleWriter = orig })
	return &buf
}
