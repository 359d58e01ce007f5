package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName names the OTel instrumentation scope for log records.
const ServiceName = "suitespot"

// consoleWriter receives logs when no file is configured. Stdout carries the
// host command protocol, so console output goes to stderr.
var consoleWriter io.Writer = os.Stderr

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	context ContextProvider

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetContextProvider attaches dynamic attributes (session, active map type)
// to every record. It takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.context = p
}

// Setup initializes the logging system with file and optional OTel output.
// If provider is nil, OTel logging is disabled. Extra sinks such as a GELF
// handler receive every record as well.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, sinks ...slog.Handler) {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{Level: lvl, ReplaceAttr: utcTimestamps}

	text := consoleWriter
	if file != nil {
		text = file
	}
	handlers := []slog.Handler{slog.NewTextHandler(text, opts)}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}
	handlers = append(handlers, sinks...)

	var root slog.Handler = NewFanout(handlers...)

	m.mu.Lock()
	if m.context != nil {
		root = NewContextHandler(root, m.context)
	}
	m.logProvider = provider
	m.logger = slog.New(root)
	logger := m.logger
	m.mu.Unlock()

	logger.Info("Logging initialized", "level", level)
}

// utcTimestamps renders record times as RFC 3339 in UTC.
func utcTimestamps(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	m.mu.RLock()
	provider := m.logProvider
	m.mu.RUnlock()
	if provider != nil {
		return provider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog forwards a message logged by the host plugin, tagged with its
// source, at the given level.
func (m *SlogManager) WriteLog(source, data, level string) {
	m.mu.RLock()
	logger := m.logger
	m.mu.RUnlock()
	if logger == nil {
		return
	}
	logger.Log(context.Background(), parseLevel(level), data, "source", source)
}

