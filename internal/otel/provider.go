// Package otel builds the OpenTelemetry log pipeline: records bridged from
// slog are exported as JSON to a file and, when an endpoint is set, over
// OTLP/HTTP.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/SuiteSpot/extension/internal/config"
)

const (
	defaultServiceName  = "suitespot"
	defaultBatchTimeout = 5 * time.Second
)

var errNoExporter = errors.New("otel enabled but neither a log writer nor an endpoint is configured")

type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SessionID becomes service.instance.id so records from one game
	// session can be grouped.
	SessionID    string
	BatchTimeout time.Duration
	LogWriter    io.Writer
	Endpoint     string
	Insecure     bool
}

// FromSettings maps the persisted otel settings onto a Config.
func FromSettings(s config.OTelConfig, w io.Writer) Config {
	return Config{
		Enabled:      s.Enabled,
		ServiceName:  s.ServiceName,
		BatchTimeout: s.BatchTimeout,
		LogWriter:    w,
		Endpoint:     s.Endpoint,
		Insecure:     s.Insecure,
	}
}

// Provider owns the log pipeline. A disabled Provider has none, and every
// method on it is a no-op.
type Provider struct {
	logs *sdklog.LoggerProvider
}

func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(resourceAttrs(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	exporters, err := logExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout))))
	}
	return &Provider{logs: sdklog.NewLoggerProvider(opts...)}, nil
}

func resourceAttrs(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.SessionID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(cfg.SessionID))
	}
	return attrs
}

func logExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var out []sdklog.Exporter
	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file log exporter: %w", err)
		}
		out = append(out, exp)
	}
	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		out = append(out, exp)
	}
	if len(out) == 0 {
		return nil, errNoExporter
	}
	return out, nil
}

// LoggerProvider is nil when otel is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

func (p *Provider) Enabled() bool {
	return p.logs != nil
}

// Flush exports pending records.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flushing otel logs: %w", err)
	}
	return nil
}

// Shutdown flushes and stops every exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down otel logs: %w", err)
	}
	return nil
}
