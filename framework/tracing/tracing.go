package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/km-arc/go-dicontainer/framework/config"
)

// Provider manages the OpenTelemetry tracer provider handed to the container
// and the HTTP layer.
type Provider struct {
	sdk     *sdktrace.TracerProvider
	tp      trace.TracerProvider
	enabled bool
}

// NewProvider creates the trace provider. When tracing is disabled a no-op
// provider is returned.
//
//	TRACING_EXPORTER=stdout  pretty-printed spans on stdout
//	TRACING_EXPORTER=none    spans are created for correlation, never exported
func NewProvider(cfg config.TracingConfig, serviceName string) (*Provider, error) {
	return newProvider(cfg, serviceName, os.Stdout)
}

func newProvider(cfg config.TracingConfig, serviceName string, out io.Writer) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tp: noop.NewTracerProvider()}, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithSyncer(exporter))
	}
	sdk := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(sdk)

	return &Provider{sdk: sdk, tp: sdk, enabled: true}, nil
}

// TracerProvider returns the provider to pass to container.WithTracerProvider.
func (p *Provider) TracerProvider() trace.TracerProvider { return p.tp }

// Enabled returns whether tracing is enabled.
func (p *Provider) Enabled() bool { return p.enabled }

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk != nil {
		return p.sdk.Shutdown(ctx)
	}
	return nil
}
