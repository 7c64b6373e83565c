package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dicontainer/framework/config"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: false}, "test")
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	_, span := p.TracerProvider().Tracer("t").Start(context.Background(), "x")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := newProvider(config.TracingConfig{Enabled: true, Exporter: "stdout"}, "test", &buf)
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("t").Start(context.Background(), "request.scope")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.True(t, p.Enabled())
	assert.Contains(t, buf.String(), `"Name": "request.scope"`)
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "zipkin"}, "test")
	assert.Error(t, err)
}
