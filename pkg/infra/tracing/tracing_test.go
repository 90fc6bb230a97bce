package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{"disabled ignores everything", func(o *Options) { o.ExporterType = "carrier-pigeon" }, false},
		{"enabled defaults", func(o *Options) { o.Enabled = true }, false},
		{"missing endpoint", func(o *Options) { o.Enabled = true; o.Endpoint = "" }, true},
		{"stdout needs no endpoint", func(o *Options) { o.Enabled = true; o.ExporterType = ExporterStdout; o.Endpoint = "" }, false},
		{"bad exporter", func(o *Options) { o.Enabled = true; o.ExporterType = "zipkin" }, true},
		{"bad sampler", func(o *Options) { o.Enabled = true; o.SamplerType = "sometimes" }, true},
		{"ratio out of range", func(o *Options) { o.Enabled = true; o.SamplerRatio = 1.5 }, true},
		{"zero batch timeout", func(o *Options) { o.Enabled = true; o.BatchTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.mutate(opts)
			err := opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDisabledProviderIsInert(t *testing.T) {
	p, err := NewProvider(context.Background(), NewOptions(), "test")
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestNoopExporterProvider(t *testing.T) {
	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = ExporterNoop

	p, err := NewProvider(context.Background(), opts, "test")
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	ctx, span := StartSpan(context.Background(), "probe")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()
}

func TestStartSpanAndEnd(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	Install(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))

	_, span := StartSpan(context.Background(), "relay.publish", attribute.String(AttrStream, "call-1"))
	End(span, nil)
	_, span = StartSpan(context.Background(), "ingest")
	End(span, errors.New("redis down"))

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "relay.publish", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String(AttrStream, "call-1"))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "redis down", spans[1].Status.Description)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
