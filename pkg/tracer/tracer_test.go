package tracer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "docs-api"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, newSampler(0.25).Description(), "ParentBased")
}

func TestServiceResource(t *testing.T) {
	res := serviceResource(Config{ServiceName: "docs-api", ServiceVersion: "1.2.0", Environment: "staging"})

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "docs-api", values[string(semconv.ServiceNameKey)])
	assert.Equal(t, "1.2.0", values[string(semconv.ServiceVersionKey)])
	assert.Equal(t, "staging", values[string(semconv.DeploymentEnvironmentKey)])
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "gateway")

	RecordError(span, nil)
	RecordError(span, stderrors.New("provider down"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "provider down", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1)
}
