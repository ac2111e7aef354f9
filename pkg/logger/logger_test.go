package logger

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := Default()
	SetDefault(New(buf, level, "json"))
	t.Cleanup(func() { SetDefault(prev) })
	return buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestFromContext_BusinessKeys(t *testing.T) {
	buf := captureJSON(t, "info")

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithContext(ctx, DocumentIDKey, "doc-1")
	ctx = WithContext(ctx, JobIDKey, "job-1")
	Info(ctx, "section generated", "index", 2)

	line := decodeLine(t, buf)
	assert.Equal(t, "section generated", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "doc-1", line["document_id"])
	assert.Equal(t, "job-1", line["job_id"])
	assert.EqualValues(t, 2, line["index"])
	assert.NotContains(t, line, "user_id")
}

func TestFromContext_PrefersLiveSpan(t *testing.T) {
	buf := captureJSON(t, "info")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := WithContext(context.Background(), TraceIDKey, "stale")
	ctx = trace.ContextWithSpanContext(ctx, sc)
	Warn(ctx, "pacing")

	line := decodeLine(t, buf)
	assert.Equal(t, traceID.String(), line["trace_id"])
	assert.Equal(t, spanID.String(), line["span_id"])
}

func TestError_AppendsErrorField(t *testing.T) {
	buf := captureJSON(t, "info")

	Error(context.Background(), "completion failed", stderrors.New("upstream 503"))

	line := decodeLine(t, buf)
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "upstream 503", line["error"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureJSON(t, "warn")

	Debug(context.Background(), "hidden")
	Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
