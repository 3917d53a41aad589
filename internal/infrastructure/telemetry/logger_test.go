package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestWithContext_NoSpanReturnsLoggerUnchanged(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	assert.Same(t, logger, WithContext(context.Background(), logger))
}

func TestWithContext_CarriesTraceAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithContext(spanContext(t), logger).Error("request failed", "status", 500)

	out := buf.String()
	assert.Contains(t, out, "0102030405060708090a0b0c0d0e0f10")
	assert.Contains(t, out, `"span_id":"0102030405060708"`)
	assert.Contains(t, out, `"sampled":true`)
}

func TestTracedHandler_StampsRecordsInsideSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&TracedHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	logger.InfoContext(spanContext(t), "population analyzed")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"0102030405060708090a0b0c0d0e0f10"`)
	assert.Contains(t, out, `"span_id":"0102030405060708"`)
}

func TestTracedHandler_PlainContextPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&TracedHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	logger.Info("http server listening")

	assert.NotContains(t, buf.String(), "trace_id")
}
