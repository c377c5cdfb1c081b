//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestWithAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "req-1")
	ctx = WithAccountID(ctx, 42)
	ctx = WithCode(ctx, "WELCOME10")
	With(ctx, &base).Info().Msg("redeem")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["trace_id"])
	assert.EqualValues(t, 42, line["account_id"])
	assert.Equal(t, "WELCOME10", line["code"])
	assert.Equal(t, "req-1", TraceIDFrom(ctx))
}

func TestWithEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	With(context.Background(), &base).Info().Msg("plain")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "trace_id")
	assert.Empty(t, TraceIDFrom(context.Background()))
}

func TestWithSpanContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	With(ctx, &base).Info().Msg("span")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, sc.TraceID().String(), line["otel_trace_id"])
	assert.Equal(t, sc.SpanID().String(), line["span_id"])
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "WELCOME10", Redact("WELCOME10", true))
	assert.Equal(t, "WEL...10", Redact("WELCOME10", false))
	assert.Equal(t, "***", Redact("ABC", false))
}
