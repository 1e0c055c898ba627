// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{name: "nil context", ctx: nil, requestID: "req-123", want: "req-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456", want: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			assert.Equal(t, tt.want, RequestIDFromContext(ctx))
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(nil)) //nolint:staticcheck // nil ctx is tolerated
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, MediaPathFromContext(context.Background()))
}

func TestContextMetaIsCopiedOnWrite(t *testing.T) {
	parent := ContextWithRequestID(context.Background(), "req-1")
	child := ContextWithMediaPath(parent, "/tapes/a.mp4")

	assert.Equal(t, "req-1", RequestIDFromContext(child))
	assert.Equal(t, "/tapes/a.mp4", MediaPathFromContext(child))
	assert.Empty(t, MediaPathFromContext(parent))
}

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "nostalgia-test", Version: "v0.0.0-test"})
	t.Cleanup(func() { Configure(Config{}) })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestWithContextAddsRequestFields(t *testing.T) {
	buf := captureLogger(t)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithMediaPath(ctx, "/tapes/a.mp4")
	l := WithContext(ctx, WithComponent("vhs"))
	l.Info().Str(FieldEvent, "vhs.served").Msg("ok")

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-123", entry[FieldRequestID])
	assert.Equal(t, "/tapes/a.mp4", entry[FieldPath])
	assert.Equal(t, "vhs", entry[FieldComponent])
	assert.Equal(t, "nostalgia-test", entry["service"])
	assert.Equal(t, "v0.0.0-test", entry["version"])
}

func TestWithContextWithoutIDsKeepsLogger(t *testing.T) {
	buf := captureLogger(t)

	l := WithContext(context.Background(), Base())
	l.Info().Msg("plain")

	entry := decodeLine(t, buf)
	assert.NotContains(t, entry, FieldRequestID)
	assert.NotContains(t, entry, FieldPath)
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name  string
		build func(zerolog.Context) zerolog.Context
		want  map[string]any
	}{
		{
			name:  "single field",
			build: func(c zerolog.Context) zerolog.Context { return c.Str("custom_field", "test_value") },
			want:  map[string]any{"custom_field": "test_value"},
		},
		{
			name: "chained fields",
			build: func(c zerolog.Context) zerolog.Context {
				return c.Str(FieldComponent, "player").Str(FieldPath, "/tapes/a.mp4").Int("channel", 3)
			},
			want: map[string]any{FieldComponent: "player", FieldPath: "/tapes/a.mp4", "channel": float64(3)},
		},
		{
			name: "nil builder",
			want: map[string]any{"service": "nostalgia-test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogger(t)
			l := Derive(tt.build)
			l.Info().Msg("derived")

			entry := decodeLine(t, buf)
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
			assert.Equal(t, "nostalgia-test", entry["service"])
		})
	}
}

func TestFromContextFallsBackToBase(t *testing.T) {
	buf := captureLogger(t)

	FromContext(context.Background()).Info().Msg("fallback")
	assert.Equal(t, "nostalgia-test", decodeLine(t, buf)["service"])
}

func TestWithTraceContext(t *testing.T) {
	buf := captureLogger(t)

	tracer := noop.NewTracerProvider().Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	l := WithTraceContext(ctx)
	l.Info().Msg("noop span")
	assert.NotContains(t, decodeLine(t, buf), "trace_id")

	buf.Reset()
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	l = WithTraceContext(trace.ContextWithSpanContext(context.Background(), sc))
	l.Info().Msg("real span")

	entry := decodeLine(t, buf)
	assert.Equal(t, sc.TraceID().String(), entry["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entry["span_id"])
}
