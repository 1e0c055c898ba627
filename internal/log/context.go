// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type metaKey struct{}

// requestMeta is what a request carries for its log lines. Values are
// copied on write so contexts derived earlier keep their view.
type requestMeta struct {
	requestID string
	mediaPath string
}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(metaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, update func(m *requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	update(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// ContextWithRequestID stores the request id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.requestID = id })
}

// ContextWithMediaPath stores the file a media request resolved to.
func ContextWithMediaPath(ctx context.Context, path string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.mediaPath = path })
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return metaFrom(ctx).requestID
}

// MediaPathFromContext returns the resolved media path, or "".
func MediaPathFromContext(ctx context.Context) string {
	return metaFrom(ctx).mediaPath
}

// WithContext enriches logger with the request fields found in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	m := metaFrom(ctx)
	if m == (requestMeta{}) {
		return logger
	}
	builder := logger.With()
	if m.requestID != "" {
		builder = builder.Str(FieldRequestID, m.requestID)
	}
	if m.mediaPath != "" {
		builder = builder.Str(FieldPath, m.mediaPath)
	}
	return builder.Logger()
}

// WithComponentFromContext returns a logger that is annotated with the component
// name and enriched with the request fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	l := WithContext(ctx, *FromContext(ctx))
	return l.With().Str(FieldComponent, component).Logger()
}

// FromContext returns the logger attached to ctx, or the base logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	b := Base()
	return &b
}
