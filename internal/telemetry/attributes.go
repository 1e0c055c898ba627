// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the daemon.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	MediaPathKey  = "media.path"
	MediaMimeKey  = "media.mime_type"
	MediaSizeKey  = "media.size_bytes"
	MediaRangeKey = "media.range"

	RenderWidthKey        = "render.width"
	RenderHeightKey       = "render.height"
	RenderSubtitleModeKey = "render.subtitle_mode"

	ErrorKey = "error"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// MediaAttributes describes a file served by the media protocol. Empty or
// negative values are left out.
func MediaAttributes(path, mimeType string, size int64, byteRange string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if path != "" {
		attrs = append(attrs, attribute.String(MediaPathKey, path))
	}
	if mimeType != "" {
		attrs = append(attrs, attribute.String(MediaMimeKey, mimeType))
	}
	if size >= 0 {
		attrs = append(attrs, attribute.Int64(MediaSizeKey, size))
	}
	if byteRange != "" {
		attrs = append(attrs, attribute.String(MediaRangeKey, byteRange))
	}
	return attrs
}

// RenderAttributes describes the compositor surface.
func RenderAttributes(width, height int, subtitleMode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(RenderWidthKey, width),
		attribute.Int(RenderHeightKey, height),
		attribute.String(RenderSubtitleModeKey, subtitleMode),
	}
}

// ErrorAttributes records err on a span; nil yields no attributes.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{attribute.String(ErrorKey, err.Error())}
}
