// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"path/filepath"
	"strings"
)

// FallbackMimeType is served for extensions outside the media table.
const FallbackMimeType = "application/octet-stream"

var mediaMimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
}

// MimeTypeFor returns the media type for path's extension (case-insensitive)
// and whether the extension is known.
func MimeTypeFor(path string) (string, bool) {
	if mt, ok := mediaMimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt, true
	}
	return FallbackMimeType, false
}
