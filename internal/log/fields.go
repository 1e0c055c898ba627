// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media / protocol fields
	FieldPath     = "path"
	FieldURL      = "url"
	FieldMimeType = "mime_type"
	FieldRange    = "range"
	FieldStatus   = "status"
	FieldSize     = "size_bytes"

	// Render fields
	FieldFrame      = "frame"
	FieldResolution = "resolution"
	FieldOldState   = "old_state"
	FieldNewState   = "new_state"
)
