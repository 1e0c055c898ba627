// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeResult classifies a Range header against a resource size.
type RangeResult int

const (
	// RangeNone means no Range header was sent.
	RangeNone RangeResult = iota
	// RangeValid means the header named one satisfiable range.
	RangeValid
	// RangeInvalid covers malformed syntax and unsatisfiable bounds alike.
	RangeInvalid
)

func (r RangeResult) String() string {
	switch r {
	case RangeNone:
		return "none"
	case RangeValid:
		return "valid"
	case RangeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ByteRange is an inclusive byte interval [Start, End].
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by r.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ResolveRange resolves a Range header value against size.
//
// Only the single form "bytes=<start>-<end?>" with plain ASCII digits is
// accepted. Multi-range, suffix ranges ("bytes=-500"), whitespace and signs
// are invalid. An omitted end means size-1. Bounds are never clamped: a
// range reaching past the end of the resource is invalid as a whole.
func ResolveRange(header string, size int64) (ByteRange, RangeResult) {
	if header == "" {
		return ByteRange{}, RangeNone
	}

	set, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, RangeInvalid
	}
	startStr, endStr, ok := strings.Cut(set, "-")
	if !ok || !isDigits(startStr) || (endStr != "" && !isDigits(endStr)) {
		return ByteRange{}, RangeInvalid
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return ByteRange{}, RangeInvalid
	}
	end := size - 1
	if endStr != "" {
		if end, err = strconv.ParseInt(endStr, 10, 64); err != nil {
			return ByteRange{}, RangeInvalid
		}
	}

	if size <= 0 || start >= size || end < start || end >= size {
		return ByteRange{}, RangeInvalid
	}
	return ByteRange{Start: start, End: end}, RangeValid
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatContentRange formats the Content-Range header of a 206 response.
func FormatContentRange(r ByteRange, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Format416ContentRange formats the Content-Range header for a 416 response.
func Format416ContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
