// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/nostalgia/internal/log"
	"github.com/ManuGH/nostalgia/internal/metrics"
	"github.com/ManuGH/nostalgia/internal/telemetry"
)

// ErrNotRegularFile is reported when a vhs path names a directory or device.
var ErrNotRegularFile = errors.New("path is not a file")

// MediaRequest is one request against the vhs scheme.
type MediaRequest struct {
	URL    string
	Range  string
	Method string // GET or HEAD; empty means GET
}

// FileDescriptor describes the file behind a request at the time it was served.
type FileDescriptor struct {
	AbsolutePath string
	SizeBytes    int64
	MimeType     string
}

// MediaResponse is the protocol-level answer. Body is nil for HEAD; the
// caller owns Body and must close it whether or not it was drained.
type MediaResponse struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
	File   *FileDescriptor
}

// MediaHandler serves local files over the vhs scheme with byte-range support.
type MediaHandler struct {
	strictRanges atomic.Bool
	logger       zerolog.Logger
}

// NewMediaHandler creates a handler. With strictRanges an invalid Range
// header yields 416; otherwise it is served like no Range header at all.
func NewMediaHandler(strictRanges bool) *MediaHandler {
	h := &MediaHandler{logger: log.WithComponent("vhs")}
	h.strictRanges.Store(strictRanges)
	return h
}

// SetStrictRanges switches the invalid-range policy at runtime.
func (h *MediaHandler) SetStrictRanges(strict bool) {
	h.strictRanges.Store(strict)
}

// Handle resolves req to a response. It never panics and never returns nil.
func (h *MediaHandler) Handle(ctx context.Context, req MediaRequest) (resp *MediaResponse) {
	ctx, span := telemetry.Tracer("vhs").Start(ctx, "vhs.handle")
	defer span.End()
	logger := log.WithContext(ctx, h.logger)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Str(log.FieldEvent, "vhs.panic").
				Str(log.FieldURL, req.URL).
				Interface("panic_value", rec).
				Msg("unexpected failure handling media request")
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			resp = errorResponse(http.StatusInternalServerError, "Internal Server Error")
		}
		span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, resp.Status))
		if resp.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.Status))
		}
		metrics.IncVHSRequest(resp.Status, responseKind(resp.Status))
	}()

	path, err := ResolveMediaPath(req.URL)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "vhs.bad_request").
			Str(log.FieldURL, req.URL).
			Msg("rejecting media request")
		if errors.Is(err, ErrInvalidScheme) {
			return errorResponse(http.StatusBadRequest, "Invalid protocol scheme")
		}
		return errorResponse(http.StatusBadRequest, "Invalid path")
	}

	ctx = log.ContextWithMediaPath(ctx, path)
	logger = log.WithContext(ctx, h.logger)

	fd, err := describeFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn().Str(log.FieldEvent, "vhs.not_found").Msg("file not found")
		return errorResponse(http.StatusNotFound, "File not found")
	case errors.Is(err, ErrNotRegularFile):
		logger.Warn().Str(log.FieldEvent, "vhs.not_a_file").Msg("path is not a file")
		return errorResponse(http.StatusBadRequest, "Path is not a file")
	case err != nil:
		logger.Error().Err(err).Str(log.FieldEvent, "vhs.stat_failed").Msg("error accessing file stats")
		return errorResponse(http.StatusInternalServerError, "Internal Server Error (stat)")
	}
	span.SetAttributes(telemetry.MediaAttributes(fd.AbsolutePath, fd.MimeType, fd.SizeBytes, req.Range)...)

	if _, known := MimeTypeFor(fd.AbsolutePath); !known {
		logger.Warn().
			Str(log.FieldEvent, "vhs.unknown_extension").
			Str(log.FieldMimeType, fd.MimeType).
			Msg("unknown video extension, using fallback MIME type")
	}

	br, result := ResolveRange(req.Range, fd.SizeBytes)
	if result == RangeInvalid {
		if h.strictRanges.Load() {
			logger.Warn().
				Str(log.FieldEvent, "vhs.range_unsatisfiable").
				Str(log.FieldRange, req.Range).
				Int64(log.FieldSize, fd.SizeBytes).
				Msg("rejecting invalid range")
			unsat := errorResponse(http.StatusRequestedRangeNotSatisfiable, "Range Not Satisfiable")
			unsat.Header.Set("Content-Range", Format416ContentRange(fd.SizeBytes))
			unsat.File = fd
			return unsat
		}
		logger.Warn().
			Str(log.FieldEvent, "vhs.range_ignored").
			Str(log.FieldRange, req.Range).
			Int64(log.FieldSize, fd.SizeBytes).
			Msg("invalid range header, serving full file")
	}

	resp = &MediaResponse{Status: http.StatusOK, Header: make(http.Header), File: fd}
	resp.Header.Set("Content-Type", fd.MimeType)
	resp.Header.Set("Accept-Ranges", "bytes")

	offset, length := int64(0), fd.SizeBytes
	if result == RangeValid {
		offset, length = br.Start, br.Length()
		resp.Status = http.StatusPartialContent
		resp.Header.Set("Content-Range", FormatContentRange(br, fd.SizeBytes))
	}
	resp.Header.Set("Content-Length", strconv.FormatInt(length, 10))

	if req.Method != http.MethodHead {
		body, err := openSection(fd.AbsolutePath, offset, length)
		if err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "vhs.open_failed").Msg("could not open file")
			return errorResponse(http.StatusInternalServerError, "Internal Server Error")
		}
		resp.Body = body
	}

	logger.Debug().
		Str(log.FieldEvent, "vhs.served").
		Int(log.FieldStatus, resp.Status).
		Str(log.FieldRange, req.Range).
		Str("length", humanize.IBytes(uint64(length))).
		Msg("serving media")
	return resp
}

func describeFile(path string) (*FileDescriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegularFile
	}
	mt, _ := MimeTypeFor(path)
	return &FileDescriptor{AbsolutePath: path, SizeBytes: info.Size(), MimeType: mt}, nil
}

func errorResponse(status int, msg string) *MediaResponse {
	h := make(http.Header)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return &MediaResponse{
		Status: status,
		Header: h,
		Body:   io.NopCloser(strings.NewReader(msg)),
	}
}

func responseKind(status int) string {
	switch status {
	case http.StatusOK:
		return metrics.KindFull
	case http.StatusPartialContent:
		return metrics.KindPartial
	case http.StatusRequestedRangeNotSatisfiable:
		return metrics.KindUnsatisfiable
	default:
		return metrics.KindError
	}
}

// sectionBody reads a byte window of a file and releases the descriptor on Close.
type sectionBody struct {
	*io.SectionReader
	f    *os.File
	once sync.Once
}

func openSection(path string, offset, length int64) (*sectionBody, error) {
	f, err := os.Open(path) // #nosec G304 -- serving local files is the purpose of the vhs scheme
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	metrics.VHSOpenStreams.Inc()
	return &sectionBody{SectionReader: io.NewSectionReader(f, offset, length), f: f}, nil
}

func (b *sectionBody) Close() error {
	var err error
	b.once.Do(func() {
		metrics.VHSOpenStreams.Dec()
		err = b.f.Close()
	})
	return err
}

// ServeHTTP adapts the handler to net/http. The request path after the
// mount prefix is the absolute file path, so GET /vhs/home/a.mp4 is
// vhs:///home/a.mp4.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/"+Scheme)
	resp := h.Handle(r.Context(), MediaRequest{
		URL:    schemePrefix + rest,
		Range:  r.Header.Get("Range"),
		Method: r.Method,
	})
	if resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)
	if resp.Body == nil || r.Method == http.MethodHead {
		return
	}

	n, err := io.Copy(w, resp.Body)
	metrics.AddVHSBytes(n)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "vhs")
		logger.Debug().
			Err(err).
			Str(log.FieldEvent, "vhs.client_aborted").
			Str(log.FieldPath, r.URL.Path).
			Int64("written", n).
			Msg("media copy ended early")
	}
}
