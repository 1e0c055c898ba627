// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	buf := captureLogger(t)

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "rid-1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLine(t, buf)
	assert.Equal(t, "http.request", entry[FieldEvent])
	assert.Equal(t, "/api/v1/state", entry[FieldPath])
	assert.EqualValues(t, http.StatusTeapot, entry[FieldStatus])
	assert.EqualValues(t, len("short and stout"), entry["bytes"])
	assert.Equal(t, "rid-1", entry[FieldRequestID])
	assert.Equal(t, "info", entry["level"])
}

func TestMiddlewareServerErrorLogsAtError(t *testing.T) {
	buf := captureLogger(t)

	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/vhs/x.mp4", nil))

	assert.Equal(t, "error", decodeLine(t, buf)["level"])
}
