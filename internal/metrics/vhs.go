// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the daemon.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Response kinds of the media protocol.
const (
	KindFull          = "full"
	KindPartial       = "partial"
	KindUnsatisfiable = "unsatisfiable"
	KindError         = "error"
)

var (
	vhsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nostalgia_vhs_requests_total",
		Help: "Media protocol requests by status code and response kind",
	}, []string{"status", "kind"})

	vhsBytesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nostalgia_vhs_bytes_served_total",
		Help: "Bytes of media payload written to clients",
	})

	// VHSOpenStreams counts response bodies holding an open file descriptor.
	VHSOpenStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nostalgia_vhs_open_streams",
		Help: "Media response bodies currently holding an open file",
	})
)

// IncVHSRequest records one media protocol response.
func IncVHSRequest(status int, kind string) {
	vhsRequestsTotal.WithLabelValues(strconv.Itoa(status), kind).Inc()
}

// AddVHSBytes records payload bytes copied to a client.
func AddVHSBytes(n int64) {
	if n > 0 {
		vhsBytesServed.Add(float64(n))
	}
}
