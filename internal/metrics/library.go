// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	libraryChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nostalgia_library_channels",
		Help: "Channels found by the last library scan",
	})

	libraryScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nostalgia_library_scans_total",
		Help: "Library scans by result",
	}, []string{"result"}) // result=success|failure
)

// RecordLibraryScan records a scan outcome and, on success, the channel count.
func RecordLibraryScan(channels int, err error) {
	if err != nil {
		libraryScansTotal.WithLabelValues("failure").Inc()
		return
	}
	libraryScansTotal.WithLabelValues("success").Inc()
	libraryChannels.Set(float64(channels))
}
