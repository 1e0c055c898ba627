// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nostalgia_process_signals_total",
		Help: "Signals sent to child process groups",
	}, []string{"signal", "result"})

	processExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nostalgia_process_exits_total",
		Help: "Child process exits observed during termination",
	}, []string{"result"})
)

// IncProcessSignal records a termination signal. result is sent, esrch or error.
func IncProcessSignal(signal, result string) {
	processSignalsTotal.WithLabelValues(signal, result).Inc()
}

// IncProcessExit records how a terminated process exited.
func IncProcessExit(result string) {
	processExitsTotal.WithLabelValues(result).Inc()
}
