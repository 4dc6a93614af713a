// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes Prometheus instrumentation for the firewall
// driver. It only registers collectors; exposing them over HTTP is the
// host process's concern, not the driver's (no REST surface here).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Driver holds the counters and gauges the orchestrator updates as it
// programs ports.
type Driver struct {
	FilteredPorts prometheus.Gauge
	FlowsAdded    prometheus.Counter
	FlowsDeleted  prometheus.Counter
	CompileErrors *prometheus.CounterVec
}

// NewDriver creates a Driver and registers its collectors against reg.
// Passing a nil registry is valid and simply skips registration, which
// is convenient for tests that don't care about collection.
func NewDriver(reg prometheus.Registerer) *Driver {
	d := &Driver{
		FilteredPorts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ovsfw_filtered_ports",
			Help: "Number of VIFs currently filtered on the integration bridge.",
		}),
		FlowsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ovsfw_flows_added_total",
			Help: "Total number of add_flow calls issued to the bridge client.",
		}),
		FlowsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ovsfw_flows_deleted_total",
			Help: "Total number of delete_flows calls issued to the bridge client.",
		}),
		CompileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ovsfw_compile_errors_total",
			Help: "Total number of errors encountered while programming a port, by phase.",
		}, []string{"phase"}),
	}

	if reg != nil {
		reg.MustRegister(d.FilteredPorts, d.FlowsAdded, d.FlowsDeleted, d.CompileErrors)
	}
	return d
}
