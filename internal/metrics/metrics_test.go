// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewDriverRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := NewDriver(reg)

	d.FilteredPorts.Set(3)
	d.FlowsAdded.Add(22)
	d.CompileErrors.WithLabelValues("scaffold").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var sawPorts, sawFlows bool
	for _, fam := range families {
		switch fam.GetName() {
		case "ovsfw_filtered_ports":
			sawPorts = true
			if got := fam.Metric[0].GetGauge().GetValue(); got != 3 {
				t.Errorf("expected filtered_ports=3, got %v", got)
			}
		case "ovsfw_flows_added_total":
			sawFlows = true
			if got := fam.Metric[0].GetCounter().GetValue(); got != 22 {
				t.Errorf("expected flows_added=22, got %v", got)
			}
		}
	}
	if !sawPorts || !sawFlows {
		t.Errorf("expected both collectors registered, families=%v", namesOf(families))
	}
}

func namesOf(families []*dto.MetricFamily) []string {
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func TestNewDriverNilRegistry(t *testing.T) {
	d := NewDriver(nil)
	d.FlowsDeleted.Inc() // must not panic without a registry
}
