package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestSimCollectorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector error: %v", err)
	}

	c.SteeringTicks.Inc()
	c.SteeringTicks.Inc()
	c.FlowTxPackets.WithLabelValues("gt-a", "hap1").Add(10)
	c.FlowRxDropped.WithLabelValues("gt-a", "hap1", "WeakSignal").Add(3)
	c.ObserveBeam("net-a", 12.5, 18.2)
	c.SimTimeSeconds.Set(120)

	ticks := gatherMetric(t, reg, "sim_steering_ticks_total")
	if ticks == nil || ticks.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("steering ticks = %v, want 2", ticks)
	}

	tx := gatherMetric(t, reg, "sim_flow_tx_packets_total")
	if tx == nil || tx.GetMetric()[0].GetCounter().GetValue() != 10 {
		t.Fatalf("flow tx = %v, want 10", tx)
	}
	labels := tx.GetMetric()[0].GetLabel()
	if len(labels) != 2 || labels[0].GetValue() != "hap1" && labels[1].GetValue() != "hap1" {
		t.Fatalf("flow tx labels = %v", labels)
	}

	dropped := gatherMetric(t, reg, "sim_flow_rx_dropped_total")
	if dropped == nil || dropped.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("flow dropped = %v, want 3", dropped)
	}

	gain := gatherMetric(t, reg, "sim_beam_gain_db")
	if gain == nil || gain.GetMetric()[0].GetGauge().GetValue() != 18.2 {
		t.Fatalf("beam gain = %v, want 18.2", gain)
	}
	offset := gatherMetric(t, reg, "sim_beam_offset_degrees")
	if offset == nil || offset.GetMetric()[0].GetGauge().GetValue() != 12.5 {
		t.Fatalf("beam offset = %v, want 12.5", offset)
	}
}

func TestObservePlatformPositionSetsPerAxisGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector error: %v", err)
	}

	c.ObservePlatformPosition("hap1", 6000, -2500, 20000)

	pos := gatherMetric(t, reg, "sim_platform_position_meters")
	if pos == nil || len(pos.GetMetric()) != 3 {
		t.Fatalf("platform position = %v, want 3 axis series", pos)
	}
	byAxis := map[string]float64{}
	for _, m := range pos.GetMetric() {
		var axis string
		for _, l := range m.GetLabel() {
			switch l.GetName() {
			case "axis":
				axis = l.GetValue()
			case "platform":
				if l.GetValue() != "hap1" {
					t.Fatalf("platform label = %q, want hap1", l.GetValue())
				}
			}
		}
		byAxis[axis] = m.GetGauge().GetValue()
	}
	if byAxis["x"] != 6000 || byAxis["y"] != -2500 || byAxis["z"] != 20000 {
		t.Fatalf("axis values = %v", byAxis)
	}
}

func TestSimCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("first NewSimCollector error: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimCollector error: %v", err)
	}

	// Both handles must hit the same underlying series.
	first.SteeringTicks.Inc()
	second.SteeringTicks.Inc()

	ticks := gatherMetric(t, reg, "sim_steering_ticks_total")
	if ticks.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("ticks = %v, want 2 across both handles", ticks)
	}
}

func TestObserveBeamOnNilCollector(t *testing.T) {
	var c *SimCollector
	c.ObserveBeam("net-a", 0, 0) // must not panic
	c.ObservePlatformPosition("hap1", 0, 0, 0)
}
