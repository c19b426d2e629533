package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for a simulation run and
// provides a ready-to-serve /metrics handler.
type SimCollector struct {
	gatherer prometheus.Gatherer

	SteeringTicks prometheus.Counter
	BeamGainDB    *prometheus.GaugeVec
	BeamOffsetDeg *prometheus.GaugeVec
	PlatformPos   *prometheus.GaugeVec

	FlowTxPackets *prometheus.CounterVec
	FlowRxPackets *prometheus.CounterVec
	FlowRxDropped *prometheus.CounterVec

	SimTimeSeconds prometheus.Gauge
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steering_ticks_total",
		Help: "Total number of beam-steering recompute ticks executed.",
	}), "sim_steering_ticks_total")
	if err != nil {
		return nil, err
	}

	gain := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_beam_gain_db",
		Help: "Current effective antenna gain per steered link, in dB.",
	}, []string{"link"})
	gain, err = registerGaugeVec(reg, gain, "sim_beam_gain_db")
	if err != nil {
		return nil, err
	}

	offset := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_beam_offset_degrees",
		Help: "Current angular offset between pointing direction and target, in degrees.",
	}, []string{"link"})
	offset, err = registerGaugeVec(reg, offset, "sim_beam_offset_degrees")
	if err != nil {
		return nil, err
	}

	platformPos := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_platform_position_meters",
		Help: "Current platform position per axis, in metres.",
	}, []string{"platform", "axis"})
	platformPos, err = registerGaugeVec(reg, platformPos, "sim_platform_position_meters")
	if err != nil {
		return nil, err
	}

	tx := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_flow_tx_packets_total",
		Help: "Transmitted packets per (source, destination) endpoint pair.",
	}, []string{"src", "dst"})
	tx, err = registerCounterVec(reg, tx, "sim_flow_tx_packets_total")
	if err != nil {
		return nil, err
	}

	rx := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_flow_rx_packets_total",
		Help: "Successfully received packets per (source, destination) endpoint pair.",
	}, []string{"src", "dst"})
	rx, err = registerCounterVec(reg, rx, "sim_flow_rx_packets_total")
	if err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_flow_rx_dropped_total",
		Help: "Dropped receptions per (source, destination) endpoint pair, labeled by reason.",
	}, []string{"src", "dst", "reason"})
	dropped, err = registerCounterVec(reg, dropped, "sim_flow_rx_dropped_total")
	if err != nil {
		return nil, err
	}

	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_time_seconds",
		Help: "Current simulation time as seconds since the scenario start.",
	}), "sim_time_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:       gatherer,
		SteeringTicks:  ticks,
		BeamGainDB:     gain,
		BeamOffsetDeg:  offset,
		PlatformPos:    platformPos,
		FlowTxPackets:  tx,
		FlowRxPackets:  rx,
		FlowRxDropped:  dropped,
		SimTimeSeconds: simTime,
	}, nil
}

// ObserveBeam records one steered-link update.
func (c *SimCollector) ObserveBeam(link string, offsetDeg, gainDB float64) {
	if c == nil {
		return
	}
	c.BeamGainDB.WithLabelValues(link).Set(gainDB)
	c.BeamOffsetDeg.WithLabelValues(link).Set(offsetDeg)
}

// ObservePlatformPosition records a platform's position on the per-axis
// gauge.
func (c *SimCollector) ObservePlatformPosition(platform string, x, y, z float64) {
	if c == nil {
		return
	}
	c.PlatformPos.WithLabelValues(platform, "x").Set(x)
	c.PlatformPos.WithLabelValues(platform, "y").Set(y)
	c.PlatformPos.WithLabelValues(platform, "z").Set(z)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
