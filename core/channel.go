package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/hapnet-simulator/timectrl"
)

// RadioChannel is a deliberately simple shared-medium model: log-distance
// path loss anchored on a settable reference loss, per-interface steered
// gains, a receive sensitivity cutoff, and speed-of-light propagation
// delay. It exists so the beam-steering engine and the diagnostics have a
// frame-level collaborator to drive; it makes no attempt at MAC
// contention or fading.
type RadioChannel struct {
	Name        string
	FrequencyHz float64

	// PathLossExponent is the log-distance exponent (2 = free space).
	PathLossExponent float64

	// RxSensitivityDBm is the minimum received power for a successful
	// decode (default -101 dBm); anything weaker is dropped with
	// DropReasonWeakSignal.
	RxSensitivityDBm float64

	referenceLossDB float64
	sched           *timectrl.Scheduler
	ifaces          []*RadioInterface
}

// NewRadioChannel constructs a channel bound to the scheduler.
func NewRadioChannel(name string, frequencyHz float64, sched *timectrl.Scheduler) *RadioChannel {
	return &RadioChannel{
		Name:             name,
		FrequencyHz:      frequencyHz,
		PathLossExponent: 2.0,
		RxSensitivityDBm: -101,
		sched:            sched,
	}
}

// SetReferenceLossDB implements ReferenceLossPort. The value is the loss
// at 1 m; the distance curve above it keeps its shape, so folding the
// atmospheric total in here shifts the whole curve.
func (c *RadioChannel) SetReferenceLossDB(loss float64) { c.referenceLossDB = loss }

// ReferenceLossDB returns the currently configured reference loss.
func (c *RadioChannel) ReferenceLossDB() float64 { return c.referenceLossDB }

// Attach adds an interface to the shared medium and points it back at
// the channel.
func (c *RadioChannel) Attach(ri *RadioInterface) {
	ri.channel = c
	c.ifaces = append(c.ifaces, ri)
}

// PathLossDB returns the modelled loss over a distance in metres.
func (c *RadioChannel) PathLossDB(distanceM float64) float64 {
	if distanceM < 1 {
		distanceM = 1
	}
	return c.referenceLossDB + 10*c.PathLossExponent*math.Log10(distanceM)
}

// transmit evaluates the frame against every other attached interface.
// Each receiver's outcome is scheduled after the propagation delay, so
// frame events fire in simulated-time order.
func (c *RadioChannel) transmit(src *RadioInterface, f Frame) {
	if c.sched == nil {
		return
	}
	srcPos := src.Position()
	for _, dst := range c.ifaces {
		if dst == src {
			continue
		}
		dst := dst
		dstPos := dst.Position()
		distance := srcPos.DistanceTo(dstPos)
		rxPowerDBm := src.TxPowerDBm + src.GainDB() + dst.GainDB() - c.PathLossDB(distance)
		delay := time.Duration(distance / PropagationSpeedMPerS * float64(time.Second))

		frame := f
		if rxPowerDBm >= c.RxSensitivityDBm {
			c.sched.ScheduleAfter(delay, func() { dst.deliver(frame) })
		} else {
			c.sched.ScheduleAfter(delay, func() { dst.drop(frame, DropReasonWeakSignal) })
		}
	}
}
