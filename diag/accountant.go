package diag

import (
	"sort"

	"github.com/signalsfoundry/hapnet-simulator/core"
)

// ReasonLabel classifies a raw drop reason code into a human-readable
// bucket. The reason-code space is radio-model dependent and not fully
// enumerated here; anything unrecognised lands in "Other".
func ReasonLabel(reason core.DropReason) string {
	switch reason {
	case core.DropReasonWeakSignal:
		return "WeakSignal"
	case core.DropReasonBusy:
		return "Busy"
	case core.DropReasonUnsupportedMode:
		return "UnsupportedMode"
	case core.DropReasonInterference:
		return "Interference"
	default:
		return "Other"
	}
}

// FlowKey identifies an ordered (source, destination) endpoint pair.
type FlowKey struct {
	Src EndpointID
	Dst EndpointID
}

// FlowCounters are the monotonically increasing per-pair counts. Entries
// are created lazily on the first observed event and live for the run.
type FlowCounters struct {
	TxPackets     uint64
	RxPackets     uint64
	RxDropped     uint64
	DropsByReason map[string]uint64
}

// FlowAccountant aggregates frame lifecycle events per endpoint pair. It
// is an explicitly owned registry, not process state: concurrent runs in
// tests each hold their own. It implements core.FrameObserver.
type FlowAccountant struct {
	registry *EndpointRegistry
	flows    map[FlowKey]*FlowCounters
}

// NewFlowAccountant constructs an accountant over a built registry.
func NewFlowAccountant(registry *EndpointRegistry) *FlowAccountant {
	return &FlowAccountant{
		registry: registry,
		flows:    make(map[FlowKey]*FlowCounters),
	}
}

func (a *FlowAccountant) counters(key FlowKey) *FlowCounters {
	c, ok := a.flows[key]
	if !ok {
		c = &FlowCounters{DropsByReason: make(map[string]uint64)}
		a.flows[key] = c
	}
	return c
}

// TxBegin counts a transmission toward the frame's resolved destination.
// Group and unresolved destinations are ignored: control and broadcast
// traffic has no single logical receiver.
func (a *FlowAccountant) TxBegin(iface *core.RadioInterface, f core.Frame, txPowerDBm float64) {
	if f.Dst.IsGroup() {
		return
	}
	dst, ok := a.registry.Resolve(f.Dst)
	if !ok {
		return
	}
	a.counters(FlowKey{Src: EndpointID(iface.EndpointID), Dst: dst}).TxPackets++
}

// RxEnd counts a successful reception, attributed to the resolved
// source. Frames not addressed to this interface (and not broadcast) are
// overheard, not received, and are not counted.
func (a *FlowAccountant) RxEnd(iface *core.RadioInterface, f core.Frame) {
	if f.Dst != iface.Addr && !f.Dst.IsGroup() {
		return
	}
	src, ok := a.registry.Resolve(f.Src)
	if !ok {
		return
	}
	a.counters(FlowKey{Src: src, Dst: EndpointID(iface.EndpointID)}).RxPackets++
}

// RxDrop counts a failed reception against the resolved source, bucketed
// by reason label. A frame whose header did not survive reception cannot
// be attributed and is silently ignored.
func (a *FlowAccountant) RxDrop(iface *core.RadioInterface, f core.Frame, reason core.DropReason) {
	if !f.HeaderOK {
		return
	}
	src, ok := a.registry.Resolve(f.Src)
	if !ok {
		return
	}
	c := a.counters(FlowKey{Src: src, Dst: EndpointID(iface.EndpointID)})
	c.RxDropped++
	c.DropsByReason[ReasonLabel(reason)]++
}

// FlowReport is one row of the end-of-run table.
type FlowReport struct {
	Key      FlowKey
	Counters FlowCounters
	// LossRatio is rxDropped/txPackets as a percentage, 0 when nothing
	// was transmitted on the pair.
	LossRatio float64
}

// Report returns all pairs with any non-zero counter, sorted by
// (source, destination).
func (a *FlowAccountant) Report() []FlowReport {
	reports := make([]FlowReport, 0, len(a.flows))
	for key, c := range a.flows {
		if c.TxPackets == 0 && c.RxPackets == 0 && c.RxDropped == 0 {
			continue
		}
		r := FlowReport{Key: key, Counters: *c}
		if c.TxPackets > 0 {
			r.LossRatio = float64(c.RxDropped) / float64(c.TxPackets) * 100
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Key.Src != reports[j].Key.Src {
			return reports[i].Key.Src < reports[j].Key.Src
		}
		return reports[i].Key.Dst < reports[j].Key.Dst
	})
	return reports
}
