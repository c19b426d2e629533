package diag

import (
	"math"
	"testing"

	"github.com/signalsfoundry/hapnet-simulator/core"
)

func testInterfaces() (*core.RadioInterface, *core.RadioInterface) {
	a := &core.RadioInterface{ID: "a0", Addr: "00:00:00:00:00:01", EndpointID: "node-a"}
	b := &core.RadioInterface{ID: "b0", Addr: "00:00:00:00:00:02", EndpointID: "node-b"}
	return a, b
}

func TestFlowAccountantLossRatio(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	frame := core.Frame{Src: a.Addr, Dst: b.Addr, Bytes: 1000, HeaderOK: true}
	for i := 0; i < 10; i++ {
		acc.TxBegin(a, frame, 20)
	}
	for i := 0; i < 7; i++ {
		acc.RxEnd(b, frame)
	}
	for i := 0; i < 3; i++ {
		acc.RxDrop(b, frame, core.DropReasonWeakSignal)
	}

	reports := acc.Report()
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	r := reports[0]
	if r.Key.Src != "node-a" || r.Key.Dst != "node-b" {
		t.Fatalf("key = %+v", r.Key)
	}
	if r.Counters.TxPackets != 10 || r.Counters.RxPackets != 7 || r.Counters.RxDropped != 3 {
		t.Fatalf("counters = %+v", r.Counters)
	}
	if math.Abs(r.LossRatio-30.0) > 1e-9 {
		t.Fatalf("loss ratio = %v, want 30.0", r.LossRatio)
	}
	if r.Counters.DropsByReason["WeakSignal"] != 3 {
		t.Fatalf("drop breakdown = %v", r.Counters.DropsByReason)
	}
}

func TestFlowAccountantZeroTxMeansZeroLoss(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	// Drops observed on a pair that never transmitted (e.g. counters
	// from a foreign sender outside the registry window).
	frame := core.Frame{Src: a.Addr, Dst: b.Addr, HeaderOK: true}
	acc.RxDrop(b, frame, core.DropReasonInterference)

	reports := acc.Report()
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	if reports[0].LossRatio != 0 {
		t.Fatalf("loss ratio = %v, want 0 with no tx", reports[0].LossRatio)
	}
}

func TestFlowAccountantIgnoresBroadcastTx(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	acc.TxBegin(a, core.Frame{Src: a.Addr, Dst: core.BroadcastAddr, HeaderOK: true}, 20)

	if got := acc.Report(); len(got) != 0 {
		t.Fatalf("broadcast tx created flows: %+v", got)
	}
}

func TestFlowAccountantIgnoresUnresolvedAddresses(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	foreign := core.LinkAddr("00:00:00:00:00:99")
	acc.TxBegin(a, core.Frame{Src: a.Addr, Dst: foreign, HeaderOK: true}, 20)
	acc.RxEnd(b, core.Frame{Src: foreign, Dst: b.Addr, HeaderOK: true})
	acc.RxDrop(b, core.Frame{Src: foreign, Dst: b.Addr, HeaderOK: true}, core.DropReasonBusy)

	if got := acc.Report(); len(got) != 0 {
		t.Fatalf("unresolved addresses created flows: %+v", got)
	}
}

func TestFlowAccountantIgnoresOverheardFrames(t *testing.T) {
	a, b := testInterfaces()
	c := &core.RadioInterface{ID: "c0", Addr: "00:00:00:00:00:03", EndpointID: "node-c"}
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b, c})
	acc := NewFlowAccountant(registry)

	// c overhears a frame addressed a -> b; it must not count as a
	// reception on (a, c).
	acc.RxEnd(c, core.Frame{Src: a.Addr, Dst: b.Addr, HeaderOK: true})

	if got := acc.Report(); len(got) != 0 {
		t.Fatalf("overheard frame counted: %+v", got)
	}
}

func TestFlowAccountantCountsBroadcastRx(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	acc.RxEnd(b, core.Frame{Src: a.Addr, Dst: core.BroadcastAddr, HeaderOK: true})

	reports := acc.Report()
	if len(reports) != 1 || reports[0].Counters.RxPackets != 1 {
		t.Fatalf("broadcast rx not attributed to source: %+v", reports)
	}
}

func TestFlowAccountantSkipsMangledDrops(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	acc.RxDrop(b, core.Frame{Src: a.Addr, Dst: b.Addr, HeaderOK: false}, core.DropReasonWeakSignal)

	if got := acc.Report(); len(got) != 0 {
		t.Fatalf("unattributable drop counted: %+v", got)
	}
}

func TestFlowAccountantDropReasonBuckets(t *testing.T) {
	a, b := testInterfaces()
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b})
	acc := NewFlowAccountant(registry)

	frame := core.Frame{Src: a.Addr, Dst: b.Addr, HeaderOK: true}
	acc.RxDrop(b, frame, core.DropReasonWeakSignal)
	acc.RxDrop(b, frame, core.DropReasonWeakSignal)
	acc.RxDrop(b, frame, core.DropReasonBusy)
	acc.RxDrop(b, frame, core.DropReason(42)) // unclassified code

	r := acc.Report()[0]
	if r.Counters.RxDropped != 4 {
		t.Fatalf("dropped = %d, want 4", r.Counters.RxDropped)
	}
	want := map[string]uint64{"WeakSignal": 2, "Busy": 1, "Other": 1}
	for label, count := range want {
		if r.Counters.DropsByReason[label] != count {
			t.Fatalf("breakdown[%s] = %d, want %d (full: %v)",
				label, r.Counters.DropsByReason[label], count, r.Counters.DropsByReason)
		}
	}
}

func TestFlowAccountantReportSorted(t *testing.T) {
	a, b := testInterfaces()
	c := &core.RadioInterface{ID: "c0", Addr: "00:00:00:00:00:03", EndpointID: "node-c"}
	registry := NewEndpointRegistry([]*core.RadioInterface{a, b, c})
	acc := NewFlowAccountant(registry)

	acc.TxBegin(c, core.Frame{Src: c.Addr, Dst: a.Addr, HeaderOK: true}, 20)
	acc.TxBegin(b, core.Frame{Src: b.Addr, Dst: a.Addr, HeaderOK: true}, 20)
	acc.TxBegin(a, core.Frame{Src: a.Addr, Dst: c.Addr, HeaderOK: true}, 20)
	acc.TxBegin(a, core.Frame{Src: a.Addr, Dst: b.Addr, HeaderOK: true}, 20)

	reports := acc.Report()
	if len(reports) != 4 {
		t.Fatalf("reports = %d, want 4", len(reports))
	}
	for i := 1; i < len(reports); i++ {
		prev, cur := reports[i-1].Key, reports[i].Key
		if prev.Src > cur.Src || (prev.Src == cur.Src && prev.Dst > cur.Dst) {
			t.Fatalf("report not sorted at %d: %+v before %+v", i, prev, cur)
		}
	}
}

func TestReasonLabels(t *testing.T) {
	cases := map[core.DropReason]string{
		core.DropReasonWeakSignal:      "WeakSignal",
		core.DropReasonBusy:            "Busy",
		core.DropReasonUnsupportedMode: "UnsupportedMode",
		core.DropReasonInterference:    "Interference",
		core.DropReasonUnknown:         "Other",
		core.DropReason(99):            "Other",
	}
	for reason, want := range cases {
		if got := ReasonLabel(reason); got != want {
			t.Fatalf("ReasonLabel(%d) = %q, want %q", reason, got, want)
		}
	}
}
