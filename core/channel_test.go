package core

import (
	"math"
	"testing"
	"time"
)

type recordingObserver struct {
	tx    int
	rx    int
	drops map[DropReason]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{drops: make(map[DropReason]int)}
}

func (o *recordingObserver) TxBegin(iface *RadioInterface, f Frame, txPowerDBm float64) { o.tx++ }
func (o *recordingObserver) RxEnd(iface *RadioInterface, f Frame)                       { o.rx++ }
func (o *recordingObserver) RxDrop(iface *RadioInterface, f Frame, reason DropReason) {
	o.drops[reason]++
}

func fixedPosition(v Vec3) func() Vec3 {
	return func() Vec3 { return v }
}

func TestChannelPathLoss(t *testing.T) {
	sched := newTestScheduler()
	c := NewRadioChannel("net-a", 2.4e9, sched)
	c.SetReferenceLossDB(40)

	if got := c.PathLossDB(1); math.Abs(got-40) > 1e-9 {
		t.Fatalf("loss at 1m = %v, want 40", got)
	}
	if got := c.PathLossDB(100); math.Abs(got-80) > 1e-9 {
		t.Fatalf("loss at 100m = %v, want 80 (n=2)", got)
	}
	// Sub-metre clamps to the reference distance.
	if got := c.PathLossDB(0.1); math.Abs(got-40) > 1e-9 {
		t.Fatalf("loss at 0.1m = %v, want 40", got)
	}
}

func TestChannelDeliversWithinSensitivity(t *testing.T) {
	sched := newTestScheduler()
	c := NewRadioChannel("net-a", 2.4e9, sched)
	c.SetReferenceLossDB(40)

	a := &RadioInterface{ID: "a0", Addr: "00:00:00:00:00:01", EndpointID: "a",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{})}
	b := &RadioInterface{ID: "b0", Addr: "00:00:00:00:00:02", EndpointID: "b",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{X: 100})}
	c.Attach(a)
	c.Attach(b)

	obs := newRecordingObserver()
	b.Subscribe(obs)
	var delivered []Frame
	b.OnReceive(func(f Frame) { delivered = append(delivered, f) })

	// 20 dBm - 80 dB = -60 dBm, well above the -101 dBm cutoff.
	a.Send(Frame{Dst: b.Addr, Bytes: 1000})
	sched.Run(sched.Now().Add(time.Second))

	if obs.rx != 1 || len(obs.drops) != 0 {
		t.Fatalf("rx=%d drops=%v, want 1 rx and no drops", obs.rx, obs.drops)
	}
	if len(delivered) != 1 || delivered[0].Bytes != 1000 {
		t.Fatalf("delivered = %+v, want one 1000-byte frame", delivered)
	}
	if delivered[0].Src != a.Addr {
		t.Fatalf("frame src = %v, want %v", delivered[0].Src, a.Addr)
	}
}

func TestChannelDropsWeakSignal(t *testing.T) {
	sched := newTestScheduler()
	c := NewRadioChannel("net-a", 2.4e9, sched)
	c.SetReferenceLossDB(40)

	a := &RadioInterface{ID: "a0", Addr: "00:00:00:00:00:01", EndpointID: "a",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{})}
	// 20 dBm - (40 + 20*log10(3e4)) = -109.5 dBm, below the cutoff.
	b := &RadioInterface{ID: "b0", Addr: "00:00:00:00:00:02", EndpointID: "b",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{X: 3e4})}
	c.Attach(a)
	c.Attach(b)

	obs := newRecordingObserver()
	b.Subscribe(obs)
	received := 0
	b.OnReceive(func(f Frame) { received++ })

	a.Send(Frame{Dst: b.Addr, Bytes: 1000})
	sched.Run(sched.Now().Add(time.Second))

	if obs.rx != 0 || received != 0 {
		t.Fatalf("weak frame was delivered (rx=%d handler=%d)", obs.rx, received)
	}
	if obs.drops[DropReasonWeakSignal] != 1 {
		t.Fatalf("drops = %v, want one WeakSignal", obs.drops)
	}
}

func TestChannelSteeredGainRescuesWeakLink(t *testing.T) {
	sched := newTestScheduler()
	c := NewRadioChannel("net-a", 2.4e9, sched)
	c.SetReferenceLossDB(40)

	a := &RadioInterface{ID: "a0", Addr: "00:00:00:00:00:01", EndpointID: "a",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{})}
	b := &RadioInterface{ID: "b0", Addr: "00:00:00:00:00:02", EndpointID: "b",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{X: 3e4})}
	c.Attach(a)
	c.Attach(b)

	obs := newRecordingObserver()
	b.Subscribe(obs)

	// -109.5 dBm raw; +20 dBi of steered gain on the transmitter lifts
	// it over the -101 dBm cutoff.
	a.SetGainDB(20)
	a.Send(Frame{Dst: b.Addr, Bytes: 100})
	sched.Run(sched.Now().Add(time.Second))

	if obs.rx != 1 {
		t.Fatalf("rx=%d, want 1 after gain lift", obs.rx)
	}
}

func TestChannelPropagationDelay(t *testing.T) {
	sched := newTestScheduler()
	start := sched.Now()
	c := NewRadioChannel("net-a", 2.4e9, sched)
	c.SetReferenceLossDB(40)

	a := &RadioInterface{ID: "a0", Addr: "00:00:00:00:00:01", EndpointID: "a",
		TxPowerDBm: 40, Position: fixedPosition(Vec3{})}
	b := &RadioInterface{ID: "b0", Addr: "00:00:00:00:00:02", EndpointID: "b",
		TxPowerDBm: 40, Position: fixedPosition(Vec3{X: 3e5})} // 1 ms away
	c.Attach(a)
	c.Attach(b)
	// Keep the 300 km link above sensitivity so the delay is observable.
	a.SetGainDB(30)
	b.SetGainDB(30)

	var arrived time.Time
	b.OnReceive(func(f Frame) { arrived = sched.Now() })

	a.Send(Frame{Dst: b.Addr, Bytes: 1})
	sched.Run(start.Add(time.Second))

	if got := arrived.Sub(start); got != time.Millisecond {
		t.Fatalf("propagation delay = %v, want 1ms", got)
	}
}

func TestBroadcastReachesAllAttached(t *testing.T) {
	sched := newTestScheduler()
	c := NewRadioChannel("net-a", 2.4e9, sched)
	c.SetReferenceLossDB(40)

	src := &RadioInterface{ID: "s", Addr: "00:00:00:00:00:01", EndpointID: "s",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{})}
	c.Attach(src)

	handlers := 0
	for i := 0; i < 3; i++ {
		ri := &RadioInterface{
			ID:         string(rune('a' + i)),
			Addr:       LinkAddr("00:00:00:00:01:0" + string(rune('0'+i))),
			EndpointID: "peer",
			TxPowerDBm: 20,
			Position:   fixedPosition(Vec3{X: float64(10 + i)}),
		}
		c.Attach(ri)
		ri.OnReceive(func(f Frame) { handlers++ })
	}

	src.Send(Frame{Dst: BroadcastAddr, Bytes: 10})
	sched.Run(sched.Now().Add(time.Second))

	if handlers != 3 {
		t.Fatalf("broadcast reached %d handlers, want 3", handlers)
	}
}

func TestTrafficRelayEndToEnd(t *testing.T) {
	sched := newTestScheduler()

	chanA := NewRadioChannel("net-a", 2.4e9, sched)
	chanA.SetReferenceLossDB(40)
	chanB := NewRadioChannel("net-b", 5e9, sched)
	chanB.SetReferenceLossDB(46.7)

	gtA := &RadioInterface{ID: "gt-a-0", Addr: "00:00:00:00:00:02", EndpointID: "gt-a",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{X: -2500})}
	hapA := &RadioInterface{ID: "hap1-a", Addr: "00:00:00:00:00:01", EndpointID: "hap1",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{Z: 100})}
	hapB := &RadioInterface{ID: "hap1-b", Addr: "00:00:00:00:00:03", EndpointID: "hap1",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{Z: 100})}
	gtB := &RadioInterface{ID: "gt-b-0", Addr: "00:00:00:00:00:04", EndpointID: "gt-b",
		TxPowerDBm: 20, Position: fixedPosition(Vec3{X: 2500})}
	chanA.Attach(gtA)
	chanA.Attach(hapA)
	chanB.Attach(hapB)
	chanB.Attach(gtB)

	// Steered gains keep both slant legs above sensitivity.
	gtA.SetGainDB(20)
	hapA.SetGainDB(20)
	hapB.SetGainDB(20)
	gtB.SetGainDB(20)

	Relay{}.Bind(hapA, hapB, gtB.Addr)
	var sink Sink
	sink.Install(gtB)

	gen := NewTrafficGenerator(sched, gtA, hapA.Addr, 10, 1000, 40*time.Millisecond)
	gen.Start(sched.Now().Add(time.Second))
	sched.Run(sched.Now().Add(10 * time.Second))

	if gen.Remaining() != 0 {
		t.Fatalf("generator left %d frames unsent", gen.Remaining())
	}
	if sink.Received != 10 || sink.Bytes != 10000 {
		t.Fatalf("sink got %d frames / %d bytes, want 10 / 10000", sink.Received, sink.Bytes)
	}
}
