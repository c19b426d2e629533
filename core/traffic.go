package core

import (
	"time"

	"github.com/signalsfoundry/hapnet-simulator/timectrl"
)

// TrafficGenerator emits fixed-size frames from a source interface at a
// constant interval, the way the scenario scripts drive their sockets:
// each send schedules the next until the count is exhausted.
type TrafficGenerator struct {
	sched    *timectrl.Scheduler
	src      *RadioInterface
	dst      LinkAddr
	size     int
	interval time.Duration

	remaining int
	handle    *timectrl.Handle
}

// NewTrafficGenerator prepares a generator; nothing is scheduled until
// Start.
func NewTrafficGenerator(sched *timectrl.Scheduler, src *RadioInterface, dst LinkAddr, count, size int, interval time.Duration) *TrafficGenerator {
	return &TrafficGenerator{
		sched:     sched,
		src:       src,
		dst:       dst,
		size:      size,
		interval:  interval,
		remaining: count,
	}
}

// Start schedules the first transmission at the given simulation time.
func (g *TrafficGenerator) Start(at time.Time) {
	g.handle = g.sched.ScheduleAt(at, g.send)
}

// Stop cancels any pending transmission.
func (g *TrafficGenerator) Stop() {
	g.handle.Cancel()
}

// Remaining returns how many frames are still to be sent.
func (g *TrafficGenerator) Remaining() int { return g.remaining }

func (g *TrafficGenerator) send() {
	if g.remaining <= 0 {
		return
	}
	g.remaining--
	g.src.Send(Frame{Dst: g.dst, Bytes: g.size})
	if g.remaining > 0 {
		g.handle = g.sched.ScheduleAfter(g.interval, g.send)
	}
}

// Relay forwards frames arriving on one platform interface out another,
// re-addressed to a fixed next hop. It is the minimal stand-in for the
// router role the relay platform plays; real routing is out of scope.
type Relay struct{}

// Bind installs a forwarding rule: frames received on in are re-sent on
// out toward nextHop.
func (Relay) Bind(in, out *RadioInterface, nextHop LinkAddr) {
	in.OnReceive(func(f Frame) {
		out.Send(Frame{Dst: nextHop, Bytes: f.Bytes})
	})
}

// Sink counts frames that reach an interface's upper layer.
type Sink struct {
	Received int
	Bytes    int
}

// Install attaches the sink as the interface's receive handler.
func (s *Sink) Install(ri *RadioInterface) {
	ri.OnReceive(func(f Frame) {
		s.Received++
		s.Bytes += f.Bytes
	})
}
