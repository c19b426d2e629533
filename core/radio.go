package core

// LinkAddr is a link-layer address in its textual form. Frame-level
// events expose only these; the diagnostic layer maps them back to
// logical endpoints.
type LinkAddr string

// BroadcastAddr is the all-ones group address.
const BroadcastAddr LinkAddr = "ff:ff:ff:ff:ff:ff"

// IsGroup reports whether the address has no single logical endpoint.
func (a LinkAddr) IsGroup() bool { return a == BroadcastAddr }

// DropReason is the raw reason code attached to a receive-drop event.
// The value space is radio-model dependent and deliberately not
// exhaustive; consumers must treat unknown codes as unclassified.
type DropReason int

const (
	DropReasonUnknown DropReason = iota
	DropReasonWeakSignal
	DropReasonBusy
	DropReasonUnsupportedMode
	DropReasonInterference
)

// Frame is the minimal link-layer unit the diagnostic layer observes.
type Frame struct {
	Src   LinkAddr
	Dst   LinkAddr
	Bytes int

	// HeaderOK mirrors whether the header survived reception; dropped
	// frames occasionally arrive too mangled to attribute.
	HeaderOK bool
}

// FrameObserver receives the three packet lifecycle events at an
// interface. Handlers run synchronously on the scheduler timeline and
// must not block.
type FrameObserver interface {
	TxBegin(iface *RadioInterface, f Frame, txPowerDBm float64)
	RxEnd(iface *RadioInterface, f Frame)
	RxDrop(iface *RadioInterface, f Frame, reason DropReason)
}

// BeamPort is the narrow capability the beam-steering engine needs:
// something with a settable gain. Keeping the engine on this interface
// rather than a concrete radio makes it testable without one.
type BeamPort interface {
	SetGainDB(gain float64)
}

// ReferenceLossPort is the settable reference-loss parameter of a
// channel model.
type ReferenceLossPort interface {
	SetReferenceLossDB(loss float64)
}

// RadioInterface is a logical radio port on a platform. Its gain is
// written by the beam-steering engine (via BeamPort) and read by the
// channel when it evaluates a transmission.
type RadioInterface struct {
	ID         string
	Addr       LinkAddr
	EndpointID string
	TxPowerDBm float64

	// Position reports the interface's current location; for moving
	// platforms it closes over the platform's kinematic state.
	Position func() Vec3

	gainDB    float64
	channel   *RadioChannel
	observers []FrameObserver
	receive   func(f Frame)
}

// SetGainDB implements BeamPort.
func (ri *RadioInterface) SetGainDB(gain float64) { ri.gainDB = gain }

// GainDB returns the current effective antenna gain.
func (ri *RadioInterface) GainDB() float64 { return ri.gainDB }

// Subscribe registers an observer for this interface's frame events.
func (ri *RadioInterface) Subscribe(obs FrameObserver) {
	ri.observers = append(ri.observers, obs)
}

// OnReceive sets the upper-layer handler invoked for frames addressed to
// this interface (or broadcast). Overheard frames still raise RxEnd for
// observers but never reach the handler.
func (ri *RadioInterface) OnReceive(fn func(f Frame)) { ri.receive = fn }

// Send transmits a frame on the attached channel. It raises TxBegin
// before the channel evaluates propagation, matching the phy trace
// ordering the diagnostics depend on.
func (ri *RadioInterface) Send(f Frame) {
	f.Src = ri.Addr
	f.HeaderOK = true
	for _, obs := range ri.observers {
		obs.TxBegin(ri, f, ri.TxPowerDBm)
	}
	if ri.channel != nil {
		ri.channel.transmit(ri, f)
	}
}

func (ri *RadioInterface) deliver(f Frame) {
	for _, obs := range ri.observers {
		obs.RxEnd(ri, f)
	}
	if ri.receive != nil && (f.Dst == ri.Addr || f.Dst.IsGroup()) {
		ri.receive(f)
	}
}

func (ri *RadioInterface) drop(f Frame, reason DropReason) {
	for _, obs := range ri.observers {
		obs.RxDrop(ri, f, reason)
	}
}
