// Package diag attributes frame-level transmit/receive/drop events to
// logical endpoint pairs and renders the per-link loss table at the end
// of a run. It observes interface events only; it knows nothing about
// beam steering or channel internals.
package diag

import "github.com/signalsfoundry/hapnet-simulator/core"

// EndpointID is a stable logical endpoint identifier (node name).
type EndpointID string

// EndpointRegistry maps link-layer addresses to endpoints. It is built
// once after all interfaces exist and is read-only afterward. Group
// addresses are never inserted: a broadcast destination has no single
// logical endpoint.
type EndpointRegistry struct {
	byAddr map[core.LinkAddr]EndpointID
}

// NewEndpointRegistry enumerates the given interfaces and records each
// unicast address against its owning endpoint.
func NewEndpointRegistry(ifaces []*core.RadioInterface) *EndpointRegistry {
	r := &EndpointRegistry{byAddr: make(map[core.LinkAddr]EndpointID, len(ifaces))}
	for _, ri := range ifaces {
		if ri.Addr.IsGroup() {
			continue
		}
		r.byAddr[ri.Addr] = EndpointID(ri.EndpointID)
	}
	return r
}

// Resolve returns the endpoint owning addr. Group addresses and unknown
// addresses resolve to a miss.
func (r *EndpointRegistry) Resolve(addr core.LinkAddr) (EndpointID, bool) {
	if addr.IsGroup() {
		return "", false
	}
	id, ok := r.byAddr[addr]
	return id, ok
}

// Len returns the number of registered addresses.
func (r *EndpointRegistry) Len() int { return len(r.byAddr) }
