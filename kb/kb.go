package kb

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/hapnet-simulator/core"
	"github.com/signalsfoundry/hapnet-simulator/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventPlatformUpdated EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type     EventType
	Platform model.PlatformDefinition
}

// KnowledgeBase is an in-memory, thread-safe store for the scenario's
// platforms, radio interfaces, and channels. Platforms are stored by
// pointer so that motion models can update them in place.
type KnowledgeBase struct {
	mu sync.RWMutex

	platforms  map[string]*model.PlatformDefinition
	interfaces map[string]*core.RadioInterface
	channels   map[string]*core.RadioChannel

	subs    map[int]func(Event)
	nextSub int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		platforms:  make(map[string]*model.PlatformDefinition),
		interfaces: make(map[string]*core.RadioInterface),
		channels:   make(map[string]*core.RadioChannel),
		subs:       make(map[int]func(Event)),
	}
}

// AddPlatform adds a new platform. It returns an error if the ID already exists.
func (kb *KnowledgeBase) AddPlatform(p *model.PlatformDefinition) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.platforms[p.ID]; exists {
		return fmt.Errorf("platform with ID %q already exists", p.ID)
	}
	kb.platforms[p.ID] = p
	return nil
}

// AddInterface adds a radio interface. The owning platform must exist
// and the link-layer address must be unique and non-group.
func (kb *KnowledgeBase) AddInterface(ri *core.RadioInterface) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.interfaces[ri.ID]; exists {
		return fmt.Errorf("interface with ID %q already exists", ri.ID)
	}
	if ri.Addr.IsGroup() {
		return fmt.Errorf("interface %q: group address %q cannot identify an endpoint", ri.ID, ri.Addr)
	}
	if _, ok := kb.platforms[ri.EndpointID]; !ok {
		return fmt.Errorf("platform with ID %q not found for interface %q", ri.EndpointID, ri.ID)
	}
	for _, other := range kb.interfaces {
		if other.Addr == ri.Addr {
			return fmt.Errorf("address %q already assigned to interface %q", ri.Addr, other.ID)
		}
	}
	kb.interfaces[ri.ID] = ri
	return nil
}

// AddChannel registers a channel under its name.
func (kb *KnowledgeBase) AddChannel(c *core.RadioChannel) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.channels[c.Name]; exists {
		return fmt.Errorf("channel %q already exists", c.Name)
	}
	kb.channels[c.Name] = c
	return nil
}

// GetPlatform returns the platform with the given ID, or nil if not found.
func (kb *KnowledgeBase) GetPlatform(id string) *model.PlatformDefinition {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.platforms[id]
}

// GetInterface returns the interface with the given ID, or nil if not found.
func (kb *KnowledgeBase) GetInterface(id string) *core.RadioInterface {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.interfaces[id]
}

// GetChannel returns the channel with the given name, or nil if not found.
func (kb *KnowledgeBase) GetChannel(name string) *core.RadioChannel {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.channels[name]
}

// ListPlatforms returns a snapshot slice of all platforms.
func (kb *KnowledgeBase) ListPlatforms() []*model.PlatformDefinition {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*model.PlatformDefinition, 0, len(kb.platforms))
	for _, p := range kb.platforms {
		res = append(res, p)
	}
	return res
}

// ListInterfaces returns a snapshot slice of all radio interfaces. The
// endpoint registry is built from exactly this set.
func (kb *KnowledgeBase) ListInterfaces() []*core.RadioInterface {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*core.RadioInterface, 0, len(kb.interfaces))
	for _, ri := range kb.interfaces {
		res = append(res, ri)
	}
	return res
}

// UpdatePlatformPosition updates a platform's coordinates and notifies subscribers.
func (kb *KnowledgeBase) UpdatePlatformPosition(id string, pos model.Motion) error {
	kb.mu.Lock()
	p, ok := kb.platforms[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("platform with ID %q not found", id)
	}
	p.Coordinates = pos
	event := Event{
		Type:     EventPlatformUpdated,
		Platform: *p, // copy for safety
	}
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Subscribe registers a callback for KB events. It returns an
// unsubscribe function; subscriptions are keyed by token, so removing
// one never disturbs the others.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}
