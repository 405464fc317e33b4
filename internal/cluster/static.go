package cluster

import (
	"fmt"
	"sync"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// StaticOption configures a StaticRegistry at construction, mirroring the
// registry package's functional-options idiom (Hub's WithEvictionInterval
// and friends).
type StaticOption func(*StaticRegistry)

// WithNode adds a known cluster member's endpoint to the registry.
func WithNode(nodeID, endpoint string) StaticOption {
	return func(r *StaticRegistry) {
		r.nodes[nodeID] = actorcore.NodeDescriptor{NodeID: nodeID, Endpoint: endpoint}
	}
}

// WithSeedLocation pre-populates a name/handle pin to a (possibly remote)
// node, for deployments that assign well-known services to specific
// nodes in config rather than discovering them dynamically.
func WithSeedLocation(name string, loc actorcore.Location) StaticOption {
	return func(r *StaticRegistry) {
		r.byName[name] = loc
		r.byHandle[loc.Handle] = loc
	}
}

// StaticRegistry resolves names and handles against a fixed, in-memory
// node table supplied at construction. Local registrations are pure
// bookkeeping (an in-memory map); there is no remote coordination, so a
// name claimed on one node is not visible to any other node — callers
// that need cross-node exclusivity want DynamicRegistry instead.
type StaticRegistry struct {
	localNodeID string
	nodes       map[string]actorcore.NodeDescriptor

	mu       sync.RWMutex
	byName   map[string]actorcore.Location
	byHandle map[actorcore.Handle]actorcore.Location
}

// NewStaticRegistry creates a registry for localNodeID, applying every
// opt to seed the node table.
func NewStaticRegistry(localNodeID string, opts ...StaticOption) *StaticRegistry {
	r := &StaticRegistry{
		localNodeID: localNodeID,
		nodes:       make(map[string]actorcore.NodeDescriptor),
		byName:      make(map[string]actorcore.Location),
		byHandle:    make(map[actorcore.Handle]actorcore.Location),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *StaticRegistry) LocalNodeID() string { return r.localNodeID }

func (r *StaticRegistry) TryResolveByName(name string) (actorcore.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byName[name]
	return loc, ok
}

func (r *StaticRegistry) TryResolveByHandle(h actorcore.Handle) (actorcore.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byHandle[h]
	return loc, ok
}

func (r *StaticRegistry) TryGetNode(nodeID string) (actorcore.NodeDescriptor, bool) {
	n, ok := r.nodes[nodeID]
	return n, ok
}

// RegisterLocalActor claims name for h on this node. Returns
// actorcore.ErrNameTaken if name is already claimed by a different
// handle on this node.
func (r *StaticRegistry) RegisterLocalActor(name string, h actorcore.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok && existing.Handle != h {
		return fmt.Errorf("cluster: %w: %q", actorcore.ErrNameTaken, name)
	}
	loc := actorcore.Location{NodeID: r.localNodeID, Handle: h}
	r.byName[name] = loc
	r.byHandle[h] = loc
	return nil
}

func (r *StaticRegistry) UnregisterLocalActor(name string, h actorcore.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok && existing.Handle == h {
		delete(r.byName, name)
	}
	// Only drop the handle entry if it is this node's own registration —
	// a seeded remote pin (WithSeedLocation) can otherwise share a handle
	// value and must survive an unrelated local unregister.
	if existing, ok := r.byHandle[h]; ok && existing.NodeID == r.localNodeID {
		delete(r.byHandle, h)
	}
}
