// Package cluster implements the registry contract described in
// spec.md §4.6: resolving an actor name or handle to the node and handle
// it currently lives on, and registering/unregistering this node's own
// actors so other nodes can find them. Two implementations are provided:
// a fixed, config-driven StaticRegistry and a Redis+watermill-backed
// DynamicRegistry for deployments that add and remove nodes at runtime.
package cluster

import (
	"errors"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// ErrUnknownNode is wrapped into the error the TCP transport's Send
// returns when TryGetNode (which itself only reports false) does not know
// the node a handle resolves to.
var ErrUnknownNode = errors.New("cluster: unknown node")

// Registry is the contract the actor system depends on (see
// actorsystem.ClusterRegistry) plus the one additional lookup — resolving
// a bare node-id to its reachable endpoint — that the TCP cluster
// transport needs to dial a peer.
type Registry interface {
	LocalNodeID() string
	TryResolveByName(name string) (actorcore.Location, bool)
	TryResolveByHandle(h actorcore.Handle) (actorcore.Location, bool)
	TryGetNode(nodeID string) (actorcore.NodeDescriptor, bool)
	RegisterLocalActor(name string, h actorcore.Handle) error
	UnregisterLocalActor(name string, h actorcore.Handle)
}
