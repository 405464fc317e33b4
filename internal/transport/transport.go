// Package transport defines the Transport capability the actor system
// routes every Send/Call through, and the default in-process
// implementation (spec.md §4.5).
package transport

import (
	"context"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// LocalDeliverer is the actor system's local-delivery entry point
// (spec.md §4.4): look up the target actor entry, await its startup
// promise, enqueue the message. Both the in-process and the cluster
// transports call back into it.
type LocalDeliverer interface {
	LocalDeliver(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error
}

// Transport accepts an envelope and an optional response promise and
// either delivers it locally or ships it to a remote peer. Send returning
// nil only means the envelope was accepted for delivery, not that a Call
// has completed — the caller observes completion through promise.
type Transport interface {
	Send(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error
	Close() error
}
