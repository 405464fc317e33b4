// Package actorcore implements the handle/envelope primitives, the
// per-actor mailbox and pump, and the atomic metrics registry that every
// other layer of the runtime builds on.
package actorcore

import (
	"fmt"
	"sync/atomic"
)

// Handle is a 64-bit positive integer identifying an actor within one
// process. Zero is reserved and means "no actor".
type Handle int64

// NoHandle is the reserved zero value meaning "none".
const NoHandle Handle = 0

// Valid reports whether h is a usable (non-zero) handle.
func (h Handle) Valid() bool {
	return h != NoHandle
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d", int64(h))
}

// HandleAllocator hands out monotonically increasing handles starting from
// a configurable per-node offset. Callers may also supply an explicit
// handle (to match a pre-agreed cluster placement); the allocator only
// tracks the high-water mark so auto-allocation never collides with an
// explicitly chosen value below it.
type HandleAllocator struct {
	next atomic.Int64
}

// NewHandleAllocator creates an allocator whose first auto-allocated handle
// is offset+1. An offset of 0 yields handle 1 as the first value, matching
// the "message-id 1 is first" boundary behavior used elsewhere in the
// system for monotonic counters.
func NewHandleAllocator(offset int64) *HandleAllocator {
	a := &HandleAllocator{}
	a.next.Store(offset)
	return a
}

// Next returns the next auto-allocated handle.
func (a *HandleAllocator) Next() Handle {
	return Handle(a.next.Add(1))
}

// Observe bumps the allocator's high-water mark so that a caller-supplied
// explicit handle is never re-issued by a later auto-allocation.
func (a *HandleAllocator) Observe(h Handle) {
	for {
		cur := a.next.Load()
		if int64(h) <= cur {
			return
		}
		if a.next.CompareAndSwap(cur, int64(h)) {
			return
		}
	}
}
