package tcp

import (
	"sync"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// pendingCalls correlates an outbound Call's message-id with the
// ResponsePromise waiting on its reply, across however many concurrent
// remote calls are in flight.
type pendingCalls struct {
	mu      sync.Mutex
	waiting map[int64]*actorcore.ResponsePromise
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{waiting: make(map[int64]*actorcore.ResponsePromise)}
}

func (p *pendingCalls) add(messageID int64, promise *actorcore.ResponsePromise) {
	p.mu.Lock()
	p.waiting[messageID] = promise
	p.mu.Unlock()
}

// resolve removes and returns the promise for messageID, if any is still
// pending — a cancellation or timeout may have already removed it.
func (p *pendingCalls) resolve(messageID int64) (*actorcore.ResponsePromise, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	promise, ok := p.waiting[messageID]
	if ok {
		delete(p.waiting, messageID)
	}
	return promise, ok
}

func (p *pendingCalls) remove(messageID int64) {
	p.mu.Lock()
	delete(p.waiting, messageID)
	p.mu.Unlock()
}

// drainAll removes and returns every pending promise; Transport.Close
// uses it to cancel every call still awaiting a reply.
func (p *pendingCalls) drainAll() []*actorcore.ResponsePromise {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*actorcore.ResponsePromise, 0, len(p.waiting))
	for id, promise := range p.waiting {
		out = append(out, promise)
		delete(p.waiting, id)
	}
	return out
}
