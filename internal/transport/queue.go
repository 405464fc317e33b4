package transport

import (
	"sync"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// dispatchItem pairs an envelope with its optional response promise for
// the queued in-process transport's single-reader dispatch queue.
type dispatchItem struct {
	env     actorcore.Envelope
	promise *actorcore.ResponsePromise
}

// dispatchQueue is an unbounded, single-reader/multi-writer FIFO, the same
// shape as actorcore.Mailbox but scoped to the transport package (the
// queued in-process transport's dispatch loop is a different concern from
// an actor's mailbox, even though the underlying data structure coincides
// — see DESIGN.md).
type dispatchQueue struct {
	mu       sync.Mutex
	items    []dispatchItem
	closed   bool
	notifyCh chan struct{}
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{notifyCh: make(chan struct{}, 1)}
}

func (q *dispatchQueue) push(item dispatchItem) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
	return true
}

func (q *dispatchQueue) wait() <-chan struct{} { return q.notifyCh }

func (q *dispatchQueue) drain() []dispatchItem {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

func (q *dispatchQueue) close() []dispatchItem {
	q.mu.Lock()
	q.closed = true
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}
