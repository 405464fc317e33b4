package transport

import (
	"context"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// InProcess is the default local transport. In short-circuit mode (the
// default, matching config key short-circuit-local-delivery=true) Send
// calls straight into the local-delivery entry point on the caller's own
// goroutine. In queued mode, Send enqueues onto a single-reader dispatch
// queue that a background pump drains, isolating the caller from the
// target's lookup/enqueue latency the same way the teacher's Cell
// isolates the Hub from a single slow consumer (internal/domain/registry/cell.go).
type InProcess struct {
	target       LocalDeliverer
	shortCircuit bool

	queue  *dispatchQueue
	cancel context.CancelFunc
	done   chan struct{}
}

// NewInProcess creates an in-process transport. shortCircuit selects
// which of the two modes described in spec.md §4.5 is used.
func NewInProcess(target LocalDeliverer, shortCircuit bool) *InProcess {
	t := &InProcess{target: target, shortCircuit: shortCircuit}
	if !shortCircuit {
		ctx, cancel := context.WithCancel(context.Background())
		t.queue = newDispatchQueue()
		t.cancel = cancel
		t.done = make(chan struct{})
		go t.pump(ctx)
	}
	return t
}

func (t *InProcess) Send(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error {
	if t.shortCircuit {
		return t.target.LocalDeliver(ctx, env, promise)
	}

	if ctx != nil && ctx.Err() != nil {
		if promise != nil {
			promise.Cancel()
		}
		return nil
	}

	if !t.queue.push(dispatchItem{env: env, promise: promise}) {
		if promise != nil {
			promise.Cancel()
		}
		return nil
	}

	// If the caller's own cancellation fires before the item is dispatched,
	// the response promise is completed with cancellation and the
	// envelope is left to be drained (and ignored) by the pump — spec.md
	// §4.5's "queued mode" cancellation-race clause.
	if ctx != nil && promise != nil {
		go func() {
			select {
			case <-ctx.Done():
				promise.Cancel()
			case <-promise.Done():
			}
		}()
	}
	return nil
}

func (t *InProcess) pump(ctx context.Context) {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			t.drainOnClose()
			return
		case <-t.queue.wait():
		}
		items := t.queue.drain()
		for i, item := range items {
			t.dispatchOne(ctx, item)
			select {
			case <-ctx.Done():
				for _, rest := range items[i+1:] {
					if rest.promise != nil {
						rest.promise.Cancel()
					}
				}
				t.drainOnClose()
				return
			default:
			}
		}
	}
}

func (t *InProcess) dispatchOne(ctx context.Context, item dispatchItem) {
	if item.promise != nil {
		select {
		case <-item.promise.Done():
			return // already resolved by a racing cancellation
		default:
		}
	}
	if err := t.target.LocalDeliver(ctx, item.env, item.promise); err != nil && item.promise != nil {
		item.promise.Fail(err)
	}
}

func (t *InProcess) drainOnClose() {
	for _, item := range t.queue.close() {
		if item.promise != nil {
			item.promise.Cancel()
		}
	}
}

// Close tears down the queued-mode pump (a no-op in short-circuit mode).
func (t *InProcess) Close() error {
	if t.shortCircuit {
		return nil
	}
	t.cancel()
	<-t.done
	return nil
}

