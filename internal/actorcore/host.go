package actorcore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Actor is the behavior a Host drives. Start runs once before the pump
// begins serving mail; Receive handles one envelope at a time (its
// returned value becomes the response payload for a Call, and is ignored
// for a Send); Stop runs once after the pump has finished draining.
type Actor interface {
	Start(ctx context.Context) error
	Receive(ctx context.Context, env Envelope) (any, error)
	Stop(ctx context.Context) error
}

// ErrorHook is an optional interface an Actor may implement to observe
// handler exceptions without them crashing the pump (spec.md §4.2,
// "Exceptions in the handler surface to the response promise if any, then
// flow into the error hook; the pump does not terminate").
type ErrorHook interface {
	OnError(ctx context.Context, env Envelope, err error)
}

// SelfBinder is an optional interface an Actor may implement to learn its
// own handle before Start runs. The handle is only allocated once the
// actor system has reserved it (after the factory already returned the
// Actor value), so an actor that needs to address itself — the gateway's
// session actor forwards reader-goroutine notices to its own mailbox —
// has nowhere else to learn it from.
type SelfBinder interface {
	BindSelf(h Handle)
}

// Host runs one actor's start hook, then serves its mailbox strictly in
// FIFO order until cancellation. At most one Host.pump goroutine is ever
// running per Host; that goroutine is the only place Actor.Receive is
// ever called from, which is what makes "at most one handler executes per
// actor at a time" (spec.md invariant i) true by construction.
type Host struct {
	Handle   Handle
	Name     string
	ImplKind string

	actor   Actor
	mailbox *Mailbox
	metrics *MetricsRegistry
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	startPromise *StartPromise
	stopPromise  *StopPromise
}

// NewHost creates a host and immediately starts its pump goroutine
// (running the start hook first). baseCtx is the parent for the actor's
// lifetime; cancelling it (or calling the returned Host.Stop) tears the
// actor down.
func NewHost(baseCtx context.Context, handle Handle, name, implKind string, actor Actor, mailbox *Mailbox, metrics *MetricsRegistry, logger *slog.Logger) *Host {
	ctx, cancel := context.WithCancel(baseCtx)
	h := &Host{
		Handle:       handle,
		Name:         name,
		ImplKind:     implKind,
		actor:        actor,
		mailbox:      mailbox,
		metrics:      metrics,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		startPromise: NewStartPromise(),
		stopPromise:  NewStopPromise(),
	}
	if binder, ok := actor.(SelfBinder); ok {
		binder.BindSelf(handle)
	}
	metrics.Register(handle, name, implKind)
	go h.run()
	return h
}

// Startup returns the promise that completes once the start hook returns
// (successfully or not).
func (h *Host) Startup() *StartPromise { return h.startPromise }

// Stopped returns the promise that completes once the stop hook has run
// and resources are disposed.
func (h *Host) Stopped() *StopPromise { return h.stopPromise }

// Enqueue appends (env, promise) to the actor's mailbox. Fails once the
// actor has been destroyed.
func (h *Host) Enqueue(env Envelope, promise *ResponsePromise) error {
	if err := h.mailbox.Enqueue(mailItem{env: env, promise: promise}, h.ctx.Done()); err != nil {
		return err
	}
	h.metrics.Enqueue(h.Handle)
	return nil
}

// Stop trips the host's cancellation token; the pump observes it, finishes
// draining in-flight work, runs the stop hook, and resolves Stopped().
// Stop does not block — use Stopped().Wait() to observe completion.
func (h *Host) Stop() {
	h.cancel()
}

func (h *Host) run() {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("actorcore: start hook panicked: %v", r)
			}
		}()
		return h.actor.Start(h.ctx)
	}()
	h.startPromise.Resolve(err)
	if err != nil {
		h.finish(false)
		return
	}
	h.pump()
	h.finish(true)
}

// pump is the serial executor: wait for work, drain everything currently
// available without yielding the slot, repeat, until cancellation.
func (h *Host) pump() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.mailbox.wait():
		}

		items := h.mailbox.drainAvailable()
		for i, item := range items {
			h.runOne(item)
			select {
			case <-h.ctx.Done():
				for _, rest := range items[i+1:] {
					h.metrics.Dequeue(h.Handle)
					if rest.promise != nil {
						rest.promise.Cancel()
					}
				}
				return
			default:
			}
		}
	}
}

// runOne executes a single mailbox item inside a trace scope and a
// stopwatch, and never lets a handler panic escape the pump.
func (h *Host) runOne(item mailItem) {
	h.metrics.Dequeue(h.Handle)
	handlerCtx := WithTrace(h.ctx, item.env.TraceID)
	start := time.Now()

	value, err := h.invoke(handlerCtx, item.env)
	elapsed := time.Since(start)
	h.metrics.Processed(h.Handle, elapsed, err != nil)

	if item.promise != nil {
		if err != nil {
			item.promise.Fail(err)
		} else {
			item.promise.Complete(value)
		}
	}

	if err != nil {
		if hook, ok := h.actor.(ErrorHook); ok {
			hook.OnError(handlerCtx, item.env, err)
		} else if h.logger != nil {
			h.logger.Error("actor handler error",
				"handle", h.Handle.String(), "name", h.Name, "err", err)
		}
	}
}

func (h *Host) invoke(ctx context.Context, env Envelope) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actorcore: handler panicked: %v", r)
		}
	}()
	return h.actor.Receive(ctx, env)
}

// finish drains any mail that linearized before shutdown but was never
// picked up by the pump, failing each with cancellation so no message is
// ever silently dropped (spec.md invariant ii), runs the stop hook, and
// resolves Stopped().
func (h *Host) finish(startedOK bool) {
	for _, item := range h.mailbox.closeAndDrain() {
		h.metrics.Dequeue(h.Handle)
		if item.promise != nil {
			item.promise.Cancel()
		}
	}

	if startedOK {
		stopCtx := context.Background()
		func() {
			defer func() {
				if r := recover(); r != nil && h.logger != nil {
					h.logger.Error("actor stop hook panicked", "handle", h.Handle.String(), "panic", r)
				}
			}()
			if err := h.actor.Stop(stopCtx); err != nil && h.logger != nil {
				h.logger.Error("actor stop hook failed", "handle", h.Handle.String(), "err", err)
			}
		}()
	}

	h.metrics.Unregister(h.Handle)
	h.stopPromise.Resolve()
}
