// Package actorsystem implements the coordinator described in spec.md
// §4.4: the actor table, name index, message-id counter, cluster-registry
// hook, default transport, and the routing algorithm for Send/Call.
package actorsystem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/webitel/actorcluster/config"
	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/transport"
)

// ClusterRegistry is the subset of the cluster registry contract
// (spec.md §4.6) the actor system needs: name/handle resolution for
// get_by_name's remote fallback, and name-ownership coordination for
// create's uniqueness semantics.
type ClusterRegistry interface {
	LocalNodeID() string
	TryResolveByName(name string) (actorcore.Location, bool)
	TryResolveByHandle(h actorcore.Handle) (actorcore.Location, bool)
	RegisterLocalActor(name string, h actorcore.Handle) error
	UnregisterLocalActor(name string, h actorcore.Handle)
}

// Disposable is implemented by a cluster registry the system itself
// constructed (and therefore owns the lifetime of); see spec.md §9's
// "shared registry lifecycle" note.
type Disposable interface {
	Close() error
}

// Factory constructs a new Actor implementation. Implementations type
// assert an ActorRef (passed implicitly via Receive's context / the
// System, if they need to call back out) however they see fit — the
// system itself only needs the actorcore.Actor contract.
type Factory func() (actorcore.Actor, error)

// ActorEntry is the public, read-only view of a registered actor exposed
// by list_actors / get_by_handle.
type ActorEntry struct {
	Handle   actorcore.Handle
	Name     string
	ImplKind string
}

type entry struct {
	host *actorcore.Host
	name string
}

// System is the coordinator. It owns the actor table, the name index, the
// message-id counter, an optional cluster registry, a transport, and the
// metrics registry.
type System struct {
	nodeID string

	mu             sync.Mutex // guards the two-step reserve of handles/names
	byHandle       map[actorcore.Handle]*entry
	byName         map[string]actorcore.Handle
	allocator      *actorcore.HandleAllocator
	msgID          atomicCounter
	metrics        *actorcore.MetricsRegistry
	logger         *slog.Logger
	registry       ClusterRegistry
	registryOwned  bool
	transport      transport.Transport
	transportOwned bool
}

// Options configures a System at construction.
type Options struct {
	NodeID        string
	HandleOffset  int64
	Registry      ClusterRegistry
	RegistryOwned bool
	Metrics       *actorcore.MetricsRegistry
	Logger        *slog.Logger
}

// New creates an actor system. A caller that does not supply a Transport
// via SetTransport gets the default in-process short-circuit transport,
// wired to this system's local-delivery entry point. A caller that does
// not supply Metrics gets a registry private to this system; fx wiring
// instead shares one process-wide registry across every system so
// cmd/actorctl can observe them all (see internal/actorcore's Module).
func New(opts Options) *System {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = actorcore.NewMetricsRegistry()
	}
	s := &System{
		nodeID:        opts.NodeID,
		byHandle:      make(map[actorcore.Handle]*entry),
		byName:        make(map[string]actorcore.Handle),
		allocator:     actorcore.NewHandleAllocator(opts.HandleOffset),
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		registry:      opts.Registry,
		registryOwned: opts.RegistryOwned,
	}
	s.transport = transport.NewInProcess(s, true)
	s.transportOwned = true
	return s
}

// SetTransport replaces the system's transport (e.g. with the TCP cluster
// transport). The previous transport is closed if the system owned it.
func (s *System) SetTransport(t transport.Transport, owned bool) {
	if s.transportOwned && s.transport != nil {
		s.transport.Close()
	}
	s.transport = t
	s.transportOwned = owned
}

// Metrics exposes the metrics registry for operator tooling (spec.md §1's
// "metrics snapshots" peripheral interface).
func (s *System) Metrics() *actorcore.MetricsRegistry { return s.metrics }

// NodeID returns this system's node-id.
func (s *System) NodeID() string { return s.nodeID }

// nextMessageID allocates the next monotonic message-id; 1 is the first
// value issued by a fresh system (spec.md §8 boundary behavior).
func (s *System) nextMessageID() int64 { return s.msgID.next() }

// atomicCounter is a tiny monotonic int64 counter starting at 0 so the
// first next() call returns 1.
type atomicCounter struct {
	mu sync.Mutex
	v  int64
}

func (c *atomicCounter) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
	return c.v
}

// Create starts a new actor, publishes it to the registry after its start
// hook returns successfully, and returns its handle. name is optional
// (empty means unnamed); handleOverride, if non-zero, pins the actor to a
// caller-chosen handle (e.g. to match a pre-agreed cluster placement).
func (s *System) Create(ctx context.Context, factory Factory, name string, handleOverride actorcore.Handle) (actorcore.Handle, error) {
	h, reserved, err := s.reserve(name, handleOverride)
	if err != nil {
		return actorcore.NoHandle, err
	}

	actor, err := factory()
	if err != nil {
		s.rollback(h, name, reserved)
		return actorcore.NoHandle, fmt.Errorf("actorsystem: factory failed: %w", err)
	}

	if name != "" && s.registry != nil {
		if err := s.registry.RegisterLocalActor(name, h); err != nil {
			s.rollback(h, name, reserved)
			return actorcore.NoHandle, fmt.Errorf("actorsystem: cluster name claim failed: %w", err)
		}
	}

	implKind := fmt.Sprintf("%T", actor)
	host := actorcore.NewHost(context.Background(), h, name, implKind, actor, actorcore.NewMailbox(), s.metrics, s.logger)

	if err := host.Startup().Wait(); err != nil {
		s.rollback(h, name, reserved)
		if name != "" && s.registry != nil {
			s.registry.UnregisterLocalActor(name, h)
		}
		return actorcore.NoHandle, fmt.Errorf("actorsystem: start hook failed: %w", err)
	}

	s.mu.Lock()
	s.byHandle[h] = &entry{host: host, name: name}
	s.mu.Unlock()

	return h, nil
}

// reserve atomically claims a handle and (if named) a name under the
// system's lock, rolling back on the second step's failure so a partial
// reservation is never observable.
func (s *System) reserve(name string, handleOverride actorcore.Handle) (actorcore.Handle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name != "" {
		if _, taken := s.byName[name]; taken {
			return actorcore.NoHandle, false, actorcore.ErrNameTaken
		}
	}

	var h actorcore.Handle
	if handleOverride.Valid() {
		if _, inUse := s.byHandle[handleOverride]; inUse {
			return actorcore.NoHandle, false, actorcore.ErrHandleInUse
		}
		h = handleOverride
		s.allocator.Observe(h)
	} else {
		h = s.allocator.Next()
	}

	// Reserve a placeholder so concurrent reserves see the handle/name as
	// taken immediately; Create replaces it with the real entry once the
	// host exists.
	s.byHandle[h] = nil
	if name != "" {
		s.byName[name] = h
	}
	return h, true, nil
}

func (s *System) rollback(h actorcore.Handle, name string, reserved bool) {
	if !reserved {
		return
	}
	s.mu.Lock()
	delete(s.byHandle, h)
	if name != "" {
		delete(s.byName, name)
	}
	s.mu.Unlock()
}

// GetByHandle returns the entry for h.
func (s *System) GetByHandle(h actorcore.Handle) (ActorEntry, error) {
	s.mu.Lock()
	e, ok := s.byHandle[h]
	s.mu.Unlock()
	if !ok || e == nil {
		return ActorEntry{}, actorcore.ErrNotFound
	}
	return ActorEntry{Handle: h, Name: e.name, ImplKind: e.host.ImplKind}, nil
}

// TryGetHandleByName returns the handle registered under name, if any,
// consulting only the local index.
func (s *System) TryGetHandleByName(name string) (actorcore.Handle, bool) {
	s.mu.Lock()
	h, ok := s.byName[name]
	e := s.byHandle[h]
	s.mu.Unlock()
	if !ok || e == nil {
		return actorcore.NoHandle, false
	}
	return h, true
}

// GetByName resolves name to an entry, consulting the cluster registry
// before failing if the name is not known locally.
func (s *System) GetByName(name string) (ActorEntry, error) {
	if h, ok := s.TryGetHandleByName(name); ok {
		return s.GetByHandle(h)
	}
	if s.registry != nil {
		if loc, ok := s.registry.TryResolveByName(name); ok && loc.NodeID == s.nodeID {
			return s.GetByHandle(loc.Handle)
		}
	}
	return ActorEntry{}, actorcore.ErrNotFound
}

// GetOrCreateUnique returns the reference to the sole actor registered
// under name, creating it via factory iff no such actor yet exists. Two
// concurrent callers racing on the same name observe the same handle and
// the factory runs at most once successfully (spec.md §8 scenario 3) —
// the invariant holds because reserve() takes the name under s.mu before
// either caller's factory-created host is published.
func (s *System) GetOrCreateUnique(ctx context.Context, name string, factory Factory) (actorcore.Handle, error) {
	for {
		if h, ok := s.TryGetHandleByName(name); ok {
			return h, nil
		}
		h, err := s.Create(ctx, factory, name, actorcore.NoHandle)
		if err == nil {
			return h, nil
		}
		if err == actorcore.ErrNameTaken {
			// Another caller won the race; loop to pick up its handle
			// once it finishes publishing.
			for i := 0; i < 1000; i++ {
				if h, ok := s.TryGetHandleByName(name); ok {
					return h, nil
				}
				time.Sleep(time.Millisecond)
			}
			continue
		}
		return actorcore.NoHandle, err
	}
}

// Kill stops and removes the actor at h. Returns true iff it was present.
func (s *System) Kill(h actorcore.Handle) bool {
	s.mu.Lock()
	e, ok := s.byHandle[h]
	if ok && e != nil {
		delete(s.byHandle, h)
		if e.name != "" {
			delete(s.byName, e.name)
		}
	}
	s.mu.Unlock()

	if !ok || e == nil {
		return false
	}
	if e.name != "" && s.registry != nil {
		s.registry.UnregisterLocalActor(e.name, h)
	}
	e.host.Stop()
	e.host.Stopped().Wait()
	return true
}

// ListActors returns a snapshot of every currently-registered actor.
func (s *System) ListActors() []ActorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActorEntry, 0, len(s.byHandle))
	for h, e := range s.byHandle {
		if e == nil {
			continue
		}
		out = append(out, ActorEntry{Handle: h, Name: e.name, ImplKind: e.host.ImplKind})
	}
	return out
}

// Send delivers payload to target fire-and-forget.
func (s *System) Send(ctx context.Context, to actorcore.Handle, payload any, from actorcore.Handle) error {
	env := actorcore.Envelope{
		MessageID: s.nextMessageID(),
		From:      from,
		To:        to,
		CallType:  actorcore.Send,
		Payload:   payload,
		TraceID:   actorcore.TraceFromContext(ctx),
		Origin:    time.Now(),
		Version:   actorcore.ProtocolVersion,
	}
	return s.transport.Send(ctx, env, nil)
}

// Call delivers payload to target and waits for a response, honoring an
// optional timeout. The caller is responsible for type-asserting the
// returned value to TResponse; ErrTypeMismatch is the caller's to raise
// if it doesn't match (no generic typed wrapper is provided).
func (s *System) Call(ctx context.Context, to actorcore.Handle, payload any, timeout time.Duration, from actorcore.Handle) (any, error) {
	env := actorcore.Envelope{
		MessageID: s.nextMessageID(),
		From:      from,
		To:        to,
		CallType:  actorcore.Call,
		Payload:   payload,
		TraceID:   actorcore.TraceFromContext(ctx),
		Origin:    time.Now(),
		Version:   actorcore.ProtocolVersion,
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	promise := actorcore.NewResponsePromise()
	if err := s.transport.Send(callCtx, env, promise); err != nil {
		return nil, err
	}

	out, ok := promise.Wait(callCtx)
	if !ok {
		promise.Cancel()
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, actorcore.ErrTimeout
		}
		return nil, actorcore.ErrCancelled
	}
	if out.Cancelled {
		return nil, actorcore.ErrCancelled
	}
	if out.Err != nil {
		return nil, out.Err
	}
	return out.Value, nil
}

// LocalDeliver implements transport.LocalDeliverer: look up the target
// actor entry, await its startup promise, enqueue the message.
func (s *System) LocalDeliver(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error {
	s.mu.Lock()
	e, ok := s.byHandle[env.To]
	s.mu.Unlock()

	if !ok || e == nil {
		if promise != nil {
			promise.Fail(fmt.Errorf("actorsystem: %w: handle %s", actorcore.ErrNotFound, env.To))
		}
		return fmt.Errorf("actorsystem: %w: handle %s", actorcore.ErrNotFound, env.To)
	}

	if err := e.host.Startup().Wait(); err != nil {
		if promise != nil {
			promise.Fail(err)
		}
		return err
	}

	if err := e.host.Enqueue(env, promise); err != nil {
		if promise != nil {
			promise.Fail(err)
		}
		return err
	}
	return nil
}

// Shutdown disposes every actor entry, the owned transport (if any), and
// the owned cluster registry (if disposable and owned).
func (s *System) Shutdown() {
	s.mu.Lock()
	handles := make([]actorcore.Handle, 0, len(s.byHandle))
	for h := range s.byHandle {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		s.Kill(h)
	}

	if s.transportOwned && s.transport != nil {
		s.transport.Close()
	}
	if s.registryOwned && s.registry != nil {
		if d, ok := s.registry.(Disposable); ok {
			d.Close()
		}
	}
}

// fromConfigParams is the fx parameter object for NewFromConfig. Registry
// is optional: a deployment with actor-system.cluster-registry set to
// "none" runs with no cluster registry at all, matching a single-node
// actor system.
type fromConfigParams struct {
	fx.In

	Config  *config.Config
	Metrics *actorcore.MetricsRegistry
	Logger  *slog.Logger
	Registry ClusterRegistry `optional:"true"`
}

// NewFromConfig builds a System from process configuration, for fx
// wiring. Callers that construct a System directly (e.g. tests) should
// use New instead.
func NewFromConfig(p fromConfigParams) *System {
	return New(Options{
		NodeID:       p.Config.ActorSystem.NodeID,
		HandleOffset: p.Config.ActorSystem.HandleOffset,
		Registry:     p.Registry,
		Metrics:      p.Metrics,
		Logger:       p.Logger,
	})
}
