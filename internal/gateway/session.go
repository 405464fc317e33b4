package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

// SessionMeta is the immutable record a router observes for one session
// (spec.md §3 "Session entry", minus the fields that are the gateway's
// own bookkeeping — connection object and router).
type SessionMeta struct {
	SessionID      string
	Protocol       Protocol
	RemoteEndpoint string
	ConnectedAt    time.Time
	Handle         actorcore.Handle
}

// SessionContext is what a Router sees and drives (spec.md §4.9 "Session
// context API").
type SessionContext interface {
	Meta() SessionMeta
	Set(key string, value any)
	Get(key string) (any, bool)
	SendBytes(payload []byte) error
	SendString(payload string) error
	Forward(ctx context.Context, target actorcore.Handle, payload any) error
	Call(ctx context.Context, target actorcore.Handle, payload any, timeout time.Duration) (any, error)
	BindActor(h actorcore.Handle)
	BoundActor() (actorcore.Handle, bool)
}

// messages delivered into the session actor's own mailbox.
type inboundBytesMsg struct{ payload []byte }
type outboundBytesMsg struct{ payload []byte }
type closeRequestMsg struct {
	reason CloseReason
	err    error
}
type idleTimeoutNoticeMsg struct{}
type clientClosedNoticeMsg struct{ err error }

// sessionActor owns one external connection and mediates between it and
// the application router (spec.md §4.9 "Session actor").
type sessionActor struct {
	self actorcore.Handle

	conn          connection
	meta          SessionMeta
	routerFactory RouterFactory
	router        Router
	system        *actorsystem.System
	table         *sessionTable
	logger        *slog.Logger
	idleTimeout   time.Duration

	bagMu sync.Mutex
	bag   map[string]any

	boundMu  sync.Mutex
	bound    actorcore.Handle
	hasBound bool

	lastActivity activityClock
	closeOnce    sync.Once
	idleStop     chan struct{}
}

func newSessionActor(conn connection, meta SessionMeta, routerFactory RouterFactory, system *actorsystem.System, table *sessionTable, idleTimeout time.Duration, logger *slog.Logger) *sessionActor {
	return &sessionActor{
		conn:          conn,
		meta:          meta,
		routerFactory: routerFactory,
		system:        system,
		table:         table,
		logger:        logger,
		idleTimeout:   idleTimeout,
		bag:           make(map[string]any),
		idleStop:      make(chan struct{}),
	}
}

// BindSelf implements actorcore.SelfBinder: the session actor needs its
// own handle so the reader goroutine and idle monitor (both external to
// the actor) can address notices back into its mailbox.
func (a *sessionActor) BindSelf(h actorcore.Handle) {
	a.self = h
	a.meta.Handle = h
}

func (a *sessionActor) Start(ctx context.Context) error {
	a.lastActivity.touch()
	a.router = a.routerFactory(a.meta)
	if a.table != nil {
		a.table.register(a.meta.SessionID, sessionEntry{meta: a.meta, handle: a.self})
	}
	go runIdleMonitor(a.idleStop, a.idleTimeout, &a.lastActivity, func() {
		a.system.Send(context.Background(), a.self, idleTimeoutNoticeMsg{}, actorcore.NoHandle)
	})
	go a.readLoop()
	a.router.OnStarted(ctx, a)
	return nil
}

func (a *sessionActor) readLoop() {
	for {
		payload, err := a.conn.readMessage(context.Background())
		if err != nil {
			if isProtocolViolation(err) {
				a.system.Send(context.Background(), a.self, closeRequestMsg{reason: ProtocolViolation, err: err}, actorcore.NoHandle)
			} else {
				a.system.Send(context.Background(), a.self, clientClosedNoticeMsg{err: err}, actorcore.NoHandle)
			}
			return
		}
		a.system.Send(context.Background(), a.self, inboundBytesMsg{payload: payload}, actorcore.NoHandle)
	}
}

func (a *sessionActor) Receive(ctx context.Context, env actorcore.Envelope) (any, error) {
	switch msg := env.Payload.(type) {
	case inboundBytesMsg:
		a.lastActivity.touch()
		a.router.OnMessage(ctx, a, msg.payload)
		return nil, nil
	case outboundBytesMsg:
		a.lastActivity.touch()
		return nil, a.conn.writeMessage(msg.payload)
	case closeRequestMsg:
		a.doClose(ctx, msg.reason, msg.err)
		return nil, nil
	case idleTimeoutNoticeMsg:
		a.doClose(ctx, HeartbeatTimeout, nil)
		return nil, nil
	case clientClosedNoticeMsg:
		a.doClose(ctx, ClientDisconnected, msg.err)
		go a.system.Kill(a.self)
		return nil, nil
	default:
		return nil, fmt.Errorf("gateway: session actor received unknown message %T", env.Payload)
	}
}

func (a *sessionActor) Stop(ctx context.Context) error {
	a.doClose(ctx, ServerShutdown, nil)
	return nil
}

// doClose is idempotent: the reader goroutine, the idle monitor, the
// router, and Stop can all race to close the same session.
func (a *sessionActor) doClose(ctx context.Context, reason CloseReason, err error) {
	a.closeOnce.Do(func() {
		close(a.idleStop)
		_ = a.conn.close()
		if a.table != nil {
			a.table.unregister(a.meta.SessionID)
		}
		if a.router != nil {
			a.router.OnClosed(ctx, a, reason, err)
		}
	})
}

// --- SessionContext ---

func (a *sessionActor) Meta() SessionMeta { return a.meta }

func (a *sessionActor) Set(key string, value any) {
	a.bagMu.Lock()
	a.bag[key] = value
	a.bagMu.Unlock()
}

func (a *sessionActor) Get(key string) (any, bool) {
	a.bagMu.Lock()
	defer a.bagMu.Unlock()
	v, ok := a.bag[key]
	return v, ok
}

func (a *sessionActor) SendBytes(payload []byte) error {
	return a.system.Send(context.Background(), a.self, outboundBytesMsg{payload: payload}, actorcore.NoHandle)
}

func (a *sessionActor) SendString(payload string) error {
	return a.SendBytes([]byte(payload))
}

func (a *sessionActor) Forward(ctx context.Context, target actorcore.Handle, payload any) error {
	return a.system.Send(ctx, target, payload, a.self)
}

func (a *sessionActor) Call(ctx context.Context, target actorcore.Handle, payload any, timeout time.Duration) (any, error) {
	return a.system.Call(ctx, target, payload, timeout, a.self)
}

func (a *sessionActor) BindActor(h actorcore.Handle) {
	a.boundMu.Lock()
	a.bound = h
	a.hasBound = true
	a.boundMu.Unlock()
}

func (a *sessionActor) BoundActor() (actorcore.Handle, bool) {
	a.boundMu.Lock()
	defer a.boundMu.Unlock()
	return a.bound, a.hasBound
}

// activityClock tracks the last-activity timestamp the idle monitor reads
// (spec.md §4.9 "Idle monitor").
type activityClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *activityClock) touch() {
	c.mu.Lock()
	c.last = time.Now()
	c.mu.Unlock()
}

func (c *activityClock) idleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return 0
	}
	return time.Since(c.last)
}
