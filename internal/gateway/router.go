// Package gateway implements the external-client gateway: TCP and
// WebSocket listeners that bind each accepted connection to a session
// actor, and the session context API the application's router observes
// and drives (spec.md §4.9).
package gateway

import "context"

// CloseReason classifies why a session ended, surfaced to the router's
// on_closed hook.
type CloseReason int

const (
	// ClientDisconnected means the remote end closed the connection or a
	// read returned EOF.
	ClientDisconnected CloseReason = iota + 1
	// HeartbeatTimeout means the idle monitor observed no activity for
	// longer than idle-timeout.
	HeartbeatTimeout
	// ProtocolViolation means a framing error, an oversized payload, or a
	// non-binary/non-text WebSocket frame.
	ProtocolViolation
	// ServerShutdown means the gateway itself is stopping.
	ServerShutdown
	// RouterClose means the router asked to close the session itself.
	RouterClose
)

func (r CloseReason) String() string {
	switch r {
	case ClientDisconnected:
		return "client_disconnected"
	case HeartbeatTimeout:
		return "heartbeat_timeout"
	case ProtocolViolation:
		return "protocol_violation"
	case ServerShutdown:
		return "server_shutdown"
	case RouterClose:
		return "router_close"
	default:
		return "unknown"
	}
}

// Router is supplied by the application; the session actor delegates all
// client-visible behavior to it. Implementations must not block a hook
// call for longer than they're willing to stall this session's mailbox
// pump.
type Router interface {
	OnStarted(ctx context.Context, sc SessionContext)
	OnMessage(ctx context.Context, sc SessionContext, payload []byte)
	OnClosed(ctx context.Context, sc SessionContext, reason CloseReason, err error)
}

// RouterFactory builds a Router for one freshly-accepted session. Called
// once per session, on the session actor's own goroutine, before
// on_started fires.
type RouterFactory func(meta SessionMeta) Router
