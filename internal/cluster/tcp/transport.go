package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/cluster"
	"github.com/webitel/actorcluster/internal/transport"
)

// Transport is the cluster-aware Transport: Send consults the registry
// for the target handle and goes to a remote peer only when the registry
// places it on another node; every other handle (most are never
// registered into the cluster registry at all — only named actors are)
// is delivered locally.
type Transport struct {
	localNodeID   string
	localEndpoint string
	local         transport.LocalDeliverer
	registry      cluster.Registry
	codec         cluster.Codec
	logger        *slog.Logger

	listener net.Listener
	peers    *peerTable
	pending  *pendingCalls

	heartbeatEvery time.Duration
	connectTimeout time.Duration

	rootCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Options configures a Transport.
type Options struct {
	LocalNodeID    string
	LocalEndpoint  string
	Local          transport.LocalDeliverer
	Registry       cluster.Registry
	Codec          cluster.Codec
	Logger         *slog.Logger
	ConnectTimeout time.Duration
	HeartbeatEvery time.Duration
	ListenAddress  string // empty disables accepting inbound connections
}

// New creates a cluster transport. If opts.ListenAddress is non-empty it
// also starts an accept loop for inbound peer connections.
func New(opts Options) (*Transport, error) {
	if opts.Codec == nil {
		opts.Codec = cluster.JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		localNodeID:    opts.LocalNodeID,
		localEndpoint:  opts.LocalEndpoint,
		local:          opts.Local,
		registry:       opts.Registry,
		codec:          opts.Codec,
		logger:         opts.Logger,
		peers:          newPeerTable(),
		pending:        newPendingCalls(),
		heartbeatEvery: opts.HeartbeatEvery,
		connectTimeout: opts.ConnectTimeout,
		rootCtx:        ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	if opts.ListenAddress != "" {
		ln, err := net.Listen("tcp", opts.ListenAddress)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("tcp: listen %s: %w", opts.ListenAddress, err)
		}
		t.listener = ln
		go t.acceptLoop(ctx)
	}

	if t.heartbeatEvery > 0 {
		go t.heartbeatLoop(ctx)
	}

	go func() {
		<-ctx.Done()
		close(t.done)
	}()

	return t, nil
}

// Send implements transport.Transport.
func (t *Transport) Send(ctx context.Context, env actorcore.Envelope, promise *actorcore.ResponsePromise) error {
	if t.registry == nil {
		return t.local.LocalDeliver(ctx, env, promise)
	}
	loc, ok := t.registry.TryResolveByHandle(env.To)
	if !ok || loc.NodeID == t.localNodeID {
		return t.local.LocalDeliver(ctx, env, promise)
	}

	node, ok := t.registry.TryGetNode(loc.NodeID)
	if !ok {
		err := fmt.Errorf("tcp: %w: node %s for handle %s", cluster.ErrUnknownNode, loc.NodeID, env.To)
		if promise != nil {
			promise.Fail(err)
		}
		return err
	}

	return t.sendRemote(ctx, node, env, promise)
}

func (t *Transport) sendRemote(ctx context.Context, node actorcore.NodeDescriptor, env actorcore.Envelope, promise *actorcore.ResponsePromise) error {
	p, fresh, err := t.peers.getOrDial(node.NodeID, node.Endpoint, t.localNodeID, t.localEndpoint, t.dial)
	if err != nil {
		return err
	}
	if fresh {
		go t.readPeer(t.rootCtx, p)
	}

	if promise != nil {
		t.pending.add(env.MessageID, promise)
		if ctx != nil {
			go func() {
				select {
				case <-ctx.Done():
					if removed, ok := t.pending.resolve(env.MessageID); ok {
						removed.Cancel()
					}
				case <-promise.Done():
				}
			}()
		}
	}

	body, err := t.codec.Encode(fromEnvelope(env))
	if err != nil {
		if promise != nil {
			t.pending.remove(env.MessageID)
		}
		return fmt.Errorf("tcp: encode envelope: %w", err)
	}

	if err := p.writeFrame(FrameEnvelope, body); err != nil {
		t.dropPeer(node.NodeID, p)
		if promise != nil {
			if removed, ok := t.pending.resolve(env.MessageID); ok {
				removed.Fail(fmt.Errorf("tcp: %w", err))
			}
		}
		return fmt.Errorf("tcp: write envelope to %s: %w", node.NodeID, err)
	}
	return nil
}

func (t *Transport) dial(endpoint string) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, t.connectTimeout)
}

// dropPeer removes p from the table (iff it's still the registered
// connection for nodeID — a concurrent redial may have already replaced
// it) and closes it. Calls pending a reply over p are left in the
// pending table.
func (t *Transport) dropPeer(nodeID string, p *peer) {
	t.peers.remove(nodeID, p)
	p.close()
}

func (t *Transport) acceptLoop(ctx context.Context) {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				t.logger.Error("tcp: accept failed", "err", err)
				return
			}
		}
		go t.serveInbound(ctx, conn)
	}
}

func (t *Transport) serveInbound(ctx context.Context, conn net.Conn) {
	remote, err := performInboundHandshake(conn, t.localNodeID, t.localEndpoint)
	if err != nil {
		t.logger.Warn("tcp: inbound handshake failed", "err", err)
		conn.Close()
		return
	}

	if l, ok := t.registry.(interface {
		LearnNode(actorcore.NodeDescriptor)
	}); ok && remote.Endpoint != "" {
		l.LearnNode(actorcore.NodeDescriptor{NodeID: remote.NodeID, Endpoint: remote.Endpoint})
	}

	p := newPeer(remote.NodeID, conn)
	t.peers.put(remote.NodeID, p)
	t.readPeer(ctx, p)
}

// readPeer is the per-connection read loop shared by accepted and dialed
// peers alike: it dispatches heartbeats and envelopes (replies included)
// until the connection errors, then drops the peer. Every live
// connection — not just the ones this node accepted — must run this
// loop, since a dialed peer's socket is also where the other node's Call
// reply (and any Send it originates) arrives.
func (t *Transport) readPeer(ctx context.Context, p *peer) {
	for {
		frameType, payload, err := readFrame(p.conn)
		if err != nil {
			t.logger.Debug("tcp: connection closed", "peer", p.nodeID, "err", err)
			t.dropPeer(p.nodeID, p)
			return
		}
		switch frameType {
		case FrameHeartbeat:
			// no-op: presence of any frame already counts as liveness
		case FrameEnvelope:
			t.handleInboundEnvelope(ctx, p, payload)
		default:
			t.logger.Warn("tcp: unexpected frame type", "type", frameType, "peer", p.nodeID)
			t.dropPeer(p.nodeID, p)
			return
		}
	}
}

func (t *Transport) handleInboundEnvelope(ctx context.Context, p *peer, payload []byte) {
	var w wireEnvelope
	if err := t.codec.Decode(payload, &w); err != nil {
		t.logger.Error("tcp: decode envelope failed", "err", err)
		return
	}

	if w.IsReply {
		promise, ok := t.pending.resolve(w.MessageID)
		if !ok {
			return // already resolved locally by cancellation/timeout
		}
		if w.ReplyFault != nil {
			if w.ReplyFault.Cancelled {
				promise.Cancel()
			} else {
				promise.Fail(fmt.Errorf("tcp: %w: %s", actorcore.ErrRemoteDispatch, w.ReplyFault.Message))
			}
			return
		}
		promise.Complete(w.Payload)
		return
	}

	env := w.toEnvelope()
	if env.CallType != actorcore.Call {
		t.local.LocalDeliver(ctx, env, nil)
		return
	}

	replyPromise := actorcore.NewResponsePromise()
	if err := t.local.LocalDeliver(ctx, env, replyPromise); err != nil {
		t.sendReply(p, w.MessageID, wireEnvelope{MessageID: w.MessageID, IsReply: true,
			ReplyFault: &replyFault{Message: err.Error()}})
		return
	}

	go func() {
		out, ok := replyPromise.Wait(context.Background())
		if !ok {
			return
		}
		reply := wireEnvelope{MessageID: w.MessageID, IsReply: true}
		switch {
		case out.Cancelled:
			reply.ReplyFault = &replyFault{Cancelled: true}
		case out.Err != nil:
			reply.ReplyFault = &replyFault{Message: out.Err.Error()}
		default:
			reply.Payload = out.Value
		}
		t.sendReply(p, w.MessageID, reply)
	}()
}

func (t *Transport) sendReply(p *peer, messageID int64, reply wireEnvelope) {
	body, err := t.codec.Encode(reply)
	if err != nil {
		t.logger.Error("tcp: encode reply failed", "err", err)
		return
	}
	if err := p.writeFrame(FrameEnvelope, body); err != nil {
		t.logger.Warn("tcp: write reply failed", "err", err)
	}
}

func (t *Transport) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(t.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range t.peers.snapshot() {
				if err := p.writeFrame(FrameHeartbeat, nil); err != nil {
					t.dropPeer(p.nodeID, p)
				}
			}
		}
	}
}

// Close stops accepting new connections, cancels the heartbeat loop,
// cancels every call still pending a reply, and closes every peer
// connection. Pending calls whose peer connection was lost mid-flight
// without an explicit Close are NOT actively failed here — spec.md §9's
// documented "TCP peer-loss pending calls" behavior leaves them to the
// caller's own timeout.
func (t *Transport) Close() error {
	t.cancel()
	if t.listener != nil {
		t.listener.Close()
	}
	<-t.done

	for _, promise := range t.pending.drainAll() {
		promise.Cancel()
	}
	t.peers.closeAll()
	return nil
}
