package tcp

import (
	"fmt"
	"net"
	"sync"
)

// peer wraps one TCP connection to another node. writeMu serializes
// frame writes — reads happen on a single dedicated goroutine per peer,
// so no read-side lock is needed.
type peer struct {
	nodeID string
	conn   net.Conn

	writeMu sync.Mutex
}

func newPeer(nodeID string, conn net.Conn) *peer {
	return &peer{nodeID: nodeID, conn: conn}
}

func (p *peer) writeFrame(frameType byte, payload []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return writeFrame(p.conn, frameType, payload)
}

func (p *peer) close() error {
	return p.conn.Close()
}

// peerTable manages the set of live outbound/inbound connections, keyed
// by remote node-id, dialing lazily and exactly once per peer under a
// double-checked lock (mirroring the teacher's LoadOrStore-based Cell
// registration in internal/domain/registry/hub.go, adapted from a
// sync.Map to an explicit mutex since dialing can fail and a failed dial
// must not poison the table).
type peerTable struct {
	mu    sync.Mutex
	peers map[string]*peer
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[string]*peer)}
}

func (t *peerTable) get(nodeID string) (*peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[nodeID]
	return p, ok
}

// getOrDial returns the existing connection to nodeID, or dials endpoint
// and performs the handshake if none exists yet. Concurrent callers
// racing on the same nodeID block behind the same dial attempt rather
// than opening duplicate sockets. The second return value reports
// whether p was just dialed by this call (as opposed to an existing
// connection reused) — the caller must start a read loop on a freshly
// dialed peer, since nothing else will (spec.md §9's cyclic ownership
// triangle requires a reader on every connection, not only accepted
// ones).
func (t *peerTable) getOrDial(nodeID, endpoint, localNodeID, localEndpoint string, dialer func(endpoint string) (net.Conn, error)) (p *peer, fresh bool, err error) {
	t.mu.Lock()
	if p, ok := t.peers[nodeID]; ok {
		t.mu.Unlock()
		return p, false, nil
	}
	// Hold the lock across the dial so a second caller for the same
	// nodeID waits instead of racing a duplicate connection.
	conn, err := dialer(endpoint)
	if err != nil {
		t.mu.Unlock()
		return nil, false, fmt.Errorf("tcp: dial %s (%s): %w", nodeID, endpoint, err)
	}

	if err := performOutboundHandshake(conn, localNodeID, localEndpoint); err != nil {
		conn.Close()
		t.mu.Unlock()
		return nil, false, err
	}

	np := newPeer(nodeID, conn)
	t.peers[nodeID] = np
	t.mu.Unlock()
	return np, true, nil
}

func (t *peerTable) put(nodeID string, p *peer) {
	t.mu.Lock()
	t.peers[nodeID] = p
	t.mu.Unlock()
}

func (t *peerTable) remove(nodeID string, expect *peer) {
	t.mu.Lock()
	if cur, ok := t.peers[nodeID]; ok && cur == expect {
		delete(t.peers, nodeID)
	}
	t.mu.Unlock()
}

// snapshot returns every currently-live peer, for the heartbeat loop.
func (t *peerTable) snapshot() []*peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}

func (t *peerTable) closeAll() {
	t.mu.Lock()
	peers := t.peers
	t.peers = make(map[string]*peer)
	t.mu.Unlock()
	for _, p := range peers {
		p.close()
	}
}
