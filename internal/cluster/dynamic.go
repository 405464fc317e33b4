package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/webitel/actorcluster/internal/actorcore"
)

// invalidationMsg is the payload carried over the cross-node invalidation
// bus: either a claim ("a name/handle now resolves to node/handle") or a
// removal. Encoded as pipe-delimited text rather than JSON — "service|name|node|handle"
// and "remove|name|handle" — matching the wire shape other nodes'
// invalidation consumers expect.
type invalidationMsg struct {
	Kind   string // "service" | "remove"
	Name   string
	NodeID string
	Handle int64
}

func (m invalidationMsg) encode() string {
	if m.Kind == "remove" {
		return fmt.Sprintf("remove|%s|%d", m.Name, m.Handle)
	}
	return fmt.Sprintf("service|%s|%s|%d", m.Name, m.NodeID, m.Handle)
}

func decodeInvalidationMsg(s string) (invalidationMsg, bool) {
	parts := strings.Split(s, "|")
	switch parts[0] {
	case "service":
		if len(parts) != 4 {
			return invalidationMsg{}, false
		}
		h, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return invalidationMsg{}, false
		}
		return invalidationMsg{Kind: "service", Name: parts[1], NodeID: parts[2], Handle: h}, true
	case "remove":
		if len(parts) != 3 {
			return invalidationMsg{}, false
		}
		h, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return invalidationMsg{}, false
		}
		return invalidationMsg{Kind: "remove", Name: parts[1], Handle: h}, true
	default:
		return invalidationMsg{}, false
	}
}

// DynamicRegistry resolves names and handles through a shared Redis
// keyspace, coordinating cross-node exclusivity with SETNX+TTL,
// refreshing its own claims on a heartbeat, and invalidating its local
// lookup cache when another node's claim or removal arrives over a
// watermill/AMQP fan-out topic (spec.md §8 scenario 6).
type DynamicRegistry struct {
	localNodeID   string
	localEndpoint string
	keyPrefix     string

	kv              KV
	registrationTTL time.Duration
	heartbeatEvery  time.Duration
	cacheTTL        time.Duration

	cache *lru.Cache[string, cacheEntry]

	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu    sync.Mutex // guards owned/nodes
	owned map[string]actorcore.Handle
	nodes map[string]actorcore.NodeDescriptor

	cancel context.CancelFunc
	stopped chan struct{}
}

type cacheEntry struct {
	loc       actorcore.Location
	expiresAt time.Time
	permanent bool
}

// DynamicOptions configures a DynamicRegistry at construction.
type DynamicOptions struct {
	LocalNodeID     string
	LocalEndpoint   string
	KeyPrefix       string
	AMQPURL         string
	RegistrationTTL time.Duration
	HeartbeatEvery  time.Duration
	CacheTTL        time.Duration
	CacheSize       int
	Logger          *slog.Logger
}

// NewDynamicRegistry wires a Redis-backed KV, a bounded local lookup
// cache, and an AMQP fan-out subscription for cache invalidation, and
// starts the background heartbeat loop that keeps this node's claims
// alive.
func NewDynamicRegistry(kv KV, opts DynamicOptions) (*DynamicRegistry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 4096
	}
	if opts.HeartbeatEvery >= opts.RegistrationTTL {
		return nil, fmt.Errorf("cluster: heartbeat-interval (%s) must be less than registration-ttl (%s)",
			opts.HeartbeatEvery, opts.RegistrationTTL)
	}

	cache, err := lru.New[string, cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("cluster: lru cache: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(opts.Logger)
	amqpConfig := amqp.NewDurablePubSubConfig(opts.AMQPURL, amqp.GenerateQueueNameTopicNameWithSuffix(opts.LocalNodeID))
	publisher, err := amqp.NewPublisher(amqpConfig, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("cluster: amqp publisher: %w", err)
	}
	subscriber, err := amqp.NewSubscriber(amqpConfig, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("cluster: amqp subscriber: %w", err)
	}

	r := &DynamicRegistry{
		localNodeID:     opts.LocalNodeID,
		localEndpoint:   opts.LocalEndpoint,
		keyPrefix:       opts.KeyPrefix,
		kv:              kv,
		registrationTTL: opts.RegistrationTTL,
		heartbeatEvery:  opts.HeartbeatEvery,
		cacheTTL:        opts.CacheTTL,
		cache:           cache,
		publisher:       publisher,
		subscriber:      subscriber,
		logger:          opts.Logger,
		owned:           make(map[string]actorcore.Handle),
		nodes:           make(map[string]actorcore.NodeDescriptor),
		stopped:         make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	messages, err := subscriber.Subscribe(ctx, r.eventsTopic())
	if err != nil {
		cancel()
		publisher.Close()
		subscriber.Close()
		return nil, fmt.Errorf("cluster: subscribe invalidation topic: %w", err)
	}

	if err := r.publishNodeDescriptor(context.Background()); err != nil {
		cancel()
		publisher.Close()
		subscriber.Close()
		return nil, err
	}

	go r.consumeInvalidations(ctx, messages)
	go r.heartbeatLoop(ctx)

	return r, nil
}

func (r *DynamicRegistry) LocalNodeID() string { return r.localNodeID }

func (r *DynamicRegistry) nameKey(name string) string { return r.keyPrefix + ":services:" + name }
func (r *DynamicRegistry) handleKey(h actorcore.Handle) string {
	return r.keyPrefix + ":handles:" + strconv.FormatInt(int64(h), 10)
}
func (r *DynamicRegistry) nodeKey(nodeID string) string { return r.keyPrefix + ":nodes:" + nodeID }
func (r *DynamicRegistry) eventsTopic() string          { return r.keyPrefix + ":events" }

func encodeLocation(loc actorcore.Location) string {
	return loc.NodeID + "|" + strconv.FormatInt(int64(loc.Handle), 10)
}

func decodeLocation(s string) (actorcore.Location, bool) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return actorcore.Location{}, false
	}
	h, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return actorcore.Location{}, false
	}
	return actorcore.Location{NodeID: parts[0], Handle: actorcore.Handle(h)}, true
}

// TryResolveByName resolves name, preferring the local cache (bounded
// staleness of cache-ttl for entries this node doesn't own; entries this
// node owns are cached permanently, since this node is authoritative for
// them) over a round trip to Redis.
func (r *DynamicRegistry) TryResolveByName(name string) (actorcore.Location, bool) {
	return r.resolve(r.nameKey(name))
}

func (r *DynamicRegistry) TryResolveByHandle(h actorcore.Handle) (actorcore.Location, bool) {
	return r.resolve(r.handleKey(h))
}

func (r *DynamicRegistry) resolve(key string) (actorcore.Location, bool) {
	if entry, ok := r.cache.Get(key); ok {
		if entry.permanent || time.Now().Before(entry.expiresAt) {
			return entry.loc, true
		}
		r.cache.Remove(key)
	}

	raw, ok, err := r.kv.Get(context.Background(), key)
	if err != nil || !ok {
		return actorcore.Location{}, false
	}
	loc, ok := decodeLocation(raw)
	if !ok {
		return actorcore.Location{}, false
	}

	permanent := loc.NodeID == r.localNodeID
	r.cache.Add(key, cacheEntry{loc: loc, expiresAt: time.Now().Add(r.cacheTTL), permanent: permanent})
	return loc, true
}

// TryGetNode resolves nodeID's endpoint, preferring the in-memory table
// populated by LearnNode (the TCP transport's handshake) and falling
// back to a KV read of the node-descriptor entry — the path a node that
// must *dial* a peer it has never accepted a connection from takes, since
// LearnNode alone can never populate a peer this node initiated contact
// with.
func (r *DynamicRegistry) TryGetNode(nodeID string) (actorcore.NodeDescriptor, bool) {
	if nodeID == r.localNodeID {
		return actorcore.NodeDescriptor{NodeID: r.localNodeID, Endpoint: r.localEndpoint}, true
	}

	r.mu.Lock()
	n, ok := r.nodes[nodeID]
	r.mu.Unlock()
	if ok {
		return n, true
	}

	endpoint, ok, err := r.kv.Get(context.Background(), r.nodeKey(nodeID))
	if err != nil || !ok {
		return actorcore.NodeDescriptor{}, false
	}
	n = actorcore.NodeDescriptor{NodeID: nodeID, Endpoint: endpoint}
	r.mu.Lock()
	r.nodes[nodeID] = n
	r.mu.Unlock()
	return n, true
}

// LearnNode records a remote node's endpoint, populated by the TCP
// transport's handshake on first contact. This is purely a fast-path
// cache over the node-descriptor KV entry every node publishes on
// registration — TryGetNode falls back to Redis for a node this one has
// not yet accepted or dialed a connection from.
func (r *DynamicRegistry) LearnNode(n actorcore.NodeDescriptor) {
	r.mu.Lock()
	r.nodes[n.NodeID] = n
	r.mu.Unlock()
}

// publishNodeDescriptor writes this node's own descriptor entry under
// <prefix>:nodes:<node-id>, refreshed on every heartbeat tick alongside
// owned name/handle claims — the entry other nodes fall back to in
// TryGetNode when they need to dial a peer they have not yet heard from
// directly.
func (r *DynamicRegistry) publishNodeDescriptor(ctx context.Context) error {
	if err := r.kv.Set(ctx, r.nodeKey(r.localNodeID), r.localEndpoint, r.registrationTTL); err != nil {
		return fmt.Errorf("cluster: publish node descriptor: %w", err)
	}
	return nil
}

// RegisterLocalActor claims name and h exclusively across the cluster via
// SETNX, refreshed (alongside the node-descriptor entry published at
// construction) on the heartbeat loop, and publishes the claim so other
// nodes' caches pick it up without waiting out cache-ttl.
func (r *DynamicRegistry) RegisterLocalActor(name string, h actorcore.Handle) error {
	loc := actorcore.Location{NodeID: r.localNodeID, Handle: h}
	encoded := encodeLocation(loc)
	ctx := context.Background()

	ok, err := r.kv.SetIfAbsent(ctx, r.nameKey(name), encoded, r.registrationTTL)
	if err != nil {
		return fmt.Errorf("cluster: register %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("cluster: %w: %q", actorcore.ErrNameTaken, name)
	}
	if _, err := r.kv.SetIfAbsent(ctx, r.handleKey(h), encoded, r.registrationTTL); err != nil {
		r.kv.Delete(ctx, r.nameKey(name))
		return fmt.Errorf("cluster: register handle %s: %w", h, err)
	}

	r.mu.Lock()
	r.owned[name] = h
	r.mu.Unlock()

	r.cache.Add(r.nameKey(name), cacheEntry{loc: loc, permanent: true})
	r.cache.Add(r.handleKey(h), cacheEntry{loc: loc, permanent: true})

	r.publish(invalidationMsg{Kind: "service", Name: name, NodeID: r.localNodeID, Handle: int64(h)})
	return nil
}

// UnregisterLocalActor releases name and h, both locally and in Redis,
// and notifies other nodes to drop their cached entries.
func (r *DynamicRegistry) UnregisterLocalActor(name string, h actorcore.Handle) {
	ctx := context.Background()
	if name != "" {
		r.kv.Delete(ctx, r.nameKey(name))
		r.cache.Remove(r.nameKey(name))
	}
	r.kv.Delete(ctx, r.handleKey(h))
	r.cache.Remove(r.handleKey(h))

	r.mu.Lock()
	delete(r.owned, name)
	r.mu.Unlock()

	r.publish(invalidationMsg{Kind: "remove", Name: name, NodeID: r.localNodeID, Handle: int64(h)})
}

func (r *DynamicRegistry) publish(m invalidationMsg) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(m.encode()))
	if err := r.publisher.Publish(r.eventsTopic(), msg); err != nil && r.logger != nil {
		r.logger.Warn("cluster: failed to publish invalidation", "err", err)
	}
}

func (r *DynamicRegistry) consumeInvalidations(ctx context.Context, messages <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if m, ok := decodeInvalidationMsg(string(msg.Payload)); ok && m.NodeID != r.localNodeID {
				r.cache.Remove(r.nameKey(m.Name))
				r.cache.Remove(r.handleKey(actorcore.Handle(m.Handle)))
			}
			msg.Ack()
		}
	}
}

// heartbeatLoop refreshes the node-descriptor entry and every owned
// claim's TTL at heartbeatEvery, keeping them alive so long as this node
// is up; a crashed node's entries expire naturally once registration-ttl
// elapses without a refresh.
func (r *DynamicRegistry) heartbeatLoop(ctx context.Context) {
	defer close(r.stopped)
	ticker := time.NewTicker(r.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.kv.Refresh(ctx, r.nodeKey(r.localNodeID), r.registrationTTL); err != nil && r.logger != nil {
				r.logger.Warn("cluster: heartbeat refresh failed", "node", r.localNodeID, "err", err)
			}

			r.mu.Lock()
			owned := make(map[string]actorcore.Handle, len(r.owned))
			for name, h := range r.owned {
				owned[name] = h
			}
			r.mu.Unlock()

			for name, h := range owned {
				if err := r.kv.Refresh(ctx, r.nameKey(name), r.registrationTTL); err != nil && r.logger != nil {
					r.logger.Warn("cluster: heartbeat refresh failed", "name", name, "err", err)
				}
				r.kv.Refresh(ctx, r.handleKey(h), r.registrationTTL)
			}
		}
	}
}

// Close releases every claim this node owns, deletes its own node
// descriptor (rather than leaving it to expire on registration-ttl),
// stops the heartbeat and invalidation-consumer goroutines, closes the KV
// client (when it has a Close method), and closes the message bus.
func (r *DynamicRegistry) Close() error {
	r.mu.Lock()
	owned := make(map[string]actorcore.Handle, len(r.owned))
	for name, h := range r.owned {
		owned[name] = h
	}
	r.mu.Unlock()

	for name, h := range owned {
		r.UnregisterLocalActor(name, h)
	}
	r.kv.Delete(context.Background(), r.nodeKey(r.localNodeID))

	r.cancel()
	<-r.stopped
	if c, ok := r.kv.(interface{ Close() error }); ok {
		c.Close()
	}
	r.publisher.Close()
	return r.subscriber.Close()
}
