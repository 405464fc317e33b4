package cluster

import (
	"context"
	"time"
)

// KV is the minimal key-value contract DynamicRegistry needs: set-if-
// absent with a TTL (for claiming a name/handle exclusively), a plain
// set-with-TTL (for the node descriptor entry, which this node always
// owns outright and simply refreshes), refresh (for the heartbeat loop),
// get, and delete. redisKV is the only implementation; the interface
// exists so DynamicRegistry's locking and caching logic can be tested
// against an in-memory fake without a live Redis instance.
type KV interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Refresh(ctx context.Context, key string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}
