package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// redisKV is the production KV implementation, wrapping every round trip
// in a circuit breaker so a degraded or partitioned Redis fails fast
// instead of stalling every create()/get_by_name() call behind dial
// timeouts — named-but-not-grounded deps; see DESIGN.md.
type redisKV struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// NewRedisKV dials address (and selects db, authenticating with password
// if non-empty) and wraps it with a breaker that opens after 5
// consecutive failures and probes again after 30s.
func NewRedisKV(address string, db int, password string) *redisKV {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		DB:       db,
		Password: password,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cluster-registry-kv",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &redisKV{client: client, breaker: breaker}
}

func (k *redisKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	out, err := k.breaker.Execute(func() (any, error) {
		return k.client.SetNX(ctx, key, value, ttl).Result()
	})
	if err != nil {
		return false, fmt.Errorf("cluster: redis setnx %s: %w", key, err)
	}
	return out.(bool), nil
}

func (k *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := k.breaker.Execute(func() (any, error) {
		return k.client.Set(ctx, key, value, ttl).Result()
	})
	if err != nil {
		return fmt.Errorf("cluster: redis set %s: %w", key, err)
	}
	return nil
}

func (k *redisKV) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	_, err := k.breaker.Execute(func() (any, error) {
		return k.client.Expire(ctx, key, ttl).Result()
	})
	if err != nil {
		return fmt.Errorf("cluster: redis expire %s: %w", key, err)
	}
	return nil
}

func (k *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := k.breaker.Execute(func() (any, error) {
		return k.client.Get(ctx, key).Result()
	})
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cluster: redis get %s: %w", key, err)
	}
	return out.(string), true, nil
}

func (k *redisKV) Delete(ctx context.Context, key string) error {
	_, err := k.breaker.Execute(func() (any, error) {
		return k.client.Del(ctx, key).Result()
	})
	if err != nil {
		return fmt.Errorf("cluster: redis del %s: %w", key, err)
	}
	return nil
}

func (k *redisKV) Close() error {
	return k.client.Close()
}
