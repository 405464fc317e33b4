package cluster

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/webitel/actorcluster/config"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

// Module provides a Registry built according to
// config.ActorSystemConfig.ClusterRegistry: "static" wires a
// StaticRegistry from config.StaticRegistryConfig, "dynamic" wires a
// DynamicRegistry backed by Redis and AMQP, "none" (or empty) provides no
// registry at all — actorsystem.NewFromConfig accepts a nil Registry via
// its optional fx.In field.
//
// fx.As re-exposes the concrete Registry this provides as
// actorsystem.ClusterRegistry, the (smaller) interface actorsystem
// actually depends on, so the two packages' DI types line up without
// actorsystem needing to import cluster.
var Module = fx.Module(
	"cluster",

	fx.Provide(
		fx.Annotate(
			NewRegistryFromConfig,
			fx.As(new(actorsystem.ClusterRegistry)),
		),
	),

	fx.Invoke(registerLifecycle),
)

// registerLifecycle closes the registry on shutdown if this process
// constructed one and it owns disposable resources (DynamicRegistry's
// Redis client and AMQP connections; StaticRegistry has nothing to
// dispose).
func registerLifecycle(lc fx.Lifecycle, registry actorsystem.ClusterRegistry) {
	d, ok := registry.(interface{ Close() error })
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Close()
		},
	})
}

// NewRegistryFromConfig builds whichever registry implementation the
// config selects. It returns (nil, nil) for "none" so fx can still
// satisfy actorsystem's optional registry dependency with an untyped nil.
func NewRegistryFromConfig(cfg *config.Config) (Registry, error) {
	switch cfg.ActorSystem.ClusterRegistry {
	case "", "none":
		return nil, nil
	case "static":
		opts := make([]StaticOption, 0, len(cfg.Static.Nodes))
		for _, n := range cfg.Static.Nodes {
			opts = append(opts, WithNode(n.NodeID, n.Endpoint))
		}
		return NewStaticRegistry(cfg.ActorSystem.NodeID, opts...), nil
	case "dynamic":
		kv := NewRedisKV(cfg.Dynamic.RedisAddress, cfg.Dynamic.RedisDB, cfg.Dynamic.RedisPassword)
		return NewDynamicRegistry(kv, DynamicOptions{
			LocalNodeID:     cfg.Dynamic.NodeID,
			LocalEndpoint:   cfg.Dynamic.LocalEndpoint,
			KeyPrefix:       cfg.Dynamic.KeyPrefix,
			AMQPURL:         cfg.Dynamic.AMQPURL,
			RegistrationTTL: cfg.Dynamic.RegistrationTTL,
			HeartbeatEvery:  cfg.Dynamic.HeartbeatInterval,
			CacheTTL:        cfg.Dynamic.CacheTTL,
		})
	default:
		return nil, fmt.Errorf("cluster: unknown cluster-registry %q", cfg.ActorSystem.ClusterRegistry)
	}
}
