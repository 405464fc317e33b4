package tcp

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/actorcluster/config"
	"github.com/webitel/actorcluster/internal/actorsystem"
	"github.com/webitel/actorcluster/internal/cluster"
)

// Module replaces the actor system's default in-process transport with
// the cluster TCP transport whenever a cluster registry is configured —
// an actor system with no registry has nowhere to route a remote Send/
// Call to, so it keeps the in-process transport untouched.
var Module = fx.Module(
	"cluster-tcp",

	fx.Invoke(installTransport),
)

func installTransport(cfg *config.Config, system *actorsystem.System, registry actorsystem.ClusterRegistry, logger *slog.Logger) error {
	if registry == nil {
		return nil
	}

	fullRegistry, ok := registry.(cluster.Registry)
	if !ok {
		return nil
	}

	codec, err := cluster.CodecByName(cfg.TCP.Codec)
	if err != nil {
		return err
	}

	t, err := New(Options{
		LocalNodeID:    cfg.ActorSystem.NodeID,
		Local:          system,
		Registry:       fullRegistry,
		Codec:          codec,
		Logger:         logger,
		ConnectTimeout: cfg.TCP.ConnectTimeout,
		HeartbeatEvery: cfg.TCP.HeartbeatInterval,
		ListenAddress:  cfg.TCP.ListenAddress,
	})
	if err != nil {
		return err
	}

	system.SetTransport(t, true)
	return nil
}
