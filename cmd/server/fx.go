package server

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/webitel/actorcluster/config"
	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/actorsystem"
	"github.com/webitel/actorcluster/internal/cluster"
	"github.com/webitel/actorcluster/internal/cluster/tcp"
	"github.com/webitel/actorcluster/internal/gateway"
)

// NewApp assembles the process's fx graph: configuration, logger, actor
// system, cluster registry, cluster TCP transport, and the client
// gateway, each owning its own Module the way the teacher composes
// postgres.Module/service.Module/grpchandler.Module/grpcsrv.Module.
func NewApp(cliCtx *cli.Context) *fx.App {
	return fx.New(
		fx.Provide(
			func() *cli.Context { return cliCtx },
			ProvideLogger,
		),
		config.Module,
		actorcore.Module,
		actorsystem.Module,
		cluster.Module,
		tcp.Module,
		gateway.Module,
	)
}
