package gateway

import (
	"context"

	"go.uber.org/fx"
)

// Module wires the Gateway into the process lifecycle: built during
// fx.New, started and stopped alongside every other OnStart/OnStop hook.
var Module = fx.Module(
	"gateway",

	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, g *Gateway) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return g.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return g.Stop(ctx) },
	})
}
