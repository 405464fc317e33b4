package actorsystem

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the actor system from the process config and registers
// an fx shutdown hook that drains every live actor before exit.
var Module = fx.Module(
	"actorsystem",

	fx.Provide(
		NewFromConfig,
	),

	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *System) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			s.Shutdown()
			return nil
		},
	})
}
