package actorcore

import "go.uber.org/fx"

// Module provides the metrics registry as a shared singleton; every Host
// in the process registers into it regardless of which system created it.
var Module = fx.Module(
	"actorcore",

	fx.Provide(
		NewMetricsRegistry,
	),
)
