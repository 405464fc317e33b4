package gateway

import "fmt"

// factories maps a config-supplied router-factory name to the
// application's RouterFactory implementation. The application registers
// its factory at init time (mirroring cluster.RegisterGobType's
// init-time registration idiom); the gateway module resolves it by name
// out of process configuration.
var factories = make(map[string]RouterFactory)

// RegisterRouterFactory makes factory available under name for the
// gateway's router-factory configuration option to select.
func RegisterRouterFactory(name string, factory RouterFactory) {
	factories[name] = factory
}

func factoryByName(name string) (RouterFactory, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("gateway: no router factory registered under name %q", name)
	}
	return f, nil
}
