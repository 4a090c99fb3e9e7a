// Package service is the catalog of host services a sandbox may be given.
//
// Providers register under a dot-free ID; their tools carry dotted IDs that
// start with it ("math.mean"). Capabilities turns the selected services into
// bridge values: nested maps of bridge.Func keyed by the tool path, with
// guest arguments mapped onto declared parameters in order.
//
//	registry := service.NewRegistry()
//	registry.Register(math.NewProvider())
//	caps, err := registry.Capabilities(metrics, "math")
//	p, err := loader.New(`math.mean([1, 2, 3])`, loader.WithValue("math", caps["math"]))
//
// Discover ranks services against free-text queries by ID, name,
// description words, capabilities and tool names.
package service
