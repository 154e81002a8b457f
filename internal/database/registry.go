package database

import (
	"fmt"
	"sync"

	c "github.com/life-stream-dev/mqtt-cluster-store/internal/config"
)

// Factory opens a Client for one KVS binding, given the process config.
// An alternate binding registers its own Factory at startup without any
// caller needing to change — the "dynamic class loading" extensibility
// hook of spec §9, expressed in Go as an interface plus a name-keyed
// factory registry rather than reflection-based class loading.
type Factory func(cfg c.Config) (Client, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// RegisterBinding makes a KVS binding available under name. Called from
// an init() in the binding's own package; panics on a duplicate name,
// since two bindings silently shadowing each other is always a build
// mistake, never a runtime condition to recover from.
func RegisterBinding(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("database: binding %q already registered", name))
	}
	registry[name] = factory
}

// Open resolves and invokes the Factory registered under name.
func Open(name string, cfg c.Config) (Client, error) {
	registryMu.Lock()
	factory, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("database: no binding registered under %q", name)
	}
	return factory(cfg)
}

func init() {
	RegisterBinding("redis", Connect)
}
