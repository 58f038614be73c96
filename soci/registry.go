package soci

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/soci-go/soci/backend"
)

// Register installs a backend.Factory under name, the Go rendering of
// backend_factory registration via the static backend_factory_postgresql
// instance in each backend's .cpp file. Call it from an init() in the
// backend package (statically linked) or from a dynamically loaded plugin's
// init (see LoadPlugin).
func Register(name string, f backend.Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Registered reports whether a backend is already registered under name.
func Registered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

var (
	registryMu sync.RWMutex
	registry   = map[string]backend.Factory{}
)

func lookupFactory(name string) (backend.Factory, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return f, nil
	}
	return nil, New(InvalidStatement, fmt.Sprintf("soci: no backend registered under %q; import its package (or call LoadPlugin) before Open", name))
}

// LoadPlugin dynamically loads a backend from a .so built with `go build
// -buildmode=plugin`, the Go analogue of SOCI's dynamic_backends loading a
// shared library named libsoci_<name>.so off SOCI_BACKEND_PATH. The plugin
// is expected to export a symbol named "Factory" of type backend.Factory;
// loading it triggers the plugin's own init(), which is where it is expected
// to call Register instead of relying on the returned Factory (both work,
// but Register is how the statically linked backends do it, so a plugin
// stays consistent with them).
func LoadPlugin(path string) (backend.Factory, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, Wrap(SystemError, fmt.Sprintf("soci: failed to load backend plugin %q", path), err)
	}
	sym, err := p.Lookup("Factory")
	if err != nil {
		return nil, Wrap(SystemError, fmt.Sprintf("soci: plugin %q does not export a Factory symbol", path), err)
	}
	f, ok := sym.(backend.Factory)
	if !ok {
		return nil, New(SystemError, fmt.Sprintf("soci: plugin %q's Factory symbol does not implement backend.Factory", path))
	}
	return f, nil
}
