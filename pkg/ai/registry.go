package ai

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderConfig carries the connection settings a provider factory needs.
// Unused fields are ignored by providers that do not need them.
type ProviderConfig struct {
	BaseURL string
	APIKey  string

	MaxConcurrentRequests int64
}

// ProviderFactory builds a Provider from its connection settings.
type ProviderFactory func(config ProviderConfig) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]ProviderFactory{}
)

// RegisterProvider makes a provider available under the given name. Provider
// packages call this from init; selecting a provider then only needs its
// configured name. Registering a duplicate name panics, like database/sql.
func RegisterProvider(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if factory == nil {
		panic("ai: RegisterProvider factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("ai: RegisterProvider called twice for provider " + name)
	}
	factories[name] = factory
}

// NewProvider builds the named provider. An unregistered name is a
// configuration error and is reported with the known provider names.
func NewProvider(name string, config ProviderConfig) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, &Error{
			Reason: ReasonUnsupportedProvider,
			Err:    fmt.Errorf("unknown provider %q (registered: %v)", name, ProviderNames()),
		}
	}
	return factory(config)
}

// ProviderNames lists the registered provider names in sorted order.
func ProviderNames() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
