package datasource

import (
	"sync"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// AdapterInfo describes a registered provider for UI discovery.
type AdapterInfo struct {
	Provider    models.Provider `json:"provider"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description"`
}

// Registration contains info + the adapter implementing the provider.
type Registration struct {
	Info    AdapterInfo
	Adapter ProviderAdapter
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.Provider]Registration)
)

// Register is called by each adapter package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Provider] = reg
}

// Get returns the adapter for a provider, or nil if none is registered.
func Get(p models.Provider) ProviderAdapter {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[p]; ok {
		return reg.Adapter
	}
	return nil
}

// RegisteredAdapters returns info for all registered providers.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// IsRegistered checks whether a provider adapter is available.
func IsRegistered(p models.Provider) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[p]
	return ok
}
