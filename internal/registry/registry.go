// Package registry maps provider type names to adapter constructors.
// Adapters register themselves from init(), so importing an adapter
// package is enough to make its type available.
package registry

import (
	"fmt"
	"sync"

	"github.com/nulzo/concierge-bot/internal/core/ports"
)

// ProviderSettings is the unified configuration shape handed to an
// adapter constructor.
type ProviderSettings struct {
	Name         string // instance name, e.g. "openai" or "openai-fallback"
	APIKey       string
	BaseURL      string
	Timeout      float64 // seconds per HTTP attempt
	MaxRetries   int
	RetryBackoff float64 // seconds, base of the exponential delay
}

// Factory builds a ChatProvider instance from its settings.
type Factory func(cfg ProviderSettings) (ports.ChatProvider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a provider factory available under a type key.
func Register(providerType string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[providerType]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", providerType))
	}
	factories[providerType] = f
}

// Get retrieves the factory for a provider type.
func Get(providerType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for type: %s", providerType)
	}
	return f, nil
}
