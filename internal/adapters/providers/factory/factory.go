package factory

import (
	"fmt"

	"github.com/nulzo/concierge-bot/internal/core/ports"
	"github.com/nulzo/concierge-bot/internal/registry"
)

type ProviderFactory struct{}

func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// CreateProvider looks up providerType in the registry and invokes its
// constructor with cfg.
func (f *ProviderFactory) CreateProvider(providerType string, cfg registry.ProviderSettings) (ports.ChatProvider, error) {
	factoryFunc, err := registry.Get(providerType)
	if err != nil {
		return nil, fmt.Errorf("factory lookup failed for type %s: %w", providerType, err)
	}
	return factoryFunc(cfg)
}
