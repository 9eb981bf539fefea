package provider

import (
	"fmt"

	"fieldreport/config"
	"fieldreport/model"
)

// FromConfig creates the configured provider, reading its API key from the
// environment or the credential store.
func FromConfig(cfg *config.Config) (model.Provider, error) {
	providerType := MapProviderIDToType(cfg.Provider.Type)

	p, err := NewProvider(Config{
		Type:    providerType,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		APIKey:  cfg.APIKey(cfg.Provider.Type),
	})
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Provider] Failed to initialize %s: %v", providerType, err)
		}
		return nil, fmt.Errorf("failed to initialize provider %s: %w", cfg.Provider.Type, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Initialized %s", p.Name())
	}
	return p, nil
}
