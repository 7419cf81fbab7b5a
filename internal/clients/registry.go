package clients

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/config"
	"github.com/omriShneor/engage_ai/internal/llm"
)

// BackendFactory builds a backend from provider configuration
type BackendFactory func(cfg llm.ProviderConfig) (llm.Backend, error)

// Registry holds one lazily built gateway per tenant. Gateways live until Close.
type Registry struct {
	defaults  llm.ProviderConfig
	overrides map[string]config.TenantOverride
	keys      func(provider string) string
	timeout   time.Duration
	factory   BackendFactory
	logger    *logrus.Logger

	mu       sync.RWMutex
	gateways map[string]*llm.Gateway
}

// RegistryConfig configures a Registry
type RegistryConfig struct {
	Defaults  llm.ProviderConfig
	Overrides map[string]config.TenantOverride
	// KeyLookup resolves an API key for a provider a tenant switches to
	KeyLookup func(provider string) string
	Timeout   time.Duration
	Factory   BackendFactory
	Logger    *logrus.Logger
}

// NewRegistry creates a registry
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Factory == nil {
		cfg.Factory = llm.NewBackend
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Overrides == nil {
		cfg.Overrides = map[string]config.TenantOverride{}
	}
	if cfg.KeyLookup == nil {
		cfg.KeyLookup = func(string) string { return "" }
	}
	return &Registry{
		defaults:  cfg.Defaults,
		overrides: cfg.Overrides,
		keys:      cfg.KeyLookup,
		timeout:   cfg.Timeout,
		factory:   cfg.Factory,
		logger:    cfg.Logger,
		gateways:  make(map[string]*llm.Gateway),
	}
}

// NewRegistryFromConfig wires a registry from application configuration
func NewRegistryFromConfig(cfg *config.Config, overrides map[string]config.TenantOverride, logger *logrus.Logger) *Registry {
	return NewRegistry(RegistryConfig{
		Defaults: llm.ProviderConfig{
			Provider:    cfg.LLMProvider,
			APIKey:      cfg.APIKeyFor(cfg.LLMProvider),
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		},
		Overrides: overrides,
		KeyLookup: cfg.APIKeyFor,
		Timeout:   cfg.LLMTimeout,
		Logger:    logger,
	})
}

// Gateway returns the tenant's gateway, creating it on first use.
// A tenant whose backend cannot be built gets an unconfigured gateway.
func (r *Registry) Gateway(tenantID string) *llm.Gateway {
	r.mu.RLock()
	gw, exists := r.gateways[tenantID]
	r.mu.RUnlock()

	if exists {
		return gw
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again inside lock to prevent race condition
	if gw, exists := r.gateways[tenantID]; exists {
		return gw
	}

	providerCfg := r.providerConfigFor(tenantID)
	backend, err := r.factory(providerCfg)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"provider":  providerCfg.Provider,
		}).WithError(err).Error("Failed to build backend, tenant falls back to heuristics")
		backend = nil
	}

	gw = llm.NewGateway(backend, r.timeout, r.logger)
	r.gateways[tenantID] = gw

	r.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"provider":  gw.Provider(),
	}).Debug("Created tenant gateway")

	return gw
}

func (r *Registry) providerConfigFor(tenantID string) llm.ProviderConfig {
	cfg := r.defaults
	override, ok := r.overrides[tenantID]
	if !ok {
		return cfg
	}

	if override.Provider != "" && override.Provider != cfg.Provider {
		cfg.Provider = override.Provider
		cfg.APIKey = r.keys(override.Provider)
		cfg.Model = ""
	}
	if override.APIKey != "" {
		cfg.APIKey = override.APIKey
	}
	if override.Model != "" {
		cfg.Model = override.Model
	}
	if override.Temperature > 0 {
		cfg.Temperature = override.Temperature
	}
	return cfg
}

// Len returns the number of live gateways
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gateways)
}

// Close drops every gateway. Subsequent calls to Gateway rebuild lazily.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways = make(map[string]*llm.Gateway)
}
