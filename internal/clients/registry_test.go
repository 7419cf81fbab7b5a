package clients

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/engage_ai/internal/config"
	"github.com/omriShneor/engage_ai/internal/llm"
)

type recordingFactory struct {
	mu    sync.Mutex
	calls []llm.ProviderConfig
	err   error
}

func (f *recordingFactory) build(cfg llm.ProviderConfig) (llm.Backend, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cfg)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewBackend(cfg)
}

func TestRegistryGateway(t *testing.T) {
	t.Run("same gateway per tenant", func(t *testing.T) {
		factory := &recordingFactory{}
		reg := NewRegistry(RegistryConfig{
			Defaults: llm.ProviderConfig{Provider: llm.ProviderOpenAI, APIKey: "k"},
			Factory:  factory.build,
		})

		first := reg.Gateway("acme")
		second := reg.Gateway("acme")
		assert.Same(t, first, second)
		assert.Len(t, factory.calls, 1)
		assert.Equal(t, "openai", first.Provider())

		reg.Gateway("globex")
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("concurrent first use builds once", func(t *testing.T) {
		factory := &recordingFactory{}
		reg := NewRegistry(RegistryConfig{
			Defaults: llm.ProviderConfig{Provider: llm.ProviderAnthropic},
			Factory:  factory.build,
		})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reg.Gateway("acme")
			}()
		}
		wg.Wait()

		assert.Len(t, factory.calls, 1)
	})

	t.Run("tenant overrides", func(t *testing.T) {
		factory := &recordingFactory{}
		reg := NewRegistry(RegistryConfig{
			Defaults: llm.ProviderConfig{Provider: llm.ProviderOpenAI, APIKey: "default-key", Model: "gpt-default"},
			Overrides: map[string]config.TenantOverride{
				"acme":   {Provider: "gemini"},
				"globex": {Model: "gpt-special", APIKey: "globex-key"},
			},
			KeyLookup: func(provider string) string { return provider + "-env-key" },
			Factory:   factory.build,
		})

		assert.Equal(t, "gemini", reg.Gateway("acme").Provider())
		reg.Gateway("globex")

		require.Len(t, factory.calls, 2)
		assert.Equal(t, llm.ProviderConfig{Provider: "gemini", APIKey: "gemini-env-key"}, factory.calls[0])
		assert.Equal(t, "gpt-special", factory.calls[1].Model)
		assert.Equal(t, "globex-key", factory.calls[1].APIKey)
	})

	t.Run("build failure yields unconfigured gateway", func(t *testing.T) {
		factory := &recordingFactory{err: errors.New("bad config")}
		reg := NewRegistry(RegistryConfig{
			Defaults: llm.ProviderConfig{Provider: llm.ProviderOpenAI},
			Factory:  factory.build,
		})

		gw := reg.Gateway("acme")
		require.NotNil(t, gw)
		assert.False(t, gw.IsConfigured())
	})

	t.Run("no provider", func(t *testing.T) {
		reg := NewRegistry(RegistryConfig{})
		assert.False(t, reg.Gateway("acme").IsConfigured())
	})

	t.Run("close drops gateways", func(t *testing.T) {
		reg := NewRegistry(RegistryConfig{Defaults: llm.ProviderConfig{Provider: llm.ProviderOpenAI}})
		first := reg.Gateway("acme")
		reg.Close()
		assert.Equal(t, 0, reg.Len())
		assert.NotSame(t, first, reg.Gateway("acme"))
	})
}
