package llm

import (
	"context"
	"log/slog"
	"sync"
)

// ModelCache holds the available model IDs per provider. It is owned
// and injected explicitly; the scheduled refresh caller lives with the
// serve command, not here. A failed fetch leaves the provider's list
// empty rather than stale.
type ModelCache struct {
	factory Factory

	mu     sync.RWMutex
	models map[string][]string
}

// NewModelCache creates an empty cache refreshing through factory.
func NewModelCache(factory Factory) *ModelCache {
	return &ModelCache{
		factory: factory,
		models:  make(map[string][]string),
	}
}

// Get returns the cached model IDs for provider, or nil if the last
// refresh failed or has not happened yet.
func (c *ModelCache) Get(provider string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models[provider]
}

// Refresh fetches and stores the model list for one provider.
func (c *ModelCache) Refresh(ctx context.Context, provider string) {
	client, err := c.factory.ClientFor(provider)
	if err != nil {
		c.set(provider, nil)
		return
	}
	ids, err := client.ListModels(ctx)
	if err != nil {
		slog.Warn("model list refresh failed", "provider", provider, "error", err)
		c.set(provider, nil)
		return
	}
	c.set(provider, ids)
}

// RefreshAll refreshes every known provider.
func (c *ModelCache) RefreshAll(ctx context.Context) {
	for _, provider := range Providers() {
		c.Refresh(ctx, provider)
	}
}

func (c *ModelCache) set(provider string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[provider] = ids
}
