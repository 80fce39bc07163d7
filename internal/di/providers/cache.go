package providers

import (
	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/cache"
	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
)

// CacheHandle wraps the lookup cache with shutdown capability.
type CacheHandle struct {
	*cache.LookupCache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the in-memory lookup cache.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c, err := cache.New(cache.Options{
		FailureTTL: cfg.Cache.FailureTTL,
		SearchTTL:  cfg.Cache.SearchTTL,
		Logger:     log.Component("cache"),
	})
	if err != nil {
		return nil, err
	}

	log.Info("Lookup cache initialized",
		"failure_ttl", cfg.Cache.FailureTTL,
		"search_ttl", cfg.Cache.SearchTTL,
	)

	return &CacheHandle{LookupCache: c}, nil
}
