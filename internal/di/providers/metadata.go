package providers

import (
	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/metadata/pokemontcg"
)

// RemoteClientHandle wraps the remote catalog client with shutdown
// capability. Client is nil when the remote fallback is disabled.
type RemoteClientHandle struct {
	*pokemontcg.Client
}

// Shutdown implements do.Shutdownable.
func (h *RemoteClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideRemoteClient provides the remote catalog client.
func ProvideRemoteClient(i do.Injector) (*RemoteClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)

	if !cfg.Remote.Enabled {
		log.Info("Remote catalog disabled by configuration")
		return &RemoteClientHandle{}, nil
	}

	client := pokemontcg.New(pokemontcg.Options{
		BaseURL:           cfg.Remote.BaseURL,
		APIKey:            cfg.Remote.APIKey,
		Timeout:           cfg.Remote.Timeout,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Burst:             cfg.Remote.Burst,
		Cache:             cacheHandle.LookupCache,
		Logger:            log.Component("pokemontcg"),
	})

	log.Info("Remote catalog client initialized",
		"base_url", cfg.Remote.BaseURL,
		"timeout", cfg.Remote.Timeout,
		"rps", cfg.Remote.RequestsPerSecond,
		"api_key", cfg.Remote.APIKey != "",
	)

	return &RemoteClientHandle{Client: client}, nil
}
