package providers

import (
	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/resolver"
	"github.com/cardid/cardid-server/internal/service"
)

// ProvideResolver provides the resolution cascade.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	indexHandle := do.MustInvoke[*NameIndexHandle](i)
	remoteHandle := do.MustInvoke[*RemoteClientHandle](i)

	opts := []resolver.Option{
		resolver.WithSettings(cfg.Matching.Settings),
		resolver.WithCache(cacheHandle.LookupCache),
		resolver.WithNameSuggester(indexHandle.NameIndex),
		resolver.WithLogger(log.Component("resolver")),
	}
	if remoteHandle.Client != nil {
		opts = append(opts, resolver.WithRemote(remoteHandle.Client))
	}

	return resolver.New(storeHandle.Store, opts...), nil
}

// ProvideIdentifyService provides the identify service.
func ProvideIdentifyService(i do.Injector) (*service.IdentifyService, error) {
	res := do.MustInvoke[*resolver.Resolver](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIdentifyService(res, log.Component("identify")), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	indexHandle := do.MustInvoke[*NameIndexHandle](i)
	remoteHandle := do.MustInvoke[*RemoteClientHandle](i)

	opts := service.CatalogOptions{
		Index:       indexHandle.NameIndex,
		Cache:       cacheHandle.LookupCache,
		FuzzyRadius: cfg.Matching.Settings.Thresholds.FuzzyRadius,
		Logger:      log.Component("catalog"),
	}
	// A nil *Client in the interface would read as configured.
	if remoteHandle.Client != nil {
		opts.Remote = remoteHandle.Client
	}

	return service.NewCatalogService(storeHandle.Store, opts), nil
}
