// Package di provides dependency injection configuration for the card
// identity server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/di/providers"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/resolver"
	"github.com/cardid/cardid-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command line arguments the configuration is loaded from.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, providers.Args(args))
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Catalog layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideNameIndex)
	do.Provide(injector, providers.ProvideRemoteClient)

	// Business services
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideIdentifyService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.NameIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.CacheHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.RemoteClientHandle](injector)

	// Business services
	_ = do.MustInvoke[*resolver.Resolver](injector)
	_ = do.MustInvoke[*service.IdentifyService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)

	// Workers
	if _, err := do.Invoke[*providers.CatalogWatcherHandle](injector); err != nil {
		return err
	}

	// Fill the name index before serving
	providers.RebuildIndexIfNeeded(injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
