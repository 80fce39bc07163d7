package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/search"
	"github.com/cardid/cardid-server/internal/service"
)

// NameIndexHandle wraps the name index with shutdown capability.
type NameIndexHandle struct {
	*search.NameIndex
}

// Shutdown implements do.Shutdownable.
func (h *NameIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideNameIndex provides the Bleve name recovery index.
func ProvideNameIndex(i do.Injector) (*NameIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewNameIndex(search.Options{
		DataPath: cfg.Catalog.IndexPath,
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Name index initialized", "path", cfg.Catalog.IndexPath, "names", docCount)

	return &NameIndexHandle{NameIndex: index}, nil
}

// RebuildIndexIfNeeded fills an empty name index from the catalog.
// Should be called after all services are wired.
func RebuildIndexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*NameIndexHandle](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	cards, err := catalogService.CountCards(ctx)
	if err != nil || cards == 0 {
		return
	}

	log.Info("Name index empty, rebuilding from catalog", "cards", cards)
	go func() {
		if _, err := catalogService.Reload(ctx); err != nil {
			log.Error("Failed to rebuild name index", "error", err)
		}
	}()
}
