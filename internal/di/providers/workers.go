package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/service"
	"github.com/cardid/cardid-server/internal/watcher"
)

// CatalogWatcherHandle wraps the catalog file watcher with shutdown
// capability. Watcher is nil when watching is disabled.
type CatalogWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideCatalogWatcher watches the catalog database and reloads derived
// state when another process rewrites it.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)

	if !cfg.Catalog.Watch {
		log.Info("Catalog watching disabled by configuration")
		return &CatalogWatcherHandle{}, nil
	}

	w, err := watcher.New(log.Component("watcher"), watcher.Options{})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Catalog.DatabasePath); err != nil {
		_ = w.Stop()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Catalog watcher error", "error", err)
		}
	}()

	go catalogService.Follow(ctx, w.Events())

	go func() {
		for {
			select {
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				log.Warn("catalog watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Catalog watcher started", "path", cfg.Catalog.DatabasePath)

	return &CatalogWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
