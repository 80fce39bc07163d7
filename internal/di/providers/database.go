package providers

import (
	"github.com/samber/do/v2"

	"github.com/cardid/cardid-server/internal/config"
	"github.com/cardid/cardid-server/internal/logger"
	"github.com/cardid/cardid-server/internal/store/sqlite"
)

// StoreHandle wraps the catalog store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the local catalog store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Catalog.DatabasePath, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Catalog opened", "path", cfg.Catalog.DatabasePath)

	return &StoreHandle{Store: db}, nil
}
