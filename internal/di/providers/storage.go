package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/catalog"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/config"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the partitioned store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	s, err := store.Open(store.Options{
		Path:   cfg.Store.Path,
		Retry:  cfg.Retry.Policy(),
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Store opened", "path", cfg.Store.Path)

	return &StoreHandle{Store: s}, nil
}

// ProvideTable provides the table the catalog is committed to.
func ProvideTable(i do.Injector) (*store.Table, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return storeHandle.EnsureTable(context.Background(), cfg.Store.Table)
}

// CatalogHandle wraps the catalog with shutdown capability.
type CatalogHandle struct {
	*catalog.Catalog
}

// Shutdown implements do.Shutdownable.
func (h *CatalogHandle) Shutdown() error {
	return h.Close()
}

// ProvideCatalog opens the scraped catalog.
func ProvideCatalog(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c, err := catalog.Open(cfg.Catalog.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog opened", "path", cfg.Catalog.Path)

	return &CatalogHandle{Catalog: c}, nil
}
