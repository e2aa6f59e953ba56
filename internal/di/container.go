// Package di provides dependency injection configuration for the reconciliation run.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/config"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/di/providers"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/service"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideTable)

	// Inference layer
	do.Provide(injector, providers.ProvideInferenceClient)
	do.Provide(injector, providers.ProvideInferenceService)

	// Pipeline
	do.Provide(injector, providers.ProvideCorrector)
	do.Provide(injector, providers.ProvideCoordinator)
	do.Provide(injector, providers.ProvideExecutor)
	do.Provide(injector, providers.ProvideReconciler)

	return injector
}

// Bootstrap initializes every service so configuration and open errors
// surface before the run starts.
func Bootstrap(injector *do.RootScope) (err error) {
	// MustInvoke panics on provider errors.
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.CatalogHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*store.Table](injector)
	_ = do.MustInvoke[*service.Reconciler](injector)

	return nil
}
