package providers

import (
	"github.com/samber/do/v2"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/config"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/imputation"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/inference"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/persist"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/service"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
)

// ProvideCorrector provides the ratio-based corrector.
func ProvideCorrector(i do.Injector) (*imputation.Corrector, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return imputation.NewCorrector(log.Logger), nil
}

// ProvideCoordinator provides the global/genre imputation coordinator.
func ProvideCoordinator(i do.Injector) (*imputation.Coordinator, error) {
	log := do.MustInvoke[*logger.Logger](i)
	inferrer := do.MustInvoke[*inference.Service](i)
	corrector := do.MustInvoke[*imputation.Corrector](i)

	return imputation.NewCoordinator(inferrer, corrector, log.Logger), nil
}

// ProvideExecutor provides the concurrent batch executor.
func ProvideExecutor(i do.Injector) (*persist.Executor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	table := do.MustInvoke[*store.Table](i)

	return persist.NewExecutor(table, cfg.Store.BatchConcurrency, log.Logger), nil
}

// ProvideReconciler provides the impute-then-persist pipeline.
func ProvideReconciler(i do.Injector) (*service.Reconciler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	coordinator := do.MustInvoke[*imputation.Coordinator](i)
	executor := do.MustInvoke[*persist.Executor](i)

	return service.NewReconciler(coordinator, executor, persist.RecordOperations, cfg.Store.BatchCapacity, log.Logger), nil
}
