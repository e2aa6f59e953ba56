// Package providers contains dependency injection providers for the reconciliation run.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/config"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/id"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
)

// ProvideConfig provides the run configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger, tagged with a fresh run id.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	runID, err := id.Generate("run")
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	}).WithRun(runID)

	log.Info("Starting TTB reconciliation",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"catalog", cfg.Catalog.Path,
		"store_path", cfg.Store.Path,
		"inference_url", cfg.Inference.URL,
	)

	return log, nil
}
