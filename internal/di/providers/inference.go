package providers

import (
	"github.com/samber/do/v2"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/config"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/inference"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
)

// ProvideInferenceClient provides the HTTP client for the inference service.
func ProvideInferenceClient(i do.Injector) (*inference.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return inference.NewClient(inference.ClientOptions{
		BaseURL:     cfg.Inference.URL,
		HTTPTimeout: cfg.Inference.HTTPTimeout,
		RPS:         cfg.Inference.RPS,
		Retry:       cfg.Retry.Policy(),
		Logger:      log.Logger,
	})
}

// ProvideInferenceService provides the blob-upload/job-poll inference flow.
func ProvideInferenceService(i do.Injector) (*inference.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*inference.Client](i)

	return inference.NewService(client, cfg.Inference.PollInterval, cfg.Inference.Timeout, log.Logger), nil
}
