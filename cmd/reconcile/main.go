// Package main provides the entry point for a TTB reconciliation run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/di"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/di/providers"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap reconciliation: %v\n", err)
		return 1
	}

	log := do.MustInvoke[*logger.Logger](injector)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			log.Error("Shutdown error", "error", err)
		}
	}()

	// A signal cancels in-flight inference polls and batch submissions.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat := do.MustInvoke[*providers.CatalogHandle](injector)
	titles, err := cat.Load(ctx)
	if err != nil {
		log.Error("Failed to load catalog", logger.Err(err))
		return 1
	}

	reconciler := do.MustInvoke[*service.Reconciler](injector)
	if err := reconciler.Run(ctx, titles); err != nil {
		log.Error("Reconciliation failed", logger.Err(err))
		return 1
	}

	log.Info("Reconciliation complete", "titles", len(titles))
	return 0
}
