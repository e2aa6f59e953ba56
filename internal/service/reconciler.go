// Package service runs one reconciliation: impute the catalog, then commit it
// to the partitioned store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/persist"
)

// Imputer fills missing TTB fields in place.
type Imputer interface {
	ImputeCatalog(ctx context.Context, titles []*domain.Title) error
}

// BatchExecutor commits batches to the store.
type BatchExecutor interface {
	Execute(ctx context.Context, batches []persist.Batch) error
}

// Reconciler is the two-stage pipeline.
type Reconciler struct {
	imputer  Imputer
	executor BatchExecutor
	factory  persist.OperationFactory
	capacity int
	logger   *slog.Logger
}

// NewReconciler creates a pipeline. A nil factory means persist.RecordOperations.
func NewReconciler(imputer Imputer, executor BatchExecutor, factory persist.OperationFactory, capacity int, log *slog.Logger) *Reconciler {
	if factory == nil {
		factory = persist.RecordOperations
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Reconciler{
		imputer:  imputer,
		executor: executor,
		factory:  factory,
		capacity: capacity,
		logger:   log,
	}
}

// Run imputes titles in place and commits them. The returned error names the
// stage that failed. Observed fields are never altered, so a failed run
// leaves no corrupted ground truth behind.
func (r *Reconciler) Run(ctx context.Context, titles []*domain.Title) error {
	start := time.Now()
	r.logger.Info("reconciliation started", slog.Int("titles", len(titles)))

	if err := r.imputer.ImputeCatalog(ctx, titles); err != nil {
		return fmt.Errorf("impute: %w", err)
	}

	batches, err := persist.Partition(titles, r.factory, r.capacity)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	r.logger.Info("catalog partitioned", slog.Int("batches", len(batches)))

	if err := r.executor.Execute(ctx, batches); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	r.logger.Info("reconciliation finished",
		slog.Int("titles", len(titles)),
		slog.Int("batches", len(batches)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
