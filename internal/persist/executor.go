package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/logger"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
)

// DefaultConcurrency is the number of batches in flight when none is configured.
const DefaultConcurrency = 8

// BatchSubmitter commits one batch atomically. *store.Table implements it.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, partitionKey string, ops []store.Operation) error
}

// Executor submits batches to the store with bounded concurrency.
type Executor struct {
	target      BatchSubmitter
	concurrency int
	logger      *slog.Logger
}

// NewExecutor creates an executor. A concurrency below 1 means DefaultConcurrency.
func NewExecutor(target BatchSubmitter, concurrency int, log *slog.Logger) *Executor {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Executor{target: target, concurrency: concurrency, logger: log}
}

// BatchError describes a batch the store refused.
type BatchError struct {
	PartitionKey string
	Sequence     int
	Final        bool
	Operations   int
	Err          error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s#%d (%d operations): %v", e.PartitionKey, e.Sequence, e.Operations, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Execute submits batches in order with up to the configured number in
// flight. Retryable store failures are handled by the store itself; the
// first failure that reaches the executor stops new batches from starting.
// Batches already submitted run to completion and are not cancelled.
func (e *Executor) Execute(ctx context.Context, batches []Batch) error {
	var (
		g         errgroup.Group
		failed    atomic.Bool
		committed atomic.Int64
	)
	g.SetLimit(e.concurrency)

	var ctxErr error
	for _, b := range batches {
		if failed.Load() {
			break
		}
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}

		// Go blocks while the pool is full, so the failure flag is re-read
		// right before the batch is sent.
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			if err := e.target.SubmitBatch(ctx, b.PartitionKey, b.Operations); err != nil {
				failed.Store(true)
				return e.fail(ctx, b, err, &committed)
			}
			committed.Add(1)
			e.logger.Debug("batch submitted",
				logger.Partition(b.PartitionKey),
				slog.Int(logger.KeySequence, b.Sequence),
				slog.Bool("final", b.Final),
				slog.Int("operations", len(b.Operations)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if ctxErr != nil {
		return ctxErr
	}

	e.logger.Info("batches committed", slog.Int64("count", committed.Load()))
	return nil
}

// fail reports a rejected batch. committed is read when the failure is
// logged, so batches still in flight may raise the final count.
func (e *Executor) fail(ctx context.Context, b Batch, err error, committed *atomic.Int64) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	batchErr := &BatchError{
		PartitionKey: b.PartitionKey,
		Sequence:     b.Sequence,
		Final:        b.Final,
		Operations:   len(b.Operations),
		Err:          err,
	}

	attrs := []slog.Attr{
		logger.Partition(b.PartitionKey),
		slog.Int(logger.KeySequence, b.Sequence),
		slog.Int64("committed", committed.Load()),
		logger.Err(err),
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		attrs = append(attrs,
			slog.Int("status_code", storeErr.Code),
			slog.String("error_code", storeErr.ErrorCode),
			slog.String("message", storeErr.Message),
		)
	}

	if payload, mErr := json.Marshal(b); mErr == nil {
		attrs = append(attrs, slog.String("batch", string(payload)))
	}

	e.logger.LogAttrs(ctx, slog.LevelError, "batch submission failed", attrs...)

	return errors.ErrStoreWrite.WithCause(batchErr).WithDetails(map[string]any{
		"partition_key": b.PartitionKey,
		"sequence":      b.Sequence,
		"final":         b.Final,
		"operations":    len(b.Operations),
	})
}
