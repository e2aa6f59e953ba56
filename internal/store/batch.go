package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// MaxBatchOperations is the hard cap on operations in one atomic submission.
const MaxBatchOperations = 100

// OpKind is the kind of a single write operation.
type OpKind string

const (
	OpInsertOrReplace OpKind = "insert_or_replace"
	OpDelete          OpKind = "delete"
)

// Operation is a single row write inside a partition.
type Operation struct {
	Kind   OpKind `json:"kind"`
	RowKey string `json:"row_key"`
	Value  []byte `json:"value,omitempty"`
}

// InsertOrReplace builds an upsert of value under rowKey.
func InsertOrReplace(rowKey string, value []byte) Operation {
	return Operation{Kind: OpInsertOrReplace, RowKey: rowKey, Value: value}
}

// Delete builds a removal of rowKey. Deleting a missing row is not an error.
func Delete(rowKey string) Operation {
	return Operation{Kind: OpDelete, RowKey: rowKey}
}

// Row is a stored value with its row key.
type Row struct {
	RowKey string
	Value  []byte
}

// Table is a handle to one table of the store.
type Table struct {
	store *Store
	name  string
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// SubmitBatch commits ops under partitionKey as one atomic unit. Batches over
// MaxBatchOperations, with invalid keys, or with a repeated row key are
// rejected before anything is written. Transient failures are retried
// according to the store's policy.
func (t *Table) SubmitBatch(ctx context.Context, partitionKey string, ops []Operation) error {
	if err := validateBatch(partitionKey, ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	// Keys are allocated up front so each retry reuses them.
	keys := make([][]byte, len(ops))
	for i, op := range ops {
		keys[i] = rowKey(t.name, partitionKey, op.RowKey)
	}

	err := t.store.retry.Do(ctx, t.store.logger, "submit_batch", IsRetryable, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return classify(t.store.db.Update(func(txn *badger.Txn) error {
			for i, op := range ops {
				var err error
				switch op.Kind {
				case OpInsertOrReplace:
					err = txn.Set(keys[i], op.Value)
				case OpDelete:
					err = txn.Delete(keys[i])
				}
				if err != nil {
					return fmt.Errorf("operation %d (%s %s): %w", i, op.Kind, op.RowKey, err)
				}
			}
			return nil
		}))
	})
	if err != nil {
		return err
	}

	if t.store.logger != nil {
		t.store.logger.LogAttrs(ctx, slog.LevelDebug, "batch committed",
			slog.String("table", t.name),
			slog.String("partition", partitionKey),
			slog.Int("count", len(ops)),
		)
	}
	return nil
}

func validateBatch(partitionKey string, ops []Operation) error {
	if len(ops) > MaxBatchOperations {
		return ErrBatchTooLarge.WithMessage(
			fmt.Sprintf("batch has %d operations, limit is %d", len(ops), MaxBatchOperations))
	}
	if !validKey(partitionKey) {
		return ErrInvalidInput.WithMessage(fmt.Sprintf("invalid partition key %q", partitionKey))
	}
	seen := make(map[string]struct{}, len(ops))
	for i, op := range ops {
		if !validKey(op.RowKey) {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("operation %d: invalid row key %q", i, op.RowKey))
		}
		if op.Kind != OpInsertOrReplace && op.Kind != OpDelete {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("operation %d: unknown kind %q", i, op.Kind))
		}
		if _, dup := seen[op.RowKey]; dup {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("operation %d: row key %q repeated in batch", i, op.RowKey))
		}
		seen[op.RowKey] = struct{}{}
	}
	return nil
}

// Get returns the value stored under (partitionKey, rowKey).
func (t *Table) Get(ctx context.Context, partitionKey, rowKey string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildRowKey(t.name, partitionKey, rowKey)
	defer releaseKey(key)

	var out []byte
	err := t.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Scan returns every row of a partition in row key order.
func (t *Table) Scan(ctx context.Context, partitionKey string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := partitionPrefix(t.name, partitionKey)
	var rows []Row

	err := t.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rows = append(rows, Row{
				RowKey: string(item.Key()[len(prefix):]),
				Value:  val,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}
