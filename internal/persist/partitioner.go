// Package persist turns the reconciled catalog into bounded store batches and
// commits them with limited concurrency.
package persist

import (
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
)

// Batch is a group of operations committed atomically under one partition.
type Batch struct {
	PartitionKey string            `json:"partition_key"`
	Sequence     int               `json:"sequence"` // 1-based within the partition
	Final        bool              `json:"final"`
	Operations   []store.Operation `json:"operations"`
}

// OperationFactory produces the writes for one title. Every operation it
// returns is committed in the same batch.
type OperationFactory func(*domain.Title) ([]store.Operation, error)

// Partition groups the operations of titles by partition key and splits each
// partition into batches of at most capacity operations. A title's operations
// never straddle two batches. The result interleaves partitions round-robin:
// every partition's first batch, then every partition's second batch, and so
// on. Partitions keep the order of their first appearance in titles.
func Partition(titles []*domain.Title, factory OperationFactory, capacity int) ([]Batch, error) {
	if capacity <= 0 {
		return nil, errors.Validationf("batch capacity must be positive, got %d", capacity)
	}
	if factory == nil {
		return nil, errors.Validation("operation factory is required")
	}

	// arena[i] holds the batches of the i-th partition seen.
	var arena [][]Batch
	index := make(map[string]int)
	total := 0

	for _, t := range titles {
		ops, err := factory(t)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "build operations for title %d", t.ID)
		}
		if len(ops) == 0 {
			continue
		}
		if len(ops) > capacity {
			return nil, errors.BatchCapacityExceededf(
				"title %d produces %d operations, batch capacity is %d", t.ID, len(ops), capacity)
		}

		i, ok := index[t.PartitionKey]
		if !ok {
			i = len(arena)
			index[t.PartitionKey] = i
			arena = append(arena, []Batch{{PartitionKey: t.PartitionKey, Sequence: 1}})
			total++
		}

		batches := arena[i]
		cur := &batches[len(batches)-1]
		if len(cur.Operations)+len(ops) > capacity {
			batches = append(batches, Batch{PartitionKey: t.PartitionKey, Sequence: cur.Sequence + 1})
			cur = &batches[len(batches)-1]
			total++
		}
		cur.Operations = append(cur.Operations, ops...)
		arena[i] = batches
	}

	for i := range arena {
		arena[i][len(arena[i])-1].Final = true
	}

	return interleave(arena, total), nil
}

// interleave drains the partition lists round-robin, one batch per
// partition per round. Exhausted partitions are skipped.
func interleave(arena [][]Batch, total int) []Batch {
	out := make([]Batch, 0, total)
	cursors := make([]int, len(arena))

	for len(out) < total {
		for i, batches := range arena {
			if cursors[i] < len(batches) {
				out = append(out, batches[cursors[i]])
				cursors[i]++
			}
		}
	}
	return out
}
