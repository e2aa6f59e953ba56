// Package store is the partitioned key-value store the reconciled catalog is
// committed to. Rows live in named tables and are grouped by partition key;
// all operations of one batch commit in a single badger transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/backoff"
)

// Options configures a Store.
type Options struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in memory; used by tests.
	InMemory bool
	// Retry is applied to every write. Zero value means no retries.
	Retry  backoff.Policy
	Logger *slog.Logger
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	retry  backoff.Policy

	mu     sync.Mutex
	tables map[string]*Table
}

// Open opens (or creates) the store described by opts.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // A committed batch must survive a crash
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: opts.Logger,
		retry:  opts.Retry,
		tables: make(map[string]*Table),
	}

	if s.logger != nil {
		s.logger.Info("Badger database opened successfully",
			slog.String("path", opts.Path),
			slog.Bool("in_memory", opts.InMemory),
		)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// EnsureTable creates the table if it does not exist yet and returns a
// handle to it. Calling it again for the same name is cheap.
func (s *Store) EnsureTable(ctx context.Context, name string) (*Table, error) {
	if !validKey(name) {
		return nil, ErrInvalidInput.WithMessage(fmt.Sprintf("invalid table name %q", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[name]; ok {
		return t, nil
	}

	created := false
	err := s.retry.Do(ctx, s.logger, "ensure_table", IsRetryable, func() error {
		return classify(s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(tableKey(name))
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			created = true
			return txn.Set(tableKey(name), []byte{1})
		}))
	})
	if err != nil {
		return nil, fmt.Errorf("ensure table %s: %w", name, err)
	}

	if created && s.logger != nil {
		s.logger.Info("table created", slog.String("table", name))
	}

	t := &Table{store: s, name: name}
	s.tables[name] = t
	return t, nil
}
