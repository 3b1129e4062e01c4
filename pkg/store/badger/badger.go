// Package badger implements the overflow store on BadgerDB so queued
// records can survive restarts when given a disk path.
package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/store"
)

// Config holds BadgerDB configuration.
type Config struct {
	// Path to store database files.
	Path string

	// InMemory mode (for testing).
	InMemory bool

	// Capacity is the maximum number of stored records.
	Capacity int

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = conservative
	// defaults suitable for an SDK embedded in someone else's process).
	MaxMemoryMB int64
}

// Store implements store.Store using BadgerDB (LSM tree).
type Store struct {
	db       *badger.DB
	capacity int

	mu    sync.Mutex
	seq   uint64
	count int
}

// New opens a BadgerDB overflow store.
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// The SDK runs inside the host application's process, so Badger's
	// defaults (hundreds of MB) are far too hungry. 16 MB memtable is
	// the floor for decent performance.
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(2).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumCompactors(1).
		WithValueThreshold(1024).
		WithValueLogFileSize(64 << 20).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s := &Store{db: db, capacity: cfg.Capacity}
	if err := s.restore(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// restore recovers the sequence counter and record count from an existing
// database after a restart.
func (s *Store) restore() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != 16 {
				continue
			}
			seq := binary.BigEndian.Uint64(key[:8])
			if seq >= s.seq {
				s.seq = seq + 1
			}
			s.count++
		}
		return nil
	})
}

// Append stores records in order, rejecting any that exceed capacity.
func (s *Store) Append(ctx context.Context, records []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count+len(records) > s.capacity {
		return store.ErrStoreFull
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i, r := range records {
			value, err := record.Marshal(r)
			if err != nil {
				return err
			}
			if err := txn.Set(makeKey(s.seq+uint64(i), r.Subject()), value); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.seq += uint64(len(records))
	s.count += len(records)
	return nil
}

// Drain returns every stored record in insertion order, then clears the
// store.
func (s *Store) Drain(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var records []record.Record
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			// Check context periodically on large drains.
			if len(keys)%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := item.Value(func(val []byte) error {
				r, err := record.Unmarshal(val)
				if err != nil {
					return err
				}
				records = append(records, r)
				return nil
			}); err != nil {
				return err
			}
			keys = append(keys, item.KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear store: %w", err)
	}

	s.count = 0
	return records, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close shuts the database down.
func (s *Store) Close() error {
	return s.db.Close()
}

// makeKey creates a sortable key: sequence number first so iteration
// preserves insertion order, subject hash second for debugging.
// Format: [seq (8 bytes)][subject_hash (8 bytes)]
func makeKey(seq uint64, subject string) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], seq)
	binary.BigEndian.PutUint64(key[8:16], xxhash.Sum64String(subject))
	return key
}
