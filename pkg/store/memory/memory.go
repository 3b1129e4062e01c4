// Package memory implements the overflow store in process memory. Data is
// lost on restart. Useful for testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/store"
)

// Store buffers records in a slice, bounded by capacity.
type Store struct {
	capacity int

	mu      sync.Mutex
	records []record.Record
}

// New creates an in-memory overflow store holding at most capacity
// records.
func New(capacity int) *Store {
	return &Store{
		capacity: capacity,
		records:  make([]record.Record, 0, capacity),
	}
}

// Append adds records in order, rejecting any that exceed capacity.
func (s *Store) Append(ctx context.Context, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if len(s.records) >= s.capacity {
			return store.ErrStoreFull
		}
		s.records = append(s.records, r)
	}
	return nil
}

// Drain returns everything in insertion order and clears the store.
func (s *Store) Drain(ctx context.Context) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.records
	s.records = make([]record.Record, 0, s.capacity)
	return out, nil
}

// Len reports the number of buffered records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close is a no-op for memory storage.
func (s *Store) Close() error {
	return nil
}
