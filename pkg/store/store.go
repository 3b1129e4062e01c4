// Package store defines the overflow persistence contract: a bounded side
// buffer that absorbs records when the live queues are full and hands
// them back on the next flush cycle.
package store

import (
	"context"
	"errors"

	"github.com/pulsekit/pulsekit/pkg/sdk/record"
)

// ErrStoreFull is returned by Append once the configured capacity is
// reached. The record is dropped; only statistics observe it.
var ErrStoreFull = errors.New("store: capacity reached")

// Store is the overflow buffer behind the batch manager.
// Implementations: memory (testing/dev), badger (disk-backed).
//
// This is not a durable transactional log: entries survive process
// termination only when the backend writes to disk.
type Store interface {
	// Append adds records in order, up to capacity.
	Append(ctx context.Context, records []record.Record) error

	// Drain returns every stored record in insertion order and clears
	// the store.
	Drain(ctx context.Context) ([]record.Record, error)

	// Len reports the number of stored records.
	Len() int

	// Close cleanly shuts down the backend.
	Close() error
}
