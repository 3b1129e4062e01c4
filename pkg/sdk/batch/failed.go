package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pulsekit/pulsekit/pkg/wire"
)

// failedBatch is an encoded batch whose send failed, retained for bounded
// retry. It is owned exclusively by the manager.
type failedBatch struct {
	body     []byte
	schema   wire.SchemaType
	records  int
	failedAt time.Time
	retries  int
	lastErr  error
}

// addFailedLocked appends to the retry list, dropping the oldest pending
// batch when the list is at its bound. Caller holds m.mu.
func (m *Manager) addFailedLocked(fb *failedBatch) {
	if len(m.failed) >= maxFailedBatches {
		dropped := m.failed[0]
		m.failed = m.failed[1:]
		m.stats.RecordsDropped += uint64(dropped.records)
		m.cfg.OnError(fmt.Errorf(
			"retry list full, dropped batch of %d records (last error: %v)",
			dropped.records, dropped.lastErr))
	}
	m.failed = append(m.failed, fb)
}

// retryFailed re-attempts every pending failed batch whose backoff delay
// has elapsed. Each batch is removed from the list before the attempt and
// re-added only on another failure, so no batch is ever sent twice per
// attempt. Batches past the retry ceiling are dropped and reported.
func (m *Manager) retryFailed(ctx context.Context) error {
	m.mu.Lock()
	pending := m.failed
	m.failed = nil
	m.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	var firstErr error
	var keep []*failedBatch
	now := time.Now()

	for _, fb := range pending {
		if now.Sub(fb.failedAt) < m.backoff(fb.retries+1) {
			keep = append(keep, fb)
			continue
		}

		m.mu.Lock()
		m.stats.Retries++
		m.mu.Unlock()

		if err := m.transport.SendFrame(ctx, fb.body); err != nil {
			fb.retries++
			fb.failedAt = time.Now()
			fb.lastErr = err
			if fb.retries >= m.cfg.MaxRetries {
				m.mu.Lock()
				m.stats.RecordsDropped += uint64(fb.records)
				m.stats.LastError = err.Error()
				m.mu.Unlock()
				m.cfg.OnError(fmt.Errorf(
					"batch of %d records dropped after %d retries: %w",
					fb.records, fb.retries, err))
			} else {
				keep = append(keep, fb)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		m.mu.Lock()
		m.stats.BatchesSent++
		m.stats.RecordsSent += uint64(fb.records)
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.failed = append(keep, m.failed...)
	m.mu.Unlock()
	return firstErr
}

// backoff computes the delay before retry attempt n (1-based):
// min(RetryMaxDelay, RetryBaseDelay * RetryMultiplier^(n-1)).
func (m *Manager) backoff(attempt int) time.Duration {
	d := time.Duration(float64(m.cfg.RetryBaseDelay) * math.Pow(m.cfg.RetryMultiplier, float64(attempt-1)))
	if d > m.cfg.RetryMaxDelay {
		return m.cfg.RetryMaxDelay
	}
	return d
}
