// Package batch implements the batching pipeline: per-kind priority
// queues, auto-flush triggers, overflow persistence, and retry with
// backoff around the wire codec and transport.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/sdk/transport"
	"github.com/pulsekit/pulsekit/pkg/store"
	"github.com/pulsekit/pulsekit/pkg/wire"
)

const (
	// queueFactor sets the soft cap of each per-kind queue relative to
	// the batch size.
	queueFactor = 3

	// criticalLogThreshold forces a high-priority flush once this many
	// high-severity logs are queued.
	criticalLogThreshold = 5

	// maxFailedBatches bounds the retry list; the oldest pending batch
	// is dropped when a new failure would exceed it.
	maxFailedBatches = 8
)

// Config holds batch manager configuration.
type Config struct {
	// APIKey is sent in every batch table.
	APIKey []byte

	// BatchSize triggers a full flush when the combined queue size
	// reaches it. Default 30.
	BatchSize int

	// FlushInterval is the background flush period. Default 10s.
	FlushInterval time.Duration

	// MaxRetries bounds retry attempts per failed batch. Default 3.
	MaxRetries int

	// Retry backoff: delay(n) = min(RetryMaxDelay, RetryBaseDelay *
	// RetryMultiplier^(n-1)). Defaults 1s, 30s, 2.0.
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	RetryMultiplier float64

	// Store absorbs overflow; nil means enqueue beyond capacity fails
	// with *QueueFullError.
	Store store.Store

	// OnError receives failures from the background flush path, which
	// producer calls never see. Optional; defaults to log.Printf.
	OnError func(error)
}

// flushScope selects which sub-queues a flush drains.
type flushScope int

const (
	scopeAll flushScope = iota
	scopeHigh
)

// Manager owns the queues and the single flush path. Producer calls are
// fire-and-forget: enqueueing is fast and any I/O their triggers cause
// runs asynchronously.
type Manager struct {
	cfg       Config
	transport transport.Transport

	mu          sync.Mutex
	queues      map[record.Kind]*kindQueue
	failed      []*failedBatch
	lastFlush   time.Time
	lastBatchID uint64
	stats       Stats

	// flushMu serializes flush cycles; flushing prevents trigger-spawned
	// goroutines from piling up behind it.
	flushMu  sync.Mutex
	flushing atomic.Bool

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var kinds = []record.Kind{
	record.KindEvent, record.KindIdentity, record.KindGroup,
	record.KindRevenue, record.KindLog,
}

// New creates a batch manager. Call Start to begin the background flush
// timer.
func New(tr transport.Transport, cfg Config) *Manager {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 30
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 30 * time.Second
	}
	if cfg.RetryMultiplier < 1 {
		cfg.RetryMultiplier = 2.0
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) { log.Printf("pulsekit: %v", err) }
	}

	m := &Manager{
		cfg:       cfg,
		transport: tr,
		queues:    make(map[record.Kind]*kindQueue, len(kinds)),
		done:      make(chan struct{}),
		lastFlush: time.Now(),
	}
	for _, k := range kinds {
		m.queues[k] = &kindQueue{}
	}
	return m
}

// Start launches the background flush timer.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("batch manager already started")
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	go m.flushLoop(ctx)
	return nil
}

// AddEvent enqueues an analytics event.
func (m *Manager) AddEvent(e record.Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	return m.add(e)
}

// AddIdentity enqueues a user-identity record.
func (m *Manager) AddIdentity(i record.Identity) error {
	if i.Time.IsZero() {
		i.Time = time.Now()
	}
	return m.add(i)
}

// AddGroup enqueues a group-membership record.
func (m *Manager) AddGroup(g record.Group) error {
	if g.Time.IsZero() {
		g.Time = time.Now()
	}
	return m.add(g)
}

// AddRevenue enqueues a revenue record. Revenue is always high priority.
func (m *Manager) AddRevenue(r record.Revenue) error {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	return m.add(r)
}

// AddLog enqueues a structured log entry.
func (m *Manager) AddLog(l record.LogEntry) error {
	if l.Time.IsZero() {
		l.Time = time.Now()
	}
	return m.add(l)
}

// add appends a record to its kind queue and evaluates the auto-flush
// triggers. Only validation and queue-full errors surface here; anything
// the triggered flush produces goes to OnError.
func (m *Manager) add(r record.Record) error {
	if r.Subject() == "" {
		return &wire.ValidationError{Reason: "subject identifier is required"}
	}

	kind := r.Kind()
	pri := r.Priority()

	m.mu.Lock()
	q := m.queues[kind]
	maxQueue := queueFactor * m.cfg.BatchSize
	if q.size() >= maxQueue {
		size := q.size()
		m.mu.Unlock()
		return m.overflow(r, size, maxQueue)
	}

	q.push(r, pri)

	scope, trigger := m.triggerLocked(pri)
	m.mu.Unlock()

	if trigger {
		m.asyncFlush(scope)
	}
	return nil
}

// triggerLocked evaluates the auto-flush conditions after an enqueue.
// Caller holds m.mu.
func (m *Manager) triggerLocked(pri record.Priority) (flushScope, bool) {
	total := 0
	for _, q := range m.queues {
		total += q.size()
	}
	if total >= m.cfg.BatchSize {
		return scopeAll, true
	}
	if pri == record.PriorityHigh {
		return scopeHigh, true
	}
	if len(m.queues[record.KindLog].high) >= criticalLogThreshold {
		return scopeHigh, true
	}
	return scopeAll, false
}

// overflow diverts a record to the persistence store, or rejects it when
// no store is configured.
func (m *Manager) overflow(r record.Record, size, maxQueue int) error {
	if m.cfg.Store == nil {
		return &QueueFullError{Kind: r.Kind(), Size: size, Max: maxQueue}
	}
	if err := m.cfg.Store.Append(context.Background(), []record.Record{r}); err != nil {
		m.mu.Lock()
		m.stats.RecordsDropped++
		m.mu.Unlock()
		m.cfg.OnError(fmt.Errorf("overflow record dropped: %w", err))
		return nil
	}
	m.mu.Lock()
	m.stats.RecordsPersisted++
	m.mu.Unlock()
	return nil
}

// asyncFlush runs a flush in the background. The atomic flag keeps
// trigger storms from spawning a goroutine per enqueue.
func (m *Manager) asyncFlush(scope flushScope) {
	if !m.flushing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer m.flushing.Store(false)
		if err := m.flush(context.Background(), scope); err != nil {
			m.cfg.OnError(err)
		}
	}()
}

// Flush performs a full flush and reports its outcome synchronously. It
// is the only flush a caller can await.
func (m *Manager) Flush(ctx context.Context) error {
	return m.flush(ctx, scopeAll)
}

// Close cancels the flush timer (exactly once) and runs one best-effort
// final flush. It never reports partial delivery failure as an error;
// callers needing guaranteed delivery should Flush first and check the
// result.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if started && cancel != nil {
		cancel()
		<-m.done
	}

	if err := m.flush(ctx, scopeAll); err != nil {
		m.cfg.OnError(fmt.Errorf("final flush: %w", err))
	}
	return nil
}

// flushLoop periodically flushes everything.
func (m *Manager) flushLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			due := time.Since(m.lastFlush) >= m.cfg.FlushInterval
			pending := false
			for _, q := range m.queues {
				if q.size() > 0 {
					pending = true
					break
				}
			}
			pending = pending || len(m.failed) > 0
			m.mu.Unlock()

			if due && pending {
				m.asyncFlush(scopeAll)
			}
		}
	}
}

// flush is the single flush path. Steps: retry pending failed batches,
// drain the overflow store back into the queues, collapse the queues into
// one record list per schema type, encode and send each.
func (m *Manager) flush(ctx context.Context, scope flushScope) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	firstErr := m.retryFailed(ctx)

	if scope == scopeAll && m.cfg.Store != nil {
		if err := m.drainStore(ctx); err != nil {
			m.cfg.OnError(fmt.Errorf("drain overflow store: %w", err))
		}
	}

	events, logs := m.collect(scope)

	if err := m.sendBatch(ctx, wire.SchemaEvent, events); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.sendBatch(ctx, wire.SchemaLog, logs); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr == nil {
		m.mu.Lock()
		m.lastFlush = time.Now()
		m.mu.Unlock()
	}
	return firstErr
}

// sendBatch encodes one schema-typed record list and sends it. On a send
// failure the attempted records move out of the queues into a failed
// batch so they are retried without ever being double-queued. Encoding
// failures are fatal for the record set: it is removed and the error
// surfaced, never retried.
func (m *Manager) sendBatch(ctx context.Context, schema wire.SchemaType, snap *snapshot) error {
	if snap == nil || len(snap.rows) == 0 {
		return nil
	}

	var body []byte
	var err error
	batchID := m.nextBatchID()
	switch schema {
	case wire.SchemaLog:
		body, err = wire.EncodeLogBatch(snap.rows, m.cfg.APIKey, batchID)
	default:
		body, err = wire.EncodeEventBatch(snap.rows, m.cfg.APIKey, batchID)
	}
	if err != nil {
		m.mu.Lock()
		m.clearSentLocked(snap)
		m.stats.RecordsDropped += uint64(len(snap.rows))
		m.stats.LastError = err.Error()
		m.mu.Unlock()
		return err
	}

	if err := m.transport.SendFrame(ctx, body); err != nil {
		m.mu.Lock()
		m.clearSentLocked(snap)
		m.addFailedLocked(&failedBatch{
			body:     body,
			schema:   schema,
			records:  len(snap.rows),
			failedAt: time.Now(),
			lastErr:  err,
		})
		m.stats.BatchesFailed++
		m.stats.LastError = err.Error()
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.clearSentLocked(snap)
	m.stats.BatchesSent++
	m.stats.RecordsSent += uint64(len(snap.rows))
	m.mu.Unlock()
	return nil
}

// nextBatchID derives a monotonically increasing id from the wall clock.
func (m *Manager) nextBatchID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uint64(time.Now().UnixMilli())
	if id <= m.lastBatchID {
		id = m.lastBatchID + 1
	}
	m.lastBatchID = id
	return id
}

// drainStore moves persisted overflow records back into the live queues.
func (m *Manager) drainStore(ctx context.Context) error {
	records, err := m.cfg.Store.Drain(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.queues[r.Kind()].push(r, r.Priority())
	}
	return nil
}

// Stats returns a copy of the manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.PendingRetry = len(m.failed)
	s.LastFlush = m.lastFlush
	return s
}

// QueueSizes reports the current queue depth per record kind.
func (m *Manager) QueueSizes() map[record.Kind]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sizes := make(map[record.Kind]int, len(m.queues))
	for k, q := range m.queues {
		sizes[k] = q.size()
	}
	return sizes
}

// Stats counts batch manager activity. Read-only to callers.
type Stats struct {
	BatchesSent      uint64    `json:"batches_sent"`
	RecordsSent      uint64    `json:"records_sent"`
	BatchesFailed    uint64    `json:"batches_failed"`
	Retries          uint64    `json:"retries"`
	RecordsDropped   uint64    `json:"records_dropped"`
	RecordsPersisted uint64    `json:"records_persisted"`
	PendingRetry     int       `json:"pending_retry"`
	LastFlush        time.Time `json:"last_flush"`
	LastError        string    `json:"last_error,omitempty"`
}
