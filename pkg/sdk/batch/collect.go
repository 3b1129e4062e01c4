package batch

import (
	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/wire"
)

// taken records how many records a snapshot consumed from the head of
// each sub-queue, so success can clear exactly those.
type taken struct {
	kind   record.Kind
	high   int
	normal int
}

// snapshot is one schema type's collapsed record list plus enough
// bookkeeping to remove those records from the queues afterwards.
type snapshot struct {
	rows  []wire.Record
	takes []taken
}

// collect collapses the queues into one snapshot per schema type under
// the fixed order: event high, event normal, then identity, group and
// revenue mapped to event-shaped records, then log high (critical) and
// log normal. scopeHigh takes only the high sub-queues.
func (m *Manager) collect(scope flushScope) (events, logs *snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events = &snapshot{}
	logs = &snapshot{}

	eventKinds := []record.Kind{
		record.KindEvent, record.KindIdentity, record.KindGroup, record.KindRevenue,
	}
	for _, kind := range eventKinds {
		events.takeLocked(m.queues[kind], kind, scope)
	}
	logs.takeLocked(m.queues[record.KindLog], record.KindLog, scope)
	return events, logs
}

// takeLocked appends one kind's queued records (converted to wire rows)
// to the snapshot. Caller holds m.mu.
func (s *snapshot) takeLocked(q *kindQueue, kind record.Kind, scope flushScope) {
	t := taken{kind: kind, high: len(q.high)}
	for _, r := range q.high {
		s.rows = append(s.rows, toWire(r))
	}
	if scope == scopeAll {
		t.normal = len(q.normal)
		for _, r := range q.normal {
			s.rows = append(s.rows, toWire(r))
		}
	}
	if t.high > 0 || t.normal > 0 {
		s.takes = append(s.takes, t)
	}
}

// clearSentLocked removes a snapshot's records from the queue heads.
// Appends only ever go to the tail and no other flush runs concurrently,
// so the heads are exactly the records the snapshot took. Caller holds
// m.mu.
func (m *Manager) clearSentLocked(snap *snapshot) {
	for _, t := range snap.takes {
		q := m.queues[t.kind]
		q.high = q.high[t.high:]
		q.normal = q.normal[t.normal:]
	}
	snap.takes = nil
}
