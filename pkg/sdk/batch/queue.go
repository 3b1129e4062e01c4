package batch

import (
	"github.com/pulsekit/pulsekit/pkg/sdk/record"
)

// kindQueue holds one record kind's pending records, split by priority.
// Insertion order within each sub-queue is the only ordering guarantee.
type kindQueue struct {
	high   []record.Record
	normal []record.Record
}

func (q *kindQueue) push(r record.Record, pri record.Priority) {
	if pri == record.PriorityHigh {
		q.high = append(q.high, r)
		return
	}
	q.normal = append(q.normal, r)
}

func (q *kindQueue) size() int {
	return len(q.high) + len(q.normal)
}
