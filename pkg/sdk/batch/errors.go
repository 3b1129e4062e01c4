package batch

import (
	"fmt"

	"github.com/pulsekit/pulsekit/pkg/sdk/record"
)

// QueueFullError reports an enqueue rejected because the kind's queue is
// at its soft cap and no overflow store is configured.
type QueueFullError struct {
	Kind record.Kind
	Size int
	Max  int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("batch: %s queue full (%d/%d)", e.Kind, e.Size, e.Max)
}
