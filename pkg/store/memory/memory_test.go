package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/store"
)

func TestAppendDrain(t *testing.T) {
	s := New(10)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []record.Record{
		record.Event{UserID: "u", Name: "first", Time: time.Now()},
		record.Event{UserID: "u", Name: "second", Time: time.Now()},
	}))
	assert.Equal(t, 2, s.Len())

	records, err := s.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].(record.Event).Name)
	assert.Equal(t, "second", records[1].(record.Event).Name)

	// Drain clears the store.
	assert.Equal(t, 0, s.Len())
	records, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCapacity(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []record.Record{
		record.Event{UserID: "u", Name: "a", Time: time.Now()},
		record.Event{UserID: "u", Name: "b", Time: time.Now()},
	}))

	err := s.Append(ctx, []record.Record{
		record.Event{UserID: "u", Name: "c", Time: time.Now()},
	})
	assert.ErrorIs(t, err, store.ErrStoreFull)
	assert.Equal(t, 2, s.Len())
}
