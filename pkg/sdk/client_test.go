package sdk

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsekit/pulsekit/pkg/config"
	"github.com/pulsekit/pulsekit/pkg/sdk/record"
	"github.com/pulsekit/pulsekit/pkg/wire"
)

// collectorStub accepts SDK connections and decodes every batch frame.
type collectorStub struct {
	ln net.Listener

	mu      sync.Mutex
	batches []*wire.Batch
}

func newCollectorStub(t *testing.T) *collectorStub {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := &collectorStub{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				for {
					body, err := wire.ReadFrame(conn)
					if err != nil {
						return
					}
					batch, err := wire.DecodeBatch(body)
					if err != nil {
						continue
					}
					c.mu.Lock()
					c.batches = append(c.batches, batch)
					c.mu.Unlock()
				}
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return c
}

func (c *collectorStub) received() []*wire.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*wire.Batch, len(c.batches))
	copy(out, c.batches)
	return out
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(config.Config{Endpoint: "localhost:1"})
	assert.Error(t, err) // missing API key

	_, err = New(config.Config{APIKey: "not-hex!", Endpoint: "localhost:1"})
	assert.Error(t, err)

	_, err = New(config.Config{APIKey: "abcd"})
	assert.Error(t, err) // missing endpoint
}

func TestEndToEndDelivery(t *testing.T) {
	collector := newCollectorStub(t)

	client, err := New(config.Config{
		APIKey:   "deadbeef",
		Endpoint: collector.ln.Addr().String(),
	})
	require.NoError(t, err)
	require.NoError(t, client.Start(context.Background()))
	defer client.Close()

	require.NoError(t, client.Track(record.Event{
		UserID:     "user-1",
		Name:       "signup_completed",
		Properties: map[string]any{"plan": "free"},
	}))
	require.NoError(t, client.Log(record.LogEntry{
		UserID:  "session-1",
		Level:   record.LevelInfo,
		Message: "client started",
	}))
	require.NoError(t, client.Flush(context.Background()))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(collector.received()) < 2 {
		time.Sleep(5 * time.Millisecond)
	}

	batches := collector.received()
	require.Len(t, batches, 2)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, batches[0].APIKey)
	assert.Equal(t, wire.SchemaEvent, batches[0].Schema)
	assert.Equal(t, "signup_completed", batches[0].Records[0].Body["name"])
	assert.Equal(t, wire.SchemaLog, batches[1].Schema)

	stats := client.BatchStats()
	assert.Equal(t, uint64(2), stats.BatchesSent)
	assert.Equal(t, uint64(2), stats.RecordsSent)

	netStats := client.NetworkStats()
	assert.Equal(t, uint64(2), netStats.SendAttempts)
	assert.NotZero(t, netStats.BytesSent)
}

func TestQueueSizesVisible(t *testing.T) {
	collector := newCollectorStub(t)

	client, err := New(config.Config{
		APIKey:    "abcd",
		Endpoint:  collector.ln.Addr().String(),
		BatchSize: 100,
	})
	require.NoError(t, err)

	require.NoError(t, client.Track(record.Event{UserID: "u", Name: "queued"}))
	assert.Equal(t, 1, client.QueueSizes()[record.KindEvent])
}
