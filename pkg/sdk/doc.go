/*
Package sdk provides the PulseKit client library for shipping analytics
events, identity and revenue records, and structured logs to a PulseKit
collector over a persistent TCP connection.

# Quick Start

	client, err := sdk.New(config.Config{
	    APIKey:   "6170692d6b6579",
	    Endpoint: "localhost:9041",
	})
	if err != nil {
	    log.Fatal(err)
	}

	client.Start(context.Background())
	defer client.Close()

	client.Track(record.Event{
	    UserID: "user-42",
	    Name:   "checkout_started",
	    Properties: map[string]any{"cart_items": 3},
	})

# Record Kinds

Five producer calls, one per record kind:

	client.Track(record.Event{...})         // analytics events
	client.Identify(record.Identity{...})   // user traits
	client.SetGroup(record.Group{...})      // group membership
	client.TrackRevenue(record.Revenue{...}) // purchases, always high priority
	client.Log(record.LogEntry{...})        // structured logs

All five are fire-and-forget: the record is queued and the call returns.
The only errors they raise are validation problems and a full queue with
offline storage disabled. Network failures during background flushes are
retried with exponential backoff and are visible through BatchStats and
NetworkStats, never through the producer call.

# Batching & Flushing

Records are queued per kind and sent as binary batch frames when:
 1. The combined queue size reaches BatchSize (default 30), OR
 2. A high-priority record is enqueued (revenue, authentication/error
    category events, logs at error severity or above), OR
 3. Five or more high-severity logs are queued, OR
 4. FlushInterval elapses (default 10 seconds), OR
 5. You call client.Flush() manually.

Flush is the only flush a caller can await:

	// Guaranteed-delivery shutdown
	if err := client.Flush(ctx); err != nil {
	    log.Printf("flush failed: %v", err)
	}
	client.Close()

Close alone is best-effort: it cancels the timer, attempts one final
flush, and never reports partial delivery failure.

# Offline Storage

With OfflineStorageEnabled, records that overflow the live queues divert
into a bounded overflow store (in-memory, or BadgerDB-backed when
OfflinePath is set) and drain back into the queues on the next flush
cycle. Without it, overflow surfaces a *batch.QueueFullError to the
producer call.

# Ordering

Within one record kind, enqueue order is preserved into the encoded
batch. There is no ordering guarantee across kinds beyond the fixed
collapse order, and a high-priority record can flush before an
earlier-enqueued normal one.
*/
package sdk
